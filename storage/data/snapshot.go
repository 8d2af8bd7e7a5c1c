// Copyright 2025 groupmart Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"encoding/json"
	"os"

	"github.com/juju/errors"
)

// Snapshot is a marketplace export: the full state the engine trains and
// serves from.
type Snapshot struct {
	Users        []User        `json:"users"`
	Products     []Product     `json:"products"`
	Interactions []Interaction `json:"interactions"`
	Candidates   []Candidate   `json:"candidates"`
}

// LoadSnapshot reads a JSON snapshot file into a memory database.
func LoadSnapshot(path string) (*MemoryDatabase, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(content, &snapshot); err != nil {
		return nil, errors.Trace(err)
	}
	database := NewMemoryDatabase()
	for _, user := range snapshot.Users {
		database.InsertUser(user)
	}
	for _, product := range snapshot.Products {
		database.InsertProduct(product)
	}
	for _, interaction := range snapshot.Interactions {
		database.InsertInteraction(interaction)
	}
	for _, candidate := range snapshot.Candidates {
		database.InsertCandidate(candidate)
	}
	return database, nil
}
