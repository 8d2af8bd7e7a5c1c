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

package meta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Record is the metadata row of one trained model artifact. The blob itself
// lives in the blob store under the version name.
type Record struct {
	Version   string
	Metrics   string // JSON-encoded training metrics
	TrainedAt time.Time
	IsActive  bool
}

// MetricsJSON encodes any metrics value for storage in a Record.
func MetricsJSON(v interface{}) string {
	return string(lo.Must1(json.Marshal(v)))
}

// Database stores artifact metadata. Exactly one record is active at a time;
// SetActive flips the pointer atomically within the store.
type Database interface {
	Close() error
	Init() error
	// Insert stores the metadata of a freshly trained artifact.
	Insert(record Record) error
	// SetActive marks one version active and deactivates all others.
	SetActive(version string) error
	// GetActive returns the currently active record, or a not-found error.
	GetActive() (Record, error)
	// List returns all records, newest first.
	List() ([]Record, error)
}

// Open a connection to a metadata database.
func Open(path string) (Database, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	database, err := newSQLite(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}
