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
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"
)

// MemoryDatabase is an in-memory implementation of Database used by tests
// and the command-line tools. Listings are returned in insertion order so
// that training runs on identical input are deterministic.
type MemoryDatabase struct {
	mu           sync.RWMutex
	users        map[string]User
	userOrder    []string
	products     map[string]Product
	productOrder []string
	interactions []Interaction
	candidates   []Candidate
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:    make(map[string]User),
		products: make(map[string]Product),
	}
}

// InsertUser adds or replaces a user.
func (db *MemoryDatabase) InsertUser(user User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exist := db.users[user.UserId]; !exist {
		db.userOrder = append(db.userOrder, user.UserId)
	}
	db.users[user.UserId] = user
}

// InsertProduct adds or replaces a product.
func (db *MemoryDatabase) InsertProduct(product Product) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exist := db.products[product.ProductId]; !exist {
		db.productOrder = append(db.productOrder, product.ProductId)
	}
	db.products[product.ProductId] = product
}

// InsertInteraction appends a purchase fact.
func (db *MemoryDatabase) InsertInteraction(interaction Interaction) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.interactions = append(db.interactions, interaction)
}

// InsertCandidate appends a purchase offer.
func (db *MemoryDatabase) InsertCandidate(candidate Candidate) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.candidates = append(db.candidates, candidate)
}

func (db *MemoryDatabase) GetUser(_ context.Context, userId string) (User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	user, exist := db.users[userId]
	if !exist {
		return User{}, errors.NotFoundf("user %s", userId)
	}
	return user, nil
}

func (db *MemoryDatabase) GetUsers(_ context.Context) ([]User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	users := make([]User, 0, len(db.userOrder))
	for _, id := range db.userOrder {
		users = append(users, db.users[id])
	}
	return users, nil
}

func (db *MemoryDatabase) GetProducts(_ context.Context) ([]Product, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	products := make([]Product, 0, len(db.productOrder))
	for _, id := range db.productOrder {
		products = append(products, db.products[id])
	}
	return products, nil
}

func (db *MemoryDatabase) GetInteractions(_ context.Context, since time.Time) ([]Interaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	interactions := make([]Interaction, 0, len(db.interactions))
	for _, interaction := range db.interactions {
		if since.IsZero() || !interaction.Timestamp.Before(since) {
			interactions = append(interactions, interaction)
		}
	}
	return interactions, nil
}

func (db *MemoryDatabase) GetUserInteractions(_ context.Context, userId string) ([]Interaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var interactions []Interaction
	for _, interaction := range db.interactions {
		if interaction.UserId == userId {
			interactions = append(interactions, interaction)
		}
	}
	sort.SliceStable(interactions, func(i, j int) bool {
		return interactions[i].Timestamp.Before(interactions[j].Timestamp)
	})
	return interactions, nil
}

func (db *MemoryDatabase) GetCandidates(_ context.Context) ([]Candidate, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	candidates := make([]Candidate, len(db.candidates))
	copy(candidates, db.candidates)
	return candidates, nil
}
