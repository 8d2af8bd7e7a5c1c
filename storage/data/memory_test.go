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
	"encoding/json"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDatabaseUsers(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	db.InsertUser(User{UserId: "b"})
	db.InsertUser(User{UserId: "a"})
	db.InsertUser(User{UserId: "b", Location: "north"})

	// Insertion order is preserved, upserts keep the original position.
	users, err := db.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b", users[0].UserId)
	assert.Equal(t, "north", users[0].Location)

	_, err = db.GetUser(ctx, "nobody")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestMemoryDatabaseInteractions(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	db.InsertInteraction(Interaction{UserId: "u1", ProductId: "p1", Quantity: 1, Timestamp: base.Add(2 * time.Hour)})
	db.InsertInteraction(Interaction{UserId: "u1", ProductId: "p2", Quantity: 1, Timestamp: base})
	db.InsertInteraction(Interaction{UserId: "u2", ProductId: "p1", Quantity: 1, Timestamp: base.Add(time.Hour)})

	all, err := db.GetInteractions(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	recent, err := db.GetInteractions(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	mine, err := db.GetUserInteractions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	// Sorted by timestamp.
	assert.Equal(t, "p2", mine[0].ProductId)
	assert.Equal(t, "p1", mine[1].ProductId)
}

func TestProfileJSONDefaults(t *testing.T) {
	var profile Profile
	require.NoError(t, json.Unmarshal([]byte(`{"categories":["staples"]}`), &profile))
	assert.Equal(t, TierUnset, profile.BudgetTier)
	assert.Equal(t, TierUnset, profile.ExperienceTier)
	assert.Equal(t, TierUnset, profile.FrequencyTier)
	assert.False(t, profile.Empty())

	require.NoError(t, json.Unmarshal([]byte(`{"budget_tier":0}`), &profile))
	assert.Equal(t, TierLow, profile.BudgetTier)
}

func TestSavingsFactor(t *testing.T) {
	assert.Equal(t, 0.3, Product{UnitPrice: 10, BulkPrice: 7}.SavingsFactor())
	assert.Zero(t, Product{UnitPrice: 0, BulkPrice: 7}.SavingsFactor())
	assert.Zero(t, Product{UnitPrice: 5, BulkPrice: 7}.SavingsFactor())
	// A free bulk price cannot reach a full 100% factor.
	assert.Less(t, Product{UnitPrice: 10, BulkPrice: -1}.SavingsFactor(), 1.0)
}

func TestCandidateLifecycle(t *testing.T) {
	now := time.Now()
	open := Candidate{Status: CandidateOpen, Deadline: now.Add(time.Hour), CommittedQuantity: 5, TargetQuantity: 10}
	assert.True(t, open.Recommendable(now))
	assert.Equal(t, 0.5, open.Progress())

	over := Candidate{Status: CandidateOpen, Deadline: now.Add(time.Hour), CommittedQuantity: 15, TargetQuantity: 10}
	assert.Equal(t, 1.0, over.Progress())
	assert.Zero(t, Candidate{TargetQuantity: 0, CommittedQuantity: 3}.Progress())

	expired := Candidate{Status: CandidateOpen, Deadline: now.Add(-time.Hour)}
	assert.False(t, expired.Recommendable(now))
	cancelled := Candidate{Status: CandidateCancelled, Deadline: now.Add(time.Hour)}
	assert.False(t, cancelled.Recommendable(now))
}

func TestTierCloseness(t *testing.T) {
	assert.Equal(t, float32(1), TierLow.Closeness(TierLow))
	assert.Equal(t, float32(0.5), TierLow.Closeness(TierMid))
	assert.Equal(t, float32(0), TierLow.Closeness(TierHigh))
	assert.Equal(t, float32(0.5), TierHigh.Closeness(TierMid))
}
