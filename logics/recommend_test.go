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

package logics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/storage/data"
)

// chainDatabase seeds users covering each strategy: trained buyers,
// a post-training joiner with a profile, and a blank stranger.
func chainDatabase(now time.Time) *data.MemoryDatabase {
	database := data.NewMemoryDatabase()
	profile := data.Profile{Categories: []string{"staples"}, BudgetTier: data.TierMid,
		ExperienceTier: data.TierUnset, FrequencyTier: data.TierUnset}
	for i := 0; i < 4; i++ {
		database.InsertUser(data.User{UserId: fmt.Sprintf("u%d", i), Profile: profile})
	}
	database.InsertUser(data.User{UserId: "joiner", Profile: profile})
	database.InsertUser(data.User{UserId: "blank", Profile: data.NewProfile()})
	for _, product := range hybridProducts {
		database.InsertInteraction(data.Interaction{UserId: "u0", ProductId: product.ProductId, Quantity: 1, Timestamp: now})
	}
	database.InsertInteraction(data.Interaction{UserId: "u1", ProductId: "p0", Quantity: 5, Timestamp: now})
	database.InsertCandidate(data.Candidate{CandidateId: "c-rice", ProductId: "p0",
		Status: data.CandidateOpen, Deadline: now.Add(72 * time.Hour), TargetQuantity: 10})
	database.InsertCandidate(data.Candidate{CandidateId: "c-soap", ProductId: "p3",
		Status: data.CandidateOpen, Deadline: now.Add(72 * time.Hour), TargetQuantity: 10})
	return database
}

func TestRecommendHybridStrategy(t *testing.T) {
	a := hybridArtifact(t)
	database := chainDatabase(hybridNow)
	r := NewRecommender(config.GetDefaultConfig(), database, a)
	recommendations, err := r.Recommend(context.Background(), "u1", hybridNow)
	require.NoError(t, err)
	require.NotEmpty(t, recommendations)
	assert.Equal(t, StrategyHybrid, recommendations[0].Strategy)
}

func TestRecommendColdStartForNewJoiner(t *testing.T) {
	a := hybridArtifact(t)
	database := chainDatabase(hybridNow)
	// The joiner bought after training, so they have history but no row.
	database.InsertInteraction(data.Interaction{UserId: "joiner", ProductId: "p0", Quantity: 1, Timestamp: hybridNow})
	r := NewRecommender(config.GetDefaultConfig(), database, a)
	recommendations, err := r.Recommend(context.Background(), "joiner", hybridNow)
	require.NoError(t, err)
	require.NotEmpty(t, recommendations)
	assert.Equal(t, StrategyColdStart, recommendations[0].Strategy)
}

func TestRecommendColdStartWithoutHistory(t *testing.T) {
	a := hybridArtifact(t)
	database := chainDatabase(hybridNow)
	r := NewRecommender(config.GetDefaultConfig(), database, a)
	// u3 is in the trained index but never bought anything.
	recommendations, err := r.Recommend(context.Background(), "u3", hybridNow)
	require.NoError(t, err)
	require.NotEmpty(t, recommendations)
	assert.Equal(t, StrategyColdStart, recommendations[0].Strategy)
}

func TestRecommendFallbackWithoutArtifact(t *testing.T) {
	database := chainDatabase(hybridNow)
	r := NewRecommender(config.GetDefaultConfig(), database, nil)
	recommendations, err := r.Recommend(context.Background(), "u1", hybridNow)
	require.NoError(t, err)
	require.NotEmpty(t, recommendations)
	assert.Equal(t, StrategyFallback, recommendations[0].Strategy)
}

func TestRecommendFallbackForBlankProfile(t *testing.T) {
	database := chainDatabase(hybridNow)
	r := NewRecommender(config.GetDefaultConfig(), database, hybridArtifact(t))
	// No history and no profile: cold start finds nothing, rules serve.
	recommendations, err := r.Recommend(context.Background(), "blank", hybridNow)
	require.NoError(t, err)
	require.NotEmpty(t, recommendations)
	assert.Equal(t, StrategyFallback, recommendations[0].Strategy)
}

func TestRecommendUnknownUser(t *testing.T) {
	database := chainDatabase(hybridNow)
	r := NewRecommender(config.GetDefaultConfig(), database, nil)
	_, err := r.Recommend(context.Background(), "nobody", hybridNow)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestRecommendEmptyCandidatePool(t *testing.T) {
	database := data.NewMemoryDatabase()
	database.InsertUser(data.User{UserId: "u1", Profile: data.NewProfile()})
	database.InsertCandidate(data.Candidate{CandidateId: "c1", ProductId: "p0",
		Status: data.CandidateExpired, Deadline: hybridNow.Add(-time.Hour), TargetQuantity: 10})
	r := NewRecommender(config.GetDefaultConfig(), database, nil)
	_, err := r.Recommend(context.Background(), "u1", hybridNow)
	assert.ErrorIs(t, err, ErrEmptyCandidatePool)
}

func TestRecommendTopKCap(t *testing.T) {
	database := data.NewMemoryDatabase()
	database.InsertUser(data.User{UserId: "u1", Profile: data.NewProfile()})
	database.InsertInteraction(data.Interaction{UserId: "u1", ProductId: "p0", Quantity: 1, Timestamp: hybridNow})
	for i := 0; i < 25; i++ {
		database.InsertCandidate(data.Candidate{
			CandidateId: fmt.Sprintf("c%02d", i), ProductId: fmt.Sprintf("p%d", i),
			Status: data.CandidateOpen, Deadline: hybridNow.Add(time.Hour), TargetQuantity: 10})
	}
	r := NewRecommender(config.GetDefaultConfig(), database, nil)
	recommendations, err := r.Recommend(context.Background(), "u1", hybridNow)
	require.NoError(t, err)
	assert.Len(t, recommendations, 10)
}
