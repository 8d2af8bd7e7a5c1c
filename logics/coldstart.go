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
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/common/floats"
	"github.com/groupmart-io/groupmart/common/heap"
	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/storage/data"
)

// Dimension weights of the profile similarity. Dimensions missing on either
// side drop out and the rest are renormalized, so a sparse profile is
// compared only on what it declares.
const (
	weightCategories = 0.30
	weightGroupSizes = 0.25
	weightBudget     = 0.20
	weightExperience = 0.15
	weightFrequency  = 0.10
)

// ColdStart recommends to users without purchase history by finding members
// with similar explicit preferences and scoring the candidates those
// members joined.
type ColdStart struct {
	config config.ColdStartConfig
	boosts config.HybridConfig
}

// NewColdStart creates a cold-start engine. The hybrid config supplies the
// boost thresholds so all strategies boost consistently.
func NewColdStart(cfg config.ColdStartConfig, boosts config.HybridConfig) *ColdStart {
	return &ColdStart{config: cfg, boosts: boosts}
}

// ProfileSimilarity computes the weighted similarity of two preference
// profiles in [0,1]. Set dimensions use Jaccard overlap, tier dimensions
// use closeness. Zero is returned when the profiles share no declared
// dimension.
func ProfileSimilarity(a, b data.Profile) float64 {
	var score, total float64
	if len(a.Categories) > 0 && len(b.Categories) > 0 {
		score += weightCategories * jaccard(a.Categories, b.Categories)
		total += weightCategories
	}
	if len(a.GroupSizes) > 0 && len(b.GroupSizes) > 0 {
		score += weightGroupSizes * jaccard(a.GroupSizes, b.GroupSizes)
		total += weightGroupSizes
	}
	if a.BudgetTier.Valid() && b.BudgetTier.Valid() {
		score += weightBudget * float64(a.BudgetTier.Closeness(b.BudgetTier))
		total += weightBudget
	}
	if a.ExperienceTier.Valid() && b.ExperienceTier.Valid() {
		score += weightExperience * float64(a.ExperienceTier.Closeness(b.ExperienceTier))
		total += weightExperience
	}
	if a.FrequencyTier.Valid() && b.FrequencyTier.Valid() {
		score += weightFrequency * float64(a.FrequencyTier.Closeness(b.FrequencyTier))
		total += weightFrequency
	}
	if total == 0 {
		return 0
	}
	return score / total
}

func jaccard(a, b []string) float64 {
	sa := mapset.NewThreadUnsafeSet(a...)
	sb := mapset.NewThreadUnsafeSet(b...)
	union := sa.Union(sb).Cardinality()
	if union == 0 {
		return 0
	}
	return float64(sa.Intersect(sb).Cardinality()) / float64(union)
}

type neighbor struct {
	userId     string
	similarity float64
}

// Neighbors returns the most similar members above the similarity floor,
// capped at the configured maximum, ordered by decreasing similarity.
func (c *ColdStart) Neighbors(target data.User, users []data.User) []neighbor {
	filter := heap.NewTopKFilter[string, float64](c.config.MaxNeighbors)
	for _, user := range users {
		if user.UserId == target.UserId {
			continue
		}
		if sim := ProfileSimilarity(target.Profile, user.Profile); sim > c.config.MinSimilarity {
			filter.Push(user.UserId, sim)
		}
	}
	elems := filter.PopAll()
	neighbors := make([]neighbor, len(elems))
	for i, e := range elems {
		neighbors[i] = neighbor{userId: e.Value, similarity: e.Weight}
	}
	if len(neighbors) < c.config.MinNeighbors {
		log.Logger().Debug("cold start running below target neighborhood size",
			zap.String("user_id", target.UserId),
			zap.Int("neighbors", len(neighbors)))
	}
	return neighbors
}

// Recommend scores candidates by how strongly similar members committed to
// their products. A user with an empty profile, or with no neighbor above
// the floor, gets an empty list and the caller falls through to the next
// strategy.
func (c *ColdStart) Recommend(ctx context.Context, database data.Database, target data.User,
	candidates []data.Candidate, products map[string]data.Product, now time.Time) ([]Recommendation, error) {
	if target.Profile.Empty() {
		return nil, nil
	}
	users, err := database.GetUsers(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	neighbors := c.Neighbors(target, users)
	if len(neighbors) == 0 {
		return nil, nil
	}

	// Similarity-weighted vote of neighbors per product.
	votes := make(map[string]float32)
	for _, n := range neighbors {
		interactions, err := database.GetUserInteractions(ctx, n.userId)
		if err != nil {
			return nil, errors.Trace(err)
		}
		seen := mapset.NewThreadUnsafeSet[string]()
		for _, interaction := range interactions {
			if interaction.Quantity > 0 && seen.Add(interaction.ProductId) {
				votes[interaction.ProductId] += float32(n.similarity)
			}
		}
	}

	results := make([]Recommendation, 0, len(candidates))
	raw := make([]float32, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.Recommendable(now) {
			continue
		}
		vote, ok := votes[candidate.ProductId]
		if !ok {
			continue
		}
		rec := Recommendation{
			CandidateId: candidate.CandidateId,
			ProductId:   candidate.ProductId,
			Reasons:     []Reason{ReasonSimilarMembers},
			Strategy:    StrategyColdStart,
		}
		hybrid := Hybrid{config: c.boosts}
		rec.Boost, rec.Reasons = hybrid.boost(candidate, rec.Reasons, now)
		if product, ok := products[candidate.ProductId]; ok {
			rec.Reasons = hybrid.savingsReason(product, rec.Reasons)
		}
		results = append(results, rec)
		raw = append(raw, vote)
	}
	// Rescale votes to [0,1] before applying boosts.
	floats.MinMaxScale(raw)
	for i := range results {
		results[i].Score = floats.Clamp(raw[i]+results[i].Boost, 0, 1)
	}
	sortRecommendations(results)
	return results, nil
}
