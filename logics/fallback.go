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

	"github.com/groupmart-io/groupmart/common/floats"
	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/model/artifact"
	"github.com/groupmart-io/groupmart/storage/data"
)

// Fallback fulfillment-urgency horizon: deadlines further out than this
// contribute no urgency.
const urgencyHorizonDays = 14

// Rule weights. They sum to one so an unboosted score stays in [0,1].
const (
	weightBoughtBefore = 0.30
	weightProgress     = 0.25
	weightClusterMate  = 0.20
	weightUrgency      = 0.15
	weightSavings      = 0.10
)

// Fallback ranks candidates by rules alone, for requests no trained model
// can serve: repeat purchases first, then segment mates' purchases,
// fulfillment progress, deadline urgency and savings. No matrix math; the
// artifact, when present, contributes only its cluster labels.
type Fallback struct {
	boosts   config.HybridConfig
	artifact *artifact.Artifact
}

// NewFallback creates a rule-based ranker. The artifact may be nil; the
// cluster-mate signal then stays silent.
func NewFallback(boosts config.HybridConfig, a *artifact.Artifact) *Fallback {
	return &Fallback{boosts: boosts, artifact: a}
}

// Recommend scores every recommendable candidate. Scores stay in [0,1].
func (f *Fallback) Recommend(ctx context.Context, database data.Database, userId string,
	candidates []data.Candidate, products map[string]data.Product, now time.Time) ([]Recommendation, error) {
	purchased := mapset.NewThreadUnsafeSet[string]()
	interactions, err := database.GetUserInteractions(ctx, userId)
	if err != nil && !errors.Is(err, errors.NotFound) {
		return nil, errors.Trace(err)
	}
	for _, interaction := range interactions {
		if interaction.Quantity > 0 {
			purchased.Add(interaction.ProductId)
		}
	}
	mates := f.clusterMatePurchases(userId)

	results := make([]Recommendation, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.Recommendable(now) {
			continue
		}
		rec := Recommendation{
			CandidateId: candidate.CandidateId,
			ProductId:   candidate.ProductId,
			Strategy:    StrategyFallback,
		}
		var score float32
		if purchased.Contains(candidate.ProductId) {
			score += weightBoughtBefore
			rec.Reasons = append(rec.Reasons, ReasonBoughtBefore)
		}
		if mates != nil && mates.Contains(candidate.ProductId) {
			score += weightClusterMate
			rec.Reasons = append(rec.Reasons, ReasonSimilarMembers)
		}
		score += weightProgress * float32(candidate.Progress())
		score += weightUrgency * urgency(candidate.DaysLeft(now))
		if product, ok := products[candidate.ProductId]; ok && product.SavingsFactor() >= f.boosts.SavingsThreshold {
			score += weightSavings
			rec.Reasons = append(rec.Reasons, ReasonHighSavings)
		}
		hybrid := Hybrid{config: f.boosts}
		_, rec.Reasons = hybrid.boost(candidate, rec.Reasons, now)
		rec.Score = floats.Clamp(score, 0, 1)
		results = append(results, rec)
	}
	sortRecommendations(results)
	return results, nil
}

// clusterMatePurchases collects products bought by training users sharing
// the requesting user's segment. Nil without an artifact or for users
// outside the trained index.
func (f *Fallback) clusterMatePurchases(userId string) mapset.Set[string] {
	if f.artifact == nil {
		return nil
	}
	own, ok := f.artifact.UserClusters[userId]
	if !ok {
		return nil
	}
	mates := mapset.NewThreadUnsafeSet[string]()
	for i, mateId := range f.artifact.UserIds {
		if mateId == userId || f.artifact.UserClusters[mateId] != own {
			continue
		}
		for j, quantity := range f.artifact.Rows[i] {
			if quantity > 0 {
				mates.Add(f.artifact.ProductIds[j])
			}
		}
	}
	return mates
}

func urgency(daysLeft float64) float32 {
	return floats.Clamp(float32((urgencyHorizonDays-daysLeft)/urgencyHorizonDays), 0, 1)
}
