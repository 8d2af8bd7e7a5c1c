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

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/model/artifact"
	"github.com/groupmart-io/groupmart/storage/data"
)

// ErrEmptyCandidatePool is returned when no candidate is open for
// contribution. There is nothing to rank, whatever the strategy.
var ErrEmptyCandidatePool = errors.New("no open candidates to recommend")

// Recommender serves ranked candidates for one user, picking the strongest
// strategy the request allows:
//
//   - hybrid, when the user has purchase history and is in the trained
//     index of a loaded artifact;
//   - cold start, when the user has no history or joined after training;
//   - rule-based fallback, when history exists but no artifact can serve
//     it, or a stronger strategy returns nothing.
type Recommender struct {
	config   *config.Config
	database data.Database
	artifact *artifact.Artifact
}

// NewRecommender creates a recommender. The artifact may be nil before the
// first training run completes; every request then degrades to cold start
// or fallback.
func NewRecommender(cfg *config.Config, database data.Database, a *artifact.Artifact) *Recommender {
	return &Recommender{config: cfg.LoadDefaultIfNil(), database: database, artifact: a}
}

// Recommend returns at most the configured top-k recommendations for a
// user. Unknown users get a not-found error; a pool with no open candidate
// gets ErrEmptyCandidatePool.
func (r *Recommender) Recommend(ctx context.Context, userId string, now time.Time) ([]Recommendation, error) {
	user, err := r.database.GetUser(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	candidates, products, err := r.pool(ctx, now)
	if err != nil {
		return nil, errors.Trace(err)
	}

	interactions, err := r.database.GetUserInteractions(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	hasHistory := hasPositive(interactions)

	recommendations, err := r.dispatch(ctx, user, hasHistory, candidates, products, now)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(recommendations) > r.config.Recommend.TopK {
		recommendations = recommendations[:r.config.Recommend.TopK]
	}
	return recommendations, nil
}

func (r *Recommender) dispatch(ctx context.Context, user data.User, hasHistory bool,
	candidates []data.Candidate, products map[string]data.Product, now time.Time) ([]Recommendation, error) {
	coldStart := NewColdStart(r.config.ColdStart, r.config.Hybrid)
	fallback := NewFallback(r.config.Hybrid, r.artifact)

	if !hasHistory {
		recommendations, err := coldStart.Recommend(ctx, r.database, user, candidates, products, now)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if len(recommendations) > 0 {
			return recommendations, nil
		}
		// No usable profile either, serve the rule-based ranking.
		return fallback.Recommend(ctx, r.database, user.UserId, candidates, products, now)
	}

	if r.artifact == nil {
		log.Logger().Warn("serving with rules only, no trained artifact",
			zap.String("user_id", user.UserId))
		return fallback.Recommend(ctx, r.database, user.UserId, candidates, products, now)
	}

	userIndex := r.artifact.UserIndex(user.UserId)
	if userIndex < 0 {
		// Joined after the last training run.
		recommendations, err := coldStart.Recommend(ctx, r.database, user, candidates, products, now)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if len(recommendations) > 0 {
			return recommendations, nil
		}
		return fallback.Recommend(ctx, r.database, user.UserId, candidates, products, now)
	}

	hybrid := NewHybrid(r.config.Hybrid, r.artifact)
	recommendations := hybrid.Rank(r.artifact.Rows[userIndex], candidates, products, now)
	if len(recommendations) == 0 {
		log.Logger().Debug("hybrid produced nothing, falling back",
			zap.String("user_id", user.UserId))
		return fallback.Recommend(ctx, r.database, user.UserId, candidates, products, now)
	}
	return recommendations, nil
}

// pool loads the open candidates and their products. ErrEmptyCandidatePool
// is returned when nothing is open.
func (r *Recommender) pool(ctx context.Context, now time.Time) ([]data.Candidate, map[string]data.Product, error) {
	candidates, err := r.database.GetCandidates(ctx)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	open := make([]data.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Recommendable(now) {
			open = append(open, candidate)
		}
	}
	if len(open) == 0 {
		return nil, nil, errors.Trace(ErrEmptyCandidatePool)
	}
	products, err := r.database.GetProducts(ctx)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	index := make(map[string]data.Product, len(products))
	for _, product := range products {
		index[product.ProductId] = product
	}
	return open, index, nil
}

func hasPositive(interactions []data.Interaction) bool {
	for _, interaction := range interactions {
		if interaction.Quantity > 0 {
			return true
		}
	}
	return false
}
