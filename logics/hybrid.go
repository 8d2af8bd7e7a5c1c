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
	"sort"
	"time"

	"github.com/groupmart-io/groupmart/common/floats"
	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/model/artifact"
	"github.com/groupmart-io/groupmart/storage/data"
)

// Hybrid fuses collaborative, content and popularity scores for users known
// to the trained artifact, then applies contextual boosts from live
// candidate state. Component scores and the fused score all live in [0,1].
type Hybrid struct {
	config   config.HybridConfig
	artifact *artifact.Artifact
}

// NewHybrid creates a hybrid ranker over a trained artifact.
func NewHybrid(cfg config.HybridConfig, a *artifact.Artifact) *Hybrid {
	return &Hybrid{config: cfg, artifact: a}
}

// Rank scores every recommendable candidate for one user. The row is the
// user's interaction vector aligned to the artifact's product index.
// Candidates whose product was not in the training index are skipped; they
// are served by the cold-start and fallback paths instead.
func (h *Hybrid) Rank(row []float32, candidates []data.Candidate, products map[string]data.Product, now time.Time) []Recommendation {
	latent := h.artifact.MF.Transform(row)
	cf := h.artifact.MF.Scores(latent)
	cbf := h.artifact.TFIDF.Scores(h.artifact.TFIDF.Profile(row))
	pop := h.artifact.Popularity

	// CF and CBF are normalized over the scored pool, not the catalog, so
	// both components span [0,1] among the candidates at hand.
	pool := make([]data.Candidate, 0, len(candidates))
	cfPool := make([]float32, 0, len(candidates))
	cbfPool := make([]float32, 0, len(candidates))
	popPool := make([]float32, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.Recommendable(now) {
			continue
		}
		j := h.artifact.ProductIndex(candidate.ProductId)
		if j < 0 {
			continue
		}
		pool = append(pool, candidate)
		cfPool = append(cfPool, cf[j])
		cbfPool = append(cbfPool, cbf[j])
		popPool = append(popPool, pop[j])
	}
	floats.MinMaxScale(cfPool)
	floats.MinMaxScale(cbfPool)

	results := make([]Recommendation, 0, len(pool))
	for i, candidate := range pool {
		rec := Recommendation{
			CandidateId: candidate.CandidateId,
			ProductId:   candidate.ProductId,
			CFScore:     cfPool[i],
			CBFScore:    cbfPool[i],
			PopScore:    popPool[i],
			Strategy:    StrategyHybrid,
		}
		base := h.config.CFWeight*rec.CFScore + h.config.CBFWeight*rec.CBFScore + h.config.PopularityWeight*rec.PopScore
		base = floats.Clamp(base, 0, 1)
		rec.Reasons = append(rec.Reasons, componentReason(rec.CFScore, rec.CBFScore, rec.PopScore))
		rec.Boost, rec.Reasons = h.boost(candidate, rec.Reasons, now)
		rec.Score = floats.Clamp(base+rec.Boost, 0, 1)
		if product, ok := products[candidate.ProductId]; ok {
			rec.Reasons = h.savingsReason(product, rec.Reasons)
		}
		results = append(results, rec)
	}
	sortRecommendations(results)
	return results
}

// componentReason tags the strictly dominant component. Ties, including
// all-zero components, get the generic preference tag.
func componentReason(cf, cbf, pop float32) Reason {
	switch {
	case cf > cbf && cf > pop:
		return ReasonPersonalized
	case cbf > cf && cbf > pop:
		return ReasonSimilarContent
	case pop > cf && pop > cbf:
		return ReasonPopular
	default:
		return ReasonPreferences
	}
}

// boost applies fulfillment and deadline boosts. Progress boosts are
// mutually exclusive, the deadline boost stacks on top.
func (h *Hybrid) boost(candidate data.Candidate, reasons []Reason, now time.Time) (float32, []Reason) {
	var boost float32
	switch progress := candidate.Progress(); {
	case progress >= h.config.HighProgress:
		boost += h.config.HighProgressBoost
		reasons = append(reasons, ReasonAlmostComplete)
	case progress >= h.config.MidProgress:
		boost += h.config.MidProgressBoost
		reasons = append(reasons, ReasonHalfway)
	}
	if days := candidate.DaysLeft(now); days >= 0 && days <= h.config.DeadlineDays {
		boost += h.config.DeadlineBoost
		reasons = append(reasons, ReasonClosingSoon)
	}
	return boost, reasons
}

// savingsReason tags deep discounts. Savings never change the score, only
// the explanation.
func (h *Hybrid) savingsReason(product data.Product, reasons []Reason) []Reason {
	if product.SavingsFactor() >= h.config.SavingsThreshold {
		reasons = append(reasons, ReasonHighSavings)
	}
	return reasons
}

// sortRecommendations orders by score descending with candidate id as the
// deterministic tie-break.
func sortRecommendations(recs []Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].CandidateId < recs[j].CandidateId
	})
}
