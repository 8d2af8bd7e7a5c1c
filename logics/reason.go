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

// Package logics turns trained models and live candidate state into ranked,
// explained recommendations. The entry point is Recommender, which picks a
// scoring strategy per request and falls back down the chain when a
// stronger strategy cannot serve.
package logics

// Reason tags why a candidate was recommended. Tags are stable identifiers
// for clients; Prose renders them for display.
type Reason string

const (
	ReasonPersonalized   Reason = "personalized"
	ReasonSimilarContent Reason = "similar_content"
	ReasonPopular        Reason = "popular"
	ReasonPreferences    Reason = "preferences"
	ReasonSimilarMembers Reason = "similar_members"
	ReasonBoughtBefore   Reason = "bought_before"
	ReasonAlmostComplete Reason = "almost_complete"
	ReasonHalfway        Reason = "halfway"
	ReasonClosingSoon    Reason = "closing_soon"
	ReasonHighSavings    Reason = "high_savings"
)

var prose = map[Reason]string{
	ReasonPersonalized:   "matches your purchase history",
	ReasonSimilarContent: "similar to products you bought",
	ReasonPopular:        "popular with other members",
	ReasonPreferences:    "recommended based on your preferences",
	ReasonSimilarMembers: "joined by members with similar preferences",
	ReasonBoughtBefore:   "you bought this product before",
	ReasonAlmostComplete: "group is almost complete",
	ReasonHalfway:        "group is over halfway there",
	ReasonClosingSoon:    "closing soon",
	ReasonHighSavings:    "big savings on the unit price",
}

// Prose returns a human-readable rendering of the reason.
func (r Reason) Prose() string {
	if s, ok := prose[r]; ok {
		return s
	}
	return string(r)
}

// Strategy identifies which engine produced a recommendation.
type Strategy string

const (
	StrategyHybrid    Strategy = "hybrid"
	StrategyColdStart Strategy = "cold_start"
	StrategyFallback  Strategy = "fallback"
)

// Recommendation is one ranked candidate with its score breakdown.
type Recommendation struct {
	CandidateId string   `json:"candidate_id"`
	ProductId   string   `json:"product_id"`
	Score       float32  `json:"score"`
	CFScore     float32  `json:"cf_score"`
	CBFScore    float32  `json:"cbf_score"`
	PopScore    float32  `json:"pop_score"`
	Boost       float32  `json:"boost"`
	Reasons     []Reason `json:"reasons"`
	Strategy    Strategy `json:"strategy"`
}
