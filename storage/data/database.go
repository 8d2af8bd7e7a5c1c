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
	"time"
)

// Tier is an ordinal preference level. TierUnset marks a missing attribute,
// which drops the corresponding dimension from profile similarity.
type Tier int8

const (
	TierUnset Tier = -1
	TierLow   Tier = 0
	TierMid   Tier = 1
	TierHigh  Tier = 2
)

// Valid reports whether the tier carries a usable value.
func (t Tier) Valid() bool {
	return t >= TierLow && t <= TierHigh
}

// Closeness returns 1-|a-b|/2, the similarity of two ordinal tiers.
func (t Tier) Closeness(o Tier) float32 {
	d := t - o
	if d < 0 {
		d = -d
	}
	return 1 - float32(d)/2
}

// ClusterUnassigned marks a user without a segment. Cluster ids are written
// only by the training orchestrator and are meaningful only relative to the
// artifact version that produced them.
const ClusterUnassigned = -1

// Profile holds the explicit preference attributes of a user. All fields are
// optional; empty slices and TierUnset mean the attribute was never provided.
type Profile struct {
	Categories     []string `json:"categories"`      // up to 3 preferred categories
	BudgetTier     Tier     `json:"budget_tier"`     // 0/1/2
	ExperienceTier Tier     `json:"experience_tier"` // 0/1/2
	GroupSizes     []string `json:"group_sizes"`     // up to 2 group-size preferences
	FrequencyTier  Tier     `json:"frequency_tier"`  // 0/1/2 participation frequency
}

// UnmarshalJSON decodes a profile with absent tier fields defaulting to
// TierUnset rather than the zero value, which would read as TierLow.
func (p *Profile) UnmarshalJSON(b []byte) error {
	type alias Profile
	aux := alias{
		BudgetTier:     TierUnset,
		ExperienceTier: TierUnset,
		FrequencyTier:  TierUnset,
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Profile(aux)
	return nil
}

// NewProfile returns a profile with every attribute unset.
func NewProfile() Profile {
	return Profile{
		BudgetTier:     TierUnset,
		ExperienceTier: TierUnset,
		FrequencyTier:  TierUnset,
	}
}

// Empty reports whether the profile carries no usable attribute at all.
func (p Profile) Empty() bool {
	return len(p.Categories) == 0 && len(p.GroupSizes) == 0 &&
		!p.BudgetTier.Valid() && !p.ExperienceTier.Valid() && !p.FrequencyTier.Valid()
}

type User struct {
	UserId   string  `json:"user_id"`
	Location string  `json:"location"`
	Cluster  int     `json:"cluster"`
	Profile  Profile `json:"profile"`
}

type Product struct {
	ProductId   string  `json:"product_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	UnitPrice   float64 `json:"unit_price"`
	BulkPrice   float64 `json:"bulk_price"`
}

// SavingsFactor returns the relative discount of the bulk price over the
// unit price, clamped to [0,1).
func (p Product) SavingsFactor() float64 {
	if p.UnitPrice <= 0 {
		return 0
	}
	factor := (p.UnitPrice - p.BulkPrice) / p.UnitPrice
	if factor < 0 {
		return 0
	}
	if factor >= 1 {
		return 0.999999
	}
	return factor
}

// Interaction is an append-only purchase fact. It is the source of truth for
// collaborative filtering and popularity.
type Interaction struct {
	UserId    string    `json:"user_id"`
	ProductId string    `json:"product_id"`
	Quantity  float64   `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

type CandidateStatus string

const (
	CandidateOpen      CandidateStatus = "open"
	CandidateFulfilled CandidateStatus = "fulfilled"
	CandidateExpired   CandidateStatus = "expired"
	CandidateCancelled CandidateStatus = "cancelled"
)

// Candidate is an open purchase offer aggregating demand toward a minimum
// order quantity before a deadline.
type Candidate struct {
	CandidateId       string          `json:"candidate_id"`
	ProductId         string          `json:"product_id"`
	Location          string          `json:"location"`
	Deadline          time.Time       `json:"deadline"`
	CommittedQuantity float64         `json:"committed_quantity"`
	TargetQuantity    float64         `json:"target_quantity"`
	Status            CandidateStatus `json:"status"`
}

// Progress returns the fraction of the target quantity already committed,
// capped at 1. A non-positive target yields 0.
func (c Candidate) Progress() float64 {
	if c.TargetQuantity <= 0 {
		return 0
	}
	progress := c.CommittedQuantity / c.TargetQuantity
	if progress > 1 {
		return 1
	}
	if progress < 0 {
		return 0
	}
	return progress
}

// DaysLeft returns the number of days until the deadline, which may be
// fractional.
func (c Candidate) DaysLeft(now time.Time) float64 {
	return c.Deadline.Sub(now).Hours() / 24
}

// Recommendable reports whether the candidate may be served: still open for
// contribution and not past its deadline.
func (c Candidate) Recommendable(now time.Time) bool {
	return c.Status == CandidateOpen && c.Deadline.After(now)
}

// Database is the read-only query contract the engine consumes. Writes to
// users, products, interactions and candidates belong to the surrounding
// application and are out of scope here.
type Database interface {
	// GetUser returns a user by id. A not-found error is returned for
	// unknown users.
	GetUser(ctx context.Context, userId string) (User, error)
	// GetUsers returns all recommendable users.
	GetUsers(ctx context.Context) ([]User, error)
	// GetProducts returns all products.
	GetProducts(ctx context.Context) ([]Product, error)
	// GetInteractions returns interactions since the given time. A zero
	// time returns the full log.
	GetInteractions(ctx context.Context, since time.Time) ([]Interaction, error)
	// GetUserInteractions returns the interactions of one user.
	GetUserInteractions(ctx context.Context, userId string) ([]Interaction, error)
	// GetCandidates returns all candidates regardless of lifecycle status.
	GetCandidates(ctx context.Context) ([]Candidate, error)
}
