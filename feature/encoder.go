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

// Package feature builds per-user feature vectors for segmentation: the raw
// interaction row extended with a fixed-length encoding of the explicit
// profile attributes. The slot order is a contract shared by training and
// any later per-user recomputation and must never change between the two.
package feature

import (
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/storage/data"
)

// Profile slot layout, appended after the interaction row.
const (
	slotCategories = 0 // 3 binary slots, one per declared preferred category
	slotBudget     = 3 // ordinal 0/1/2
	slotExperience = 4 // ordinal 0/1/2
	slotGroupSizes = 5 // 2 binary slots, one per declared group-size preference
	slotReserved   = 7 // reserved, always zero

	maxCategorySlots  = 3
	maxGroupSizeSlots = 2

	// ProfileWidth is the fixed number of profile slots.
	ProfileWidth = 10
)

// EncodeProfile returns the fixed-length profile encoding of a user.
// Malformed preference data yields an all-zero encoding for that user only,
// so one bad profile never aborts scoring for the rest.
func EncodeProfile(user data.User) []float32 {
	encoded := make([]float32, ProfileWidth)
	profile := user.Profile
	if malformed(profile) {
		log.Logger().Warn("malformed profile treated as empty",
			zap.String("user_id", user.UserId))
		return encoded
	}
	for i := 0; i < len(profile.Categories) && i < maxCategorySlots; i++ {
		encoded[slotCategories+i] = 1
	}
	if profile.BudgetTier.Valid() {
		encoded[slotBudget] = float32(profile.BudgetTier)
	}
	if profile.ExperienceTier.Valid() {
		encoded[slotExperience] = float32(profile.ExperienceTier)
	}
	for i := 0; i < len(profile.GroupSizes) && i < maxGroupSizeSlots; i++ {
		encoded[slotGroupSizes+i] = 1
	}
	return encoded
}

func malformed(profile data.Profile) bool {
	badTier := func(t data.Tier) bool {
		return t != data.TierUnset && !t.Valid()
	}
	return badTier(profile.BudgetTier) || badTier(profile.ExperienceTier) || badTier(profile.FrequencyTier)
}

// Encode returns the full feature vector of a user: a copy of the raw
// interaction row followed by the profile slots.
func Encode(user data.User, interactionRow []float32) []float32 {
	vector := make([]float32, 0, len(interactionRow)+ProfileWidth)
	vector = append(vector, interactionRow...)
	vector = append(vector, EncodeProfile(user)...)
	return vector
}

// EncodeAll builds the feature matrix for all users in index order.
func EncodeAll(users []data.User, matrix [][]float32) [][]float32 {
	features := make([][]float32, len(users))
	for i, user := range users {
		features[i] = Encode(user, matrix[i])
	}
	return features
}
