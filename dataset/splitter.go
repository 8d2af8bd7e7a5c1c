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

package dataset

import (
	"github.com/groupmart-io/groupmart/base"
	"github.com/groupmart-io/groupmart/storage/data"
)

// Split shuffles the interaction log with a seeded generator and holds out
// the given ratio for offline evaluation. The remaining interactions form
// the training log.
func Split(interactions []data.Interaction, ratio float64, seed int64) (train, test []data.Interaction) {
	if ratio <= 0 || len(interactions) == 0 {
		return interactions, nil
	}
	if ratio >= 1 {
		return nil, interactions
	}
	rng := base.NewRandomGenerator(seed)
	shuffled := make([]data.Interaction, len(interactions))
	copy(shuffled, interactions)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	testSize := int(float64(len(shuffled)) * ratio)
	return shuffled[testSize:], shuffled[:testSize]
}
