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
	"github.com/groupmart-io/groupmart/common/floats"
)

// PopularityScores computes the per-product interaction volume from the
// quantity matrix, min-max scaled to [0,1]. When every product has the same
// volume the signal carries no information and all scores are zero.
func PopularityScores(matrix [][]float32) []float32 {
	if len(matrix) == 0 {
		return nil
	}
	totals := make([]float32, len(matrix[0]))
	for _, row := range matrix {
		floats.Add(totals, row)
	}
	floats.MinMaxScale(totals)
	return totals
}
