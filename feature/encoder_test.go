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

package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupmart-io/groupmart/storage/data"
)

func TestEncodeProfile(t *testing.T) {
	user := data.User{
		UserId: "u1",
		Profile: data.Profile{
			Categories:     []string{"produce", "dairy"},
			BudgetTier:     data.TierHigh,
			ExperienceTier: data.TierMid,
			GroupSizes:     []string{"small"},
			FrequencyTier:  data.TierLow,
		},
	}
	encoded := EncodeProfile(user)
	require.Len(t, encoded, ProfileWidth)
	assert.Equal(t, []float32{1, 1, 0, 2, 1, 1, 0, 0, 0, 0}, encoded)
}

func TestEncodeMalformedProfile(t *testing.T) {
	user := data.User{
		UserId: "u1",
		Profile: data.Profile{
			Categories: []string{"produce"},
			BudgetTier: data.Tier(7),
		},
	}
	assert.Equal(t, make([]float32, ProfileWidth), EncodeProfile(user))
}

func TestEncodeAppendsRow(t *testing.T) {
	row := []float32{3, 0, 1}
	vector := Encode(data.User{UserId: "u1"}, row)
	require.Len(t, vector, len(row)+ProfileWidth)
	assert.Equal(t, row, vector[:3])
	// The input row is not aliased.
	vector[0] = 9
	assert.Equal(t, float32(3), row[0])
}

func TestMinMaxScaler(t *testing.T) {
	matrix := [][]float32{
		{0, 10, 5},
		{4, 10, 7},
		{2, 10, 6},
	}
	scaler := FitScaler(matrix)
	scaled, err := scaler.TransformAll(matrix)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, scaled[0])
	assert.Equal(t, []float32{1, 0, 1}, scaled[1])
	assert.Equal(t, []float32{0.5, 0, 0.5}, scaled[2])

	_, err = scaler.Transform([]float32{1})
	assert.Error(t, err)
}
