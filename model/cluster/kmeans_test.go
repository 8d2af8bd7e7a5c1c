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

package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Three tight blobs far apart.
var blobs = [][]float32{
	{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1},
	{10, 10}, {10.1, 10}, {10, 10.1}, {10.1, 10.1},
	{20, 0}, {20.1, 0}, {20, 0.1}, {20.1, 0.1},
}

func TestFitSeparatesBlobs(t *testing.T) {
	km, err := Fit(context.Background(), blobs, 3, 5, 100, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, km.K)
	// All members of a blob land in the same cluster.
	for blob := 0; blob < 3; blob++ {
		first := km.Assignments[blob*4]
		for i := 1; i < 4; i++ {
			assert.Equal(t, first, km.Assignments[blob*4+i])
		}
	}
	assert.Greater(t, km.Silhouette, 0.8)
}

func TestFitDeterministic(t *testing.T) {
	a, err := Fit(context.Background(), blobs, 3, 5, 100, 42)
	require.NoError(t, err)
	b, err := Fit(context.Background(), blobs, 3, 5, 100, 42)
	require.NoError(t, err)
	assert.Equal(t, a.Assignments, b.Assignments)
	assert.Equal(t, a.Centroids, b.Centroids)
}

func TestFitErrors(t *testing.T) {
	_, err := Fit(context.Background(), blobs, 0, 1, 10, 42)
	assert.Error(t, err)
	_, err = Fit(context.Background(), blobs[:2], 3, 1, 10, 42)
	assert.Error(t, err)
}

func TestSearchPicksThree(t *testing.T) {
	km, err := Search(context.Background(), blobs, 2, 6, 5, 100, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, km.K)
}

func TestSearchCapsUpperBound(t *testing.T) {
	// Six points bound the search at k=4, whatever the configured range.
	points := [][]float32{
		{0, 0}, {0.1, 0},
		{10, 10}, {10.1, 10},
		{20, 0}, {20.1, 0},
	}
	km, err := Search(context.Background(), points, 5, 9, 3, 100, 42)
	require.NoError(t, err)
	assert.Equal(t, 4, km.K)
}

func TestSearchCapsAtPointCount(t *testing.T) {
	points := [][]float32{{0, 0}, {0, 1}, {5, 5}}
	km, err := Search(context.Background(), points, 2, 9, 3, 100, 42)
	require.NoError(t, err)
	assert.LessOrEqual(t, km.K, 3)
}

func TestAssignMatchesTraining(t *testing.T) {
	km, err := Fit(context.Background(), blobs, 3, 5, 100, 42)
	require.NoError(t, err)
	for i, p := range blobs {
		assert.Equal(t, km.Assignments[i], km.Assign(p))
	}
	// A new point near a blob joins it.
	assert.Equal(t, km.Assignments[4], km.Assign([]float32{9.9, 10.2}))
}
