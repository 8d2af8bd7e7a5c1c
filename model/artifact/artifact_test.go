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

package artifact

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupmart-io/groupmart/feature"
	"github.com/groupmart-io/groupmart/model/cluster"
	"github.com/groupmart-io/groupmart/model/mf"
	"github.com/groupmart-io/groupmart/model/text"
	"github.com/groupmart-io/groupmart/storage/blob"
	"github.com/groupmart-io/groupmart/storage/data"
	"github.com/groupmart-io/groupmart/storage/meta"
)

func trainedArtifact(t *testing.T) *Artifact {
	rows := [][]float32{
		{2, 0, 1, 0},
		{0, 3, 0, 1},
		{1, 1, 0, 0},
		{0, 0, 2, 2},
	}
	a := New()
	a.UserIds = []string{"u0", "u1", "u2", "u3"}
	a.ProductIds = []string{"p0", "p1", "p2", "p3"}
	a.Rows = rows
	a.MF = mf.NewNMF(2, 20, 0.01, 1)
	require.NoError(t, a.MF.Fit(context.Background(), rows, 42))
	a.TFIDF = text.Fit([]data.Product{
		{ProductId: "p0", Name: "rice"},
		{ProductId: "p1", Name: "soap"},
		{ProductId: "p2", Name: "rice oil"},
		{ProductId: "p3", Name: "soap bar"},
	})
	km, err := cluster.Fit(context.Background(), rows, 2, 2, 50, 42)
	require.NoError(t, err)
	a.Clustering = km
	a.Scaler = feature.FitScaler(rows)
	a.Popularity = []float32{1, 0.5, 0.25, 0}
	a.UserClusters = map[string]int{"u0": 0, "u1": 1, "u2": 0, "u3": 1}
	a.Metrics = Metrics{RMSE: 0.5, K: 2, Users: 4, Products: 4}
	return a
}

func TestMarshalRoundtrip(t *testing.T) {
	a := trainedArtifact(t)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, a.Marshal(buf))

	loaded := new(Artifact)
	require.NoError(t, loaded.Unmarshal(buf))
	assert.Equal(t, a.Version, loaded.Version)
	assert.Equal(t, a.UserIds, loaded.UserIds)
	assert.Equal(t, a.ProductIds, loaded.ProductIds)
	assert.Equal(t, a.Rows, loaded.Rows)
	assert.Equal(t, a.MF.H, loaded.MF.H)
	assert.True(t, a.MF.Predictable.Equal(loaded.MF.Predictable))
	assert.Equal(t, a.Clustering.Centroids, loaded.Clustering.Centroids)
	assert.Equal(t, a.UserClusters, loaded.UserClusters)
	assert.Equal(t, a.Metrics, loaded.Metrics)
	// The loaded artifact scores identically.
	assert.Equal(t,
		a.MF.Scores(a.MF.Transform(a.Rows[0])),
		loaded.MF.Scores(loaded.MF.Transform(loaded.Rows[0])))
}

func TestSaveActivatesVersion(t *testing.T) {
	dir := t.TempDir()
	blobs := blob.NewPOSIX(filepath.Join(dir, "blobs"))
	metadata, err := meta.Open(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	require.NoError(t, metadata.Init())
	defer metadata.Close()

	_, err = LoadActive(blobs, metadata)
	assert.True(t, errors.Is(err, errors.NotFound))

	first := trainedArtifact(t)
	require.NoError(t, Save(first, blobs, metadata))
	second := trainedArtifact(t)
	require.NoError(t, Save(second, blobs, metadata))

	active, err := LoadActive(blobs, metadata)
	require.NoError(t, err)
	assert.Equal(t, second.Version, active.Version)

	records, err := metadata.List()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestIndexLookups(t *testing.T) {
	a := trainedArtifact(t)
	assert.Equal(t, 2, a.UserIndex("u2"))
	assert.Equal(t, -1, a.UserIndex("nobody"))
	assert.Equal(t, 3, a.ProductIndex("p3"))
	assert.Equal(t, -1, a.ProductIndex("p9"))
}
