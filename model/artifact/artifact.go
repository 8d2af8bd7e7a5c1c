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

// Package artifact bundles everything a trained run produces into a single
// versioned, immutable snapshot. Serving reads one artifact at a time and
// swaps to a new one atomically, so a recommendation is never computed from
// a half-written model.
package artifact

import (
	"io"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/groupmart-io/groupmart/base/encoding"
	"github.com/groupmart-io/groupmart/feature"
	"github.com/groupmart-io/groupmart/model/cluster"
	"github.com/groupmart-io/groupmart/model/mf"
	"github.com/groupmart-io/groupmart/model/text"
)

// Metrics summarizes a training run. It is stored twice: inside the blob
// and as JSON in the metadata store, so runs can be compared without
// loading blobs.
type Metrics struct {
	RMSE       float32 `json:"rmse"`
	K          int     `json:"k"`
	Silhouette float64 `json:"silhouette"`
	Users      int     `json:"users"`
	Products   int     `json:"products"`
	// Offline evaluation metrics, zero when no hold-out was configured.
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	NDCG      float64 `json:"ndcg"`
	HitRate   float64 `json:"hit_rate"`
	Coverage  float64 `json:"coverage"`
}

// Artifact is one immutable trained snapshot.
//
// UserIds and ProductIds pin the positional contract: row i of Rows and of
// the MF user factor belongs to UserIds[i], column j of every score vector
// belongs to ProductIds[j]. They are persisted verbatim and rebuilt into
// dicts on load, never recomputed from storage.
type Artifact struct {
	Version   string
	TrainedAt time.Time

	UserIds    []string
	ProductIds []string
	// Rows is the training-time interaction matrix, kept so serving can
	// fold known users into the latent space and build content profiles
	// without touching the factorizer's training state.
	Rows [][]float32

	MF         *mf.NMF
	TFIDF      *text.Vectorizer
	Clustering *cluster.KMeans
	Scaler     *feature.MinMaxScaler
	// Popularity[j] is the min-max scaled interaction volume of product j.
	Popularity []float32
	// UserClusters maps user id to segment, frozen at training time.
	UserClusters map[string]int

	Metrics Metrics
}

// New creates an empty artifact with a fresh version.
func New() *Artifact {
	return &Artifact{
		Version:   uuid.NewString(),
		TrainedAt: time.Now(),
	}
}

// UserIndex returns the row of a user id, or -1 when the user was not in
// the training index.
func (a *Artifact) UserIndex(userId string) int {
	for i, id := range a.UserIds {
		if id == userId {
			return i
		}
	}
	return -1
}

// ProductIndex returns the column of a product id, or -1.
func (a *Artifact) ProductIndex(productId string) int {
	for j, id := range a.ProductIds {
		if id == productId {
			return j
		}
	}
	return -1
}

// mfState is the serialized form of the factorizer. The predictable set is
// stored in its binary form because gob cannot see inside a bitset.
type mfState struct {
	NFactors    int
	NEpochs     int
	InitLow     float32
	InitHigh    float32
	W           [][]float32
	H           [][]float32
	RMSE        float32
	Predictable []byte
}

// Marshal writes the artifact to a byte stream.
func (a *Artifact) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, a.Version); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.TrainedAt); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.UserIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.ProductIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.Rows); err != nil {
		return errors.Trace(err)
	}
	predictable, err := a.MF.Predictable.MarshalBinary()
	if err != nil {
		return errors.Trace(err)
	}
	state := mfState{
		NFactors:    a.MF.NFactors,
		NEpochs:     a.MF.NEpochs,
		InitLow:     a.MF.InitLow,
		InitHigh:    a.MF.InitHigh,
		W:           a.MF.W,
		H:           a.MF.H,
		RMSE:        a.MF.RMSE,
		Predictable: predictable,
	}
	if err := encoding.WriteGob(w, state); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.TFIDF); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.Clustering); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.Scaler); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.Popularity); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, a.UserClusters); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, a.Metrics))
}

// Unmarshal reads an artifact from a byte stream.
func (a *Artifact) Unmarshal(r io.Reader) error {
	var err error
	if a.Version, err = encoding.ReadString(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &a.TrainedAt); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &a.UserIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &a.ProductIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &a.Rows); err != nil {
		return errors.Trace(err)
	}
	var state mfState
	if err := encoding.ReadGob(r, &state); err != nil {
		return errors.Trace(err)
	}
	a.MF = &mf.NMF{
		NFactors:    state.NFactors,
		NEpochs:     state.NEpochs,
		InitLow:     state.InitLow,
		InitHigh:    state.InitHigh,
		W:           state.W,
		H:           state.H,
		RMSE:        state.RMSE,
		Predictable: bitset.New(0),
	}
	if err := a.MF.Predictable.UnmarshalBinary(state.Predictable); err != nil {
		return errors.Trace(err)
	}
	a.TFIDF = new(text.Vectorizer)
	if err := encoding.ReadGob(r, a.TFIDF); err != nil {
		return errors.Trace(err)
	}
	a.Clustering = new(cluster.KMeans)
	if err := encoding.ReadGob(r, a.Clustering); err != nil {
		return errors.Trace(err)
	}
	a.Scaler = new(feature.MinMaxScaler)
	if err := encoding.ReadGob(r, a.Scaler); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &a.Popularity); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &a.UserClusters); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.ReadGob(r, &a.Metrics))
}
