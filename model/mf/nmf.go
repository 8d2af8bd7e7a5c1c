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

// Package mf implements non-negative matrix factorization of the
// user-product quantity matrix by multiplicative updates. The factors feed
// the collaborative component of the hybrid ranker.
package mf

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base"
	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/common/floats"
)

const eps = 1e-9

// NMF factorizes a non-negative matrix V (n users by m products) into
// W (n by r) and H (r by m). Both factors stay non-negative throughout
// training, which keeps latent dimensions interpretable as additive taste
// components.
type NMF struct {
	NFactors int
	NEpochs  int
	InitLow  float32
	InitHigh float32

	// W[i] is the latent taste vector of user i.
	W [][]float32
	// H[f][j] is the loading of product j on factor f.
	H [][]float32
	// Predictable marks users with at least one training interaction.
	// Fold-in for the rest degenerates to zero scores.
	Predictable *bitset.BitSet
	// RMSE is the reconstruction error after the last epoch.
	RMSE float32
}

// NewNMF creates an untrained factorizer.
func NewNMF(nFactors, nEpochs int, initLow, initHigh float32) *NMF {
	return &NMF{
		NFactors: nFactors,
		NEpochs:  nEpochs,
		InitLow:  initLow,
		InitHigh: initHigh,
	}
}

// Rank returns the effective rank for a matrix of the given shape: the
// configured factor count capped at min(n, m)-1 and floored at 1.
func (nmf *NMF) Rank(n, m int) int {
	r := nmf.NFactors
	if limit := min(n, m) - 1; r > limit {
		r = limit
	}
	return max(r, 1)
}

// Fit factorizes the matrix. The input must be non-negative; negative
// entries are a caller bug and abort training. Fit is deterministic for a
// fixed seed.
func (nmf *NMF) Fit(ctx context.Context, matrix [][]float32, seed int64) error {
	n := len(matrix)
	if n == 0 || len(matrix[0]) == 0 {
		return errors.Errorf("cannot factorize an empty matrix")
	}
	m := len(matrix[0])
	for i, row := range matrix {
		for j, v := range row {
			if v < 0 {
				return errors.Errorf("negative entry at (%d,%d)", i, j)
			}
		}
	}
	r := nmf.Rank(n, m)
	rng := base.NewRandomGenerator(seed)
	nmf.W = rng.UniformMatrix(n, r, nmf.InitLow, nmf.InitHigh)
	nmf.H = rng.UniformMatrix(r, m, nmf.InitLow, nmf.InitHigh)

	nmf.Predictable = bitset.New(uint(n))
	for i, row := range matrix {
		if floats.Sum(row) > 0 {
			nmf.Predictable.Set(uint(i))
		}
	}

	for epoch := 1; epoch <= nmf.NEpochs; epoch++ {
		select {
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		default:
		}
		nmf.updateH(matrix)
		nmf.updateW(matrix)
		if epoch%50 == 0 || epoch == nmf.NEpochs {
			nmf.RMSE = nmf.rmse(matrix)
			log.Logger().Debug("nmf epoch",
				zap.Int("epoch", epoch),
				zap.Float32("rmse", nmf.RMSE))
		}
	}
	return nil
}

// updateH applies H <- H * (W^T V) / (W^T W H + eps) element-wise.
func (nmf *NMF) updateH(v [][]float32) {
	n, m, r := len(v), len(v[0]), len(nmf.H)
	// numerator W^T V and gram W^T W
	num := base.NewMatrix32(r, m)
	gram := base.NewMatrix32(r, r)
	for i := 0; i < n; i++ {
		for f := 0; f < r; f++ {
			w := nmf.W[i][f]
			if w == 0 {
				continue
			}
			floats.MulConstAdd(v[i], w, num[f])
			floats.MulConstAdd(nmf.W[i], w, gram[f])
		}
	}
	// denominator (W^T W) H
	den := base.NewMatrix32(r, m)
	for f := 0; f < r; f++ {
		for g := 0; g < r; g++ {
			floats.MulConstAdd(nmf.H[g], gram[f][g], den[f])
		}
	}
	for f := 0; f < r; f++ {
		for j := 0; j < m; j++ {
			nmf.H[f][j] *= num[f][j] / (den[f][j] + eps)
		}
	}
}

// updateW applies W <- W * (V H^T) / (W H H^T + eps) element-wise.
func (nmf *NMF) updateW(v [][]float32) {
	n, r := len(v), len(nmf.H)
	gram := base.NewMatrix32(r, r)
	for f := 0; f < r; f++ {
		for g := 0; g < r; g++ {
			gram[f][g] = floats.Dot(nmf.H[f], nmf.H[g])
		}
	}
	for i := 0; i < n; i++ {
		num := make([]float32, r)
		den := make([]float32, r)
		for f := 0; f < r; f++ {
			num[f] = floats.Dot(v[i], nmf.H[f])
			den[f] = floats.Dot(nmf.W[i], gram[f])
		}
		for f := 0; f < r; f++ {
			nmf.W[i][f] *= num[f] / (den[f] + eps)
		}
	}
}

func (nmf *NMF) rmse(v [][]float32) float32 {
	var sum float32
	var count int
	for i, row := range v {
		for j, target := range row {
			predicted := nmf.predict(nmf.W[i], j)
			diff := predicted - target
			sum += diff * diff
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math32.Sqrt(sum / float32(count))
}

func (nmf *NMF) predict(w []float32, j int) float32 {
	var s float32
	for f := range nmf.H {
		s += w[f] * nmf.H[f][j]
	}
	return s
}

// Transform folds a raw interaction row into the latent space against the
// frozen H factor. It runs the same multiplicative update as training with
// H held fixed, so serving never mutates the trained model.
func (nmf *NMF) Transform(row []float32) []float32 {
	r := len(nmf.H)
	w := make([]float32, r)
	if floats.Sum(row) <= 0 {
		return w
	}
	rng := base.NewRandomGenerator(0)
	copy(w, rng.UniformVector(r, nmf.InitLow, nmf.InitHigh))
	gram := base.NewMatrix32(r, r)
	for f := 0; f < r; f++ {
		for g := 0; g < r; g++ {
			gram[f][g] = floats.Dot(nmf.H[f], nmf.H[g])
		}
	}
	for epoch := 0; epoch < nmf.NEpochs; epoch++ {
		for f := 0; f < r; f++ {
			num := floats.Dot(row, nmf.H[f])
			den := floats.Dot(w, gram[f])
			w[f] *= num / (den + eps)
		}
	}
	return w
}

// Scores reconstructs the predicted affinity of one user for every product
// and rescales it to [0,1]. A degenerate reconstruction (all equal) scores
// zero everywhere.
func (nmf *NMF) Scores(w []float32) []float32 {
	m := len(nmf.H[0])
	scores := make([]float32, m)
	for j := 0; j < m; j++ {
		scores[j] = nmf.predict(w, j)
	}
	floats.MinMaxScale(scores)
	return scores
}
