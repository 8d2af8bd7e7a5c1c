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
	"github.com/juju/errors"
)

// MinMaxScaler rescales every feature column to [0,1]. It is fit once at training
// time and persisted with the artifact; serving reuses the fitted bounds and
// never refits, to avoid distribution drift between the two.
type MinMaxScaler struct {
	Min   []float32
	Range []float32
}

// FitScaler computes per-column bounds over a feature matrix.
func FitScaler(matrix [][]float32) *MinMaxScaler {
	if len(matrix) == 0 {
		return &MinMaxScaler{}
	}
	width := len(matrix[0])
	scaler := &MinMaxScaler{
		Min:   make([]float32, width),
		Range: make([]float32, width),
	}
	max := make([]float32, width)
	copy(scaler.Min, matrix[0])
	copy(max, matrix[0])
	for _, row := range matrix[1:] {
		for j, v := range row {
			if v < scaler.Min[j] {
				scaler.Min[j] = v
			}
			if v > max[j] {
				max[j] = v
			}
		}
	}
	for j := range max {
		scaler.Range[j] = max[j] - scaler.Min[j]
	}
	return scaler
}

// Transform rescales one vector with the fitted bounds. Constant columns map
// to zero.
func (s *MinMaxScaler) Transform(vector []float32) ([]float32, error) {
	if len(vector) != len(s.Min) {
		return nil, errors.Errorf("scaler expects %d features, got %d", len(s.Min), len(vector))
	}
	scaled := make([]float32, len(vector))
	for j, v := range vector {
		if s.Range[j] > 0 {
			scaled[j] = (v - s.Min[j]) / s.Range[j]
		}
	}
	return scaled, nil
}

// TransformAll rescales a whole matrix.
func (s *MinMaxScaler) TransformAll(matrix [][]float32) ([][]float32, error) {
	scaled := make([][]float32, len(matrix))
	for i, row := range matrix {
		var err error
		if scaled[i], err = s.Transform(row); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return scaled, nil
}
