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

package floats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmetic(t *testing.T) {
	a := []float32{1, 2, 3}
	Add(a, []float32{1, 1, 1})
	assert.Equal(t, []float32{2, 3, 4}, a)
	MulConst(a, 2)
	assert.Equal(t, []float32{4, 6, 8}, a)
	assert.Equal(t, float32(18), Sum(a))
	assert.Equal(t, float32(4), Min(a))
	assert.Equal(t, float32(8), Max(a))
	assert.Equal(t, float32(2*4+3*6+4*8), Dot([]float32{2, 3, 4}, a))

	dst := make([]float32, 3)
	MulConstAdd([]float32{1, 2, 3}, 2, dst)
	MulConstAdd([]float32{1, 0, 0}, 1, dst)
	assert.Equal(t, []float32{3, 4, 6}, dst)
}

func TestLengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { Add([]float32{1}, []float32{1, 2}) })
	assert.Panics(t, func() { Dot([]float32{1}, []float32{1, 2}) })
}

func TestEuclideanAndNormalize(t *testing.T) {
	assert.Equal(t, float32(5), Euclidean([]float32{0, 0}, []float32{3, 4}))
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 1, Norm(v), 1e-6)
	// The zero vector stays untouched.
	z := []float32{0, 0}
	Normalize(z)
	assert.Equal(t, []float32{0, 0}, z)
}

func TestMinMaxScale(t *testing.T) {
	v := []float32{2, 6, 10}
	MinMaxScale(v)
	assert.Equal(t, []float32{0, 0.5, 1}, v)
	// Constant vectors scale to zero.
	c := []float32{7, 7}
	MinMaxScale(c)
	assert.Equal(t, []float32{0, 0}, c)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(0), Clamp(-0.5, 0, 1))
	assert.Equal(t, float32(1), Clamp(1.5, 0, 1))
	assert.Equal(t, float32(0.5), Clamp(0.5, 0, 1))
}
