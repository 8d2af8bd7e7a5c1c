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

// Package cluster segments users by k-means over their feature vectors.
// Everything here is deterministic for a fixed seed: initialization is
// k-means++ driven by a seeded generator, and the silhouette search visits
// candidate k values in ascending order.
package cluster

import (
	"context"
	"math"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base"
	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/common/floats"
)

// KMeans holds a fitted clustering. Centroids are persisted with the
// artifact so later per-user assignment reuses the training geometry.
type KMeans struct {
	K         int
	Centroids [][]float32
	// Assignments[i] is the cluster of user i in index order.
	Assignments []int
	// Silhouette is the mean silhouette coefficient of the fit.
	Silhouette float64
}

// Fit runs k-means with k-means++ initialization and several seeded
// restarts, keeping the run with the lowest within-cluster inertia.
func Fit(ctx context.Context, points [][]float32, k, restarts, maxIter int, seed int64) (*KMeans, error) {
	if k < 1 {
		return nil, errors.Errorf("k must be positive, got %d", k)
	}
	if len(points) < k {
		return nil, errors.Errorf("%d points cannot form %d clusters", len(points), k)
	}
	var best *KMeans
	bestInertia := math.Inf(1)
	for restart := 0; restart < restarts; restart++ {
		select {
		case <-ctx.Done():
			return nil, errors.Trace(ctx.Err())
		default:
		}
		rng := base.NewRandomGenerator(seed + int64(restart))
		centroids := seedCentroids(points, k, rng)
		assignments := make([]int, len(points))
		for iter := 0; iter < maxIter; iter++ {
			moved := assign(points, centroids, assignments)
			recenter(points, centroids, assignments, k)
			if !moved {
				break
			}
		}
		if inertia := inertia(points, centroids, assignments); inertia < bestInertia {
			bestInertia = inertia
			best = &KMeans{K: k, Centroids: centroids, Assignments: assignments}
		}
	}
	best.Silhouette = silhouette(points, best.Assignments, best.K)
	return best, nil
}

// Search fits every k in [kMin, kMax] and keeps the fit with the highest
// silhouette. The upper bound is capped at n/2+1 so clusters average at
// least two members. Ties go to the smallest k. Fits that collapse to a
// single populated cluster are skipped.
func Search(ctx context.Context, points [][]float32, kMin, kMax, restarts, maxIter int, seed int64) (*KMeans, error) {
	if limit := len(points)/2 + 1; kMax > limit {
		kMax = limit
	}
	if kMax > len(points) {
		kMax = len(points)
	}
	if kMin > kMax {
		kMin = kMax
	}
	var best *KMeans
	for k := kMin; k <= kMax; k++ {
		fitted, err := Fit(ctx, points, k, restarts, maxIter, seed)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if populated(fitted.Assignments) < 2 {
			log.Logger().Debug("skipped degenerate clustering", zap.Int("k", k))
			continue
		}
		log.Logger().Debug("clustering candidate",
			zap.Int("k", k),
			zap.Float64("silhouette", fitted.Silhouette))
		if best == nil || fitted.Silhouette > best.Silhouette {
			best = fitted
		}
	}
	if best == nil {
		// Every k collapsed, so fall back to a single segment.
		fitted, err := Fit(ctx, points, 1, 1, maxIter, seed)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return fitted, nil
	}
	return best, nil
}

// Assign returns the nearest centroid of one vector.
func (km *KMeans) Assign(vector []float32) int {
	cluster, _ := nearest(vector, km.Centroids)
	return cluster
}

// seedCentroids implements k-means++: the first centroid is uniform, each
// further centroid is drawn proportional to squared distance from the
// nearest chosen centroid.
func seedCentroids(points [][]float32, k int, rng base.RandomGenerator) [][]float32 {
	centroids := make([][]float32, 0, k)
	first := rng.Intn(len(points))
	centroids = append(centroids, clone(points[first]))
	dist2 := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			_, d := nearest(p, centroids)
			dist2[i] = float64(d) * float64(d)
			total += dist2[i]
		}
		if total == 0 {
			// All remaining points coincide with a centroid.
			centroids = append(centroids, clone(points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		chosen := len(points) - 1
		var cumulative float64
		for i, d := range dist2 {
			cumulative += d
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(points[chosen]))
	}
	return centroids
}

func assign(points, centroids [][]float32, assignments []int) bool {
	moved := false
	for i, p := range points {
		cluster, _ := nearest(p, centroids)
		if assignments[i] != cluster {
			assignments[i] = cluster
			moved = true
		}
	}
	return moved
}

func recenter(points, centroids [][]float32, assignments []int, k int) {
	counts := make([]int, k)
	for _, c := range centroids {
		floats.Zero(c)
	}
	for i, p := range points {
		floats.Add(centroids[assignments[i]], p)
		counts[assignments[i]]++
	}
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			floats.MulConst(centroids[c], 1/float32(counts[c]))
		}
	}
}

func inertia(points, centroids [][]float32, assignments []int) float64 {
	var total float64
	for i, p := range points {
		d := floats.Euclidean(p, centroids[assignments[i]])
		total += float64(d) * float64(d)
	}
	return total
}

// silhouette computes the mean silhouette coefficient. Points in singleton
// clusters contribute zero.
func silhouette(points [][]float32, assignments []int, k int) float64 {
	if k < 2 {
		return 0
	}
	counts := make([]int, k)
	for _, c := range assignments {
		counts[c]++
	}
	var total float64
	for i, p := range points {
		own := assignments[i]
		if counts[own] < 2 {
			continue
		}
		sums := make([]float64, k)
		for j, q := range points {
			if i == j {
				continue
			}
			sums[assignments[j]] += float64(floats.Euclidean(p, q))
		}
		a := sums[own] / float64(counts[own]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			if mean := sums[c] / float64(counts[c]); mean < b {
				b = mean
			}
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(len(points))
}

func populated(assignments []int) int {
	seen := map[int]struct{}{}
	for _, c := range assignments {
		seen[c] = struct{}{}
	}
	return len(seen)
}

func nearest(vector []float32, centroids [][]float32) (int, float32) {
	bestCluster, bestDist := 0, float32(math.Inf(1))
	for c, centroid := range centroids {
		if d := floats.Euclidean(vector, centroid); d < bestDist {
			bestCluster, bestDist = c, d
		}
	}
	return bestCluster, bestDist
}

func clone(a []float32) []float32 {
	b := make([]float32, len(a))
	copy(b, a)
	return b
}
