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
	"context"
	"runtime"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/common/floats"
	"github.com/groupmart-io/groupmart/common/heap"
	"github.com/groupmart-io/groupmart/common/parallel"
	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/model/artifact"
	"github.com/groupmart-io/groupmart/storage/data"
)

// Evaluation is the result of an offline run against held-out interactions.
type Evaluation struct {
	K         int     `json:"k"`
	Users     int     `json:"users"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	NDCG      float64 `json:"ndcg"`
	HitRate   float64 `json:"hit_rate"`
	Coverage  float64 `json:"coverage"`
}

// Evaluate replays the hybrid product ranking for every held-out user and
// measures it against their held-out positives. Only users and products
// present in the artifact index participate; the rest are invisible to the
// trained model and would only measure the cold-start path.
func Evaluate(ctx context.Context, a *artifact.Artifact, cfg config.HybridConfig,
	test []data.Interaction, k int) (Evaluation, error) {
	evaluation := Evaluation{K: k}
	positives := make(map[int]mapset.Set[int])
	for _, interaction := range test {
		if interaction.Quantity <= 0 {
			continue
		}
		userIndex := a.UserIndex(interaction.UserId)
		productIndex := a.ProductIndex(interaction.ProductId)
		if userIndex < 0 || productIndex < 0 {
			continue
		}
		if _, ok := positives[userIndex]; !ok {
			positives[userIndex] = mapset.NewThreadUnsafeSet[int]()
		}
		positives[userIndex].Add(productIndex)
	}
	if len(positives) == 0 {
		return evaluation, nil
	}

	userIndices := make([]int, 0, len(positives))
	for userIndex := range positives {
		userIndices = append(userIndices, userIndex)
	}
	type result struct {
		precision, recall, ndcg float64
		hit                     bool
		recommended             []int
	}
	results := make([]result, len(userIndices))
	err := parallel.Parallel(len(userIndices), runtime.NumCPU(), func(_, jobId int) error {
		userIndex := userIndices[jobId]
		ranked := rankProducts(a, cfg, a.Rows[userIndex], k)
		truth := positives[userIndex]
		hits := 0
		var dcg float32
		for rank, productIndex := range ranked {
			if truth.Contains(productIndex) {
				hits++
				dcg += 1 / math32.Log2(float32(rank)+2)
			}
		}
		var idcg float32
		for rank := 0; rank < min(truth.Cardinality(), k); rank++ {
			idcg += 1 / math32.Log2(float32(rank)+2)
		}
		r := &results[jobId]
		r.precision = float64(hits) / float64(len(ranked))
		r.recall = float64(hits) / float64(truth.Cardinality())
		if idcg > 0 {
			r.ndcg = float64(dcg / idcg)
		}
		r.hit = hits > 0
		r.recommended = ranked
		return nil
	})
	if err != nil {
		return evaluation, errors.Trace(err)
	}

	covered := mapset.NewThreadUnsafeSet[int]()
	for _, r := range results {
		evaluation.Precision += r.precision
		evaluation.Recall += r.recall
		evaluation.NDCG += r.ndcg
		if r.hit {
			evaluation.HitRate++
		}
		covered.Append(r.recommended...)
	}
	n := float64(len(results))
	evaluation.Users = len(results)
	evaluation.Precision /= n
	evaluation.Recall /= n
	evaluation.NDCG /= n
	evaluation.HitRate /= n
	if products := len(a.ProductIds); products > 0 {
		evaluation.Coverage = float64(covered.Cardinality()) / float64(products)
	}
	log.Logger().Info("offline evaluation",
		zap.Int("users", evaluation.Users),
		zap.Float64("precision", evaluation.Precision),
		zap.Float64("recall", evaluation.Recall),
		zap.Float64("ndcg", evaluation.NDCG),
		zap.Float64("hit_rate", evaluation.HitRate),
		zap.Float64("coverage", evaluation.Coverage))
	return evaluation, nil
}

// rankProducts scores every product for one user with the fused hybrid
// signal and returns the top-k product indices in rank order.
func rankProducts(a *artifact.Artifact, cfg config.HybridConfig, row []float32, k int) []int {
	cf := a.MF.Scores(a.MF.Transform(row))
	cbf := a.TFIDF.Scores(a.TFIDF.Profile(row))
	// Components are normalized over the scored set, here the catalog.
	floats.MinMaxScale(cbf)
	filter := heap.NewTopKFilter[int, float32](k)
	for j := range a.ProductIds {
		score := cfg.CFWeight*cf[j] + cfg.CBFWeight*cbf[j] + cfg.PopularityWeight*a.Popularity[j]
		filter.Push(j, floats.Clamp(score, 0, 1))
	}
	elems := filter.PopAll()
	ranked := make([]int, len(elems))
	for i, e := range elems {
		ranked[i] = e.Value
	}
	return ranked
}
