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

// Package trainer runs the full training pipeline as a staged state
// machine. One run executes at a time; the serving side keeps reading the
// previous artifact until the new one is saved and activated, so training
// never disturbs live traffic.
package trainer

import (
	"context"
	"time"

	"github.com/juju/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/base/progress"
	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/dataset"
	"github.com/groupmart-io/groupmart/feature"
	"github.com/groupmart-io/groupmart/logics"
	"github.com/groupmart-io/groupmart/model/artifact"
	"github.com/groupmart-io/groupmart/model/cluster"
	"github.com/groupmart-io/groupmart/model/mf"
	"github.com/groupmart-io/groupmart/model/text"
	"github.com/groupmart-io/groupmart/storage/blob"
	"github.com/groupmart-io/groupmart/storage/data"
	"github.com/groupmart-io/groupmart/storage/meta"
)

// Pipeline stages in execution order.
const (
	StageDataCollection = "data_collection"
	StageMatrixBuilding = "matrix_building"
	StageClustering     = "clustering"
	StageCFTraining     = "cf_training"
	StageCBFProcessing  = "cbf_processing"
	StageHybridFusion   = "hybrid_fusion"
	StageModelSaving    = "model_saving"
)

// ErrTrainingRunning is returned when a run is requested while another is
// still in flight.
var ErrTrainingRunning = errors.New("a training run is already in progress")

// Trainer orchestrates training runs and exposes their progress.
type Trainer struct {
	config   *config.Config
	database data.Database
	blobs    blob.Store
	metadata meta.Database

	running  atomic.Bool
	progress *progress.Tracker
}

// NewTrainer creates a trainer.
func NewTrainer(cfg *config.Config, database data.Database, blobs blob.Store, metadata meta.Database) *Trainer {
	return &Trainer{
		config:   cfg.LoadDefaultIfNil(),
		database: database,
		blobs:    blobs,
		metadata: metadata,
		progress: progress.NewTracker(),
	}
}

// Progress returns the tracker for status snapshots and event
// subscriptions.
func (t *Trainer) Progress() *progress.Tracker {
	return t.progress
}

// Train runs the whole pipeline and returns the saved artifact. Failures at
// any stage leave the previously active artifact untouched. Only one run
// may execute at a time.
func (t *Trainer) Train(ctx context.Context) (*artifact.Artifact, error) {
	if !t.running.CompareAndSwap(false, true) {
		return nil, errors.Trace(ErrTrainingRunning)
	}
	defer t.running.Store(false)

	t.progress.Reset()
	start := time.Now()
	a, err := t.run(ctx)
	if err != nil {
		t.progress.Fail(t.progress.Snapshot().Stage, err)
		return nil, errors.Trace(err)
	}
	t.progress.Complete(StageModelSaving, "artifact "+a.Version+" active")
	log.Logger().Info("training complete",
		zap.String("version", a.Version),
		zap.Duration("elapsed", time.Since(start)))
	return a, nil
}

func (t *Trainer) run(ctx context.Context) (*artifact.Artifact, error) {
	// data_collection
	t.progress.Emit(StageDataCollection, 0, "loading snapshot")
	users, err := t.database.GetUsers(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	products, err := t.database.GetProducts(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	interactions, err := t.database.GetInteractions(ctx, time.Time{})
	if err != nil {
		return nil, errors.Trace(err)
	}
	// matrix_building
	// The model always sees the full log; a hold-out split is drawn later
	// only to measure ranking quality.
	t.progress.Emit(StageMatrixBuilding, 15, "building interaction matrix")
	set, err := dataset.Build(users, products, interactions)
	if err != nil {
		return nil, errors.Trace(err)
	}

	nonNegative := set.NonNegativeMatrix()
	a := artifact.New()
	a.UserIds = set.UserDict.Ids()
	a.ProductIds = set.ProductDict.Ids()
	// Serving folds users in through the factorizer, which requires the
	// clipped matrix.
	a.Rows = nonNegative
	a.Metrics.Users = set.CountUsers()
	a.Metrics.Products = set.CountProducts()

	// clustering
	t.progress.Emit(StageClustering, 30, "segmenting users")
	features := feature.EncodeAll(set.Users, set.Matrix)
	a.Scaler = feature.FitScaler(features)
	scaled, err := a.Scaler.TransformAll(features)
	if err != nil {
		return nil, errors.Trace(err)
	}
	a.Clustering, err = cluster.Search(ctx, scaled,
		t.config.Cluster.KMin, t.config.Cluster.KMax,
		t.config.Cluster.Restarts, t.config.Cluster.MaxIter, t.config.Data.Seed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	a.UserClusters = make(map[string]int, len(a.UserIds))
	for i, userId := range a.UserIds {
		a.UserClusters[userId] = a.Clustering.Assignments[i]
	}
	a.Metrics.K = a.Clustering.K
	a.Metrics.Silhouette = a.Clustering.Silhouette

	// cf_training
	t.progress.Emit(StageCFTraining, 45, "factorizing interaction matrix")
	a.MF = mf.NewNMF(t.config.CF.NFactors, t.config.CF.NEpochs,
		t.config.CF.InitLow, t.config.CF.InitHigh)
	if err := a.MF.Fit(ctx, nonNegative, t.config.Data.Seed); err != nil {
		return nil, errors.Trace(err)
	}
	a.Metrics.RMSE = a.MF.RMSE

	// cbf_processing
	t.progress.Emit(StageCBFProcessing, 65, "vectorizing product content")
	a.TFIDF = text.Fit(set.Products)

	// hybrid_fusion
	t.progress.Emit(StageHybridFusion, 80, "computing popularity and fusion inputs")
	a.Popularity = logics.PopularityScores(set.Matrix)
	if t.config.Data.TestRatio > 0 {
		_, test := dataset.Split(interactions, t.config.Data.TestRatio, t.config.Data.Seed)
		if len(test) > 0 {
			evaluation, err := logics.Evaluate(ctx, a, t.config.Hybrid, test, t.config.Recommend.TopK)
			if err != nil {
				return nil, errors.Trace(err)
			}
			a.Metrics.Precision = evaluation.Precision
			a.Metrics.Recall = evaluation.Recall
			a.Metrics.NDCG = evaluation.NDCG
			a.Metrics.HitRate = evaluation.HitRate
			a.Metrics.Coverage = evaluation.Coverage
		}
	}

	// model_saving
	t.progress.Emit(StageModelSaving, 95, "persisting artifact")
	if err := artifact.Save(a, t.blobs, t.metadata); err != nil {
		return nil, errors.Trace(err)
	}
	return a, nil
}
