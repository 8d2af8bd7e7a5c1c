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

// Package engine is the embedding surface of the recommender: one Engine
// owns the trainer, the active artifact and the serving path. Training and
// serving share nothing but an atomic artifact pointer, so a swap is
// invisible to in-flight requests.
package engine

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
	"github.com/groupmart-io/groupmart/logics"
	"github.com/groupmart-io/groupmart/model/artifact"
	"github.com/groupmart-io/groupmart/storage/blob"
	"github.com/groupmart-io/groupmart/storage/data"
	"github.com/groupmart-io/groupmart/storage/meta"
	"github.com/groupmart-io/groupmart/trainer"
)

// Engine wires storage, training and serving together.
type Engine struct {
	config   *config.Config
	database data.Database
	blobs    blob.Store
	metadata meta.Database
	trainer  *trainer.Trainer
	active   atomic.Pointer[artifact.Artifact]
}

// Open creates an engine over a data source, opening the artifact stores
// at the configured paths. A previously trained artifact is loaded when
// one exists; otherwise the engine serves cold start and fallback until
// the first training run.
func Open(cfg *config.Config, database data.Database) (*Engine, error) {
	cfg = cfg.LoadDefaultIfNil()
	metadata, err := meta.Open(cfg.Storage.MetaPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := metadata.Init(); err != nil {
		return nil, errors.Trace(err)
	}
	blobs := blob.NewPOSIX(cfg.Storage.BlobPath)
	e := &Engine{
		config:   cfg,
		database: database,
		blobs:    blobs,
		metadata: metadata,
		trainer:  trainer.NewTrainer(cfg, database, blobs, metadata),
	}
	if a, err := artifact.LoadActive(e.blobs, metadata); err == nil {
		e.active.Store(a)
	} else if !errors.Is(err, errors.NotFound) {
		return nil, errors.Trace(err)
	} else {
		log.Logger().Info("no active artifact, serving without a trained model")
	}
	return e, nil
}

// Close releases the metadata store.
func (e *Engine) Close() error {
	return errors.Trace(e.metadata.Close())
}

// Train runs a full training pipeline synchronously and swaps the active
// artifact on success.
func (e *Engine) Train(ctx context.Context) (*artifact.Artifact, error) {
	a, err := e.trainer.Train(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	e.active.Store(a)
	return a, nil
}

// TrainInBackground starts a training run and returns immediately with
// ErrTrainingRunning when one is already in flight. Completion is observed
// through Progress.
func (e *Engine) TrainInBackground(ctx context.Context) error {
	if e.trainer.Progress().Status() == progress.StatusRunning {
		return errors.Trace(trainer.ErrTrainingRunning)
	}
	go func() {
		if _, err := e.Train(ctx); err != nil {
			log.Logger().Error("background training failed", zap.Error(err))
		}
	}()
	return nil
}

// Progress returns the training tracker for snapshots and subscriptions.
func (e *Engine) Progress() *progress.Tracker {
	return e.trainer.Progress()
}

// Artifact returns the active artifact, or nil before the first successful
// run.
func (e *Engine) Artifact() *artifact.Artifact {
	return e.active.Load()
}

// Recommend serves ranked candidates for one user against the active
// artifact.
func (e *Engine) Recommend(ctx context.Context, userId string) ([]logics.Recommendation, error) {
	recommender := logics.NewRecommender(e.config, e.database, e.active.Load())
	recommendations, err := recommender.Recommend(ctx, userId, time.Now())
	return recommendations, errors.Trace(err)
}

// Evaluate replays the active artifact against a held-out share of the
// interaction log. The split is seeded, so repeated calls measure the same
// hold-out.
func (e *Engine) Evaluate(ctx context.Context, testRatio float64) (logics.Evaluation, error) {
	a := e.active.Load()
	if a == nil {
		return logics.Evaluation{}, errors.NotFoundf("active artifact")
	}
	interactions, err := e.database.GetInteractions(ctx, time.Time{})
	if err != nil {
		return logics.Evaluation{}, errors.Trace(err)
	}
	_, test := dataset.Split(interactions, testRatio, e.config.Data.Seed)
	evaluation, err := logics.Evaluate(ctx, a, e.config.Hybrid, test, e.config.Recommend.TopK)
	return evaluation, errors.Trace(err)
}
