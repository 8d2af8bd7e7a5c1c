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

package trainer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/groupmart-io/groupmart/base/progress"
	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/dataset"
	"github.com/groupmart-io/groupmart/storage/blob"
	"github.com/groupmart-io/groupmart/storage/data"
	"github.com/groupmart-io/groupmart/storage/meta"
)

type TrainerTestSuite struct {
	suite.Suite
	database *data.MemoryDatabase
	blobs    blob.Store
	metadata meta.Database
	trainer  *Trainer
}

func (s *TrainerTestSuite) SetupTest() {
	dir := s.T().TempDir()
	s.database = data.NewMemoryDatabase()
	s.blobs = blob.NewPOSIX(filepath.Join(dir, "blobs"))
	var err error
	s.metadata, err = meta.Open(filepath.Join(dir, "meta.db"))
	s.Require().NoError(err)
	s.Require().NoError(s.metadata.Init())

	cfg := config.GetDefaultConfig()
	cfg.CF.NEpochs = 30
	cfg.Cluster.Restarts = 3
	s.trainer = NewTrainer(cfg, s.database, s.blobs, s.metadata)
}

func (s *TrainerTestSuite) TearDownTest() {
	s.NoError(s.metadata.Close())
}

// seed fills the database with two taste groups over eight products.
func (s *TrainerTestSuite) seed() {
	now := time.Now()
	for i := 0; i < 6; i++ {
		s.database.InsertUser(data.User{UserId: fmt.Sprintf("u%d", i), Profile: data.NewProfile()})
	}
	categories := []string{"staples", "staples", "staples", "staples", "household", "household", "household", "household"}
	for j := 0; j < 8; j++ {
		s.database.InsertProduct(data.Product{
			ProductId: fmt.Sprintf("p%d", j),
			Name:      fmt.Sprintf("product %d", j),
			Category:  categories[j],
			UnitPrice: 10,
			BulkPrice: 8,
		})
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			s.database.InsertInteraction(data.Interaction{
				UserId: fmt.Sprintf("u%d", i), ProductId: fmt.Sprintf("p%d", j),
				Quantity: float64(1 + j), Timestamp: now})
		}
	}
	for i := 3; i < 6; i++ {
		for j := 4; j < 8; j++ {
			s.database.InsertInteraction(data.Interaction{
				UserId: fmt.Sprintf("u%d", i), ProductId: fmt.Sprintf("p%d", j),
				Quantity: float64(j - 3), Timestamp: now})
		}
	}
}

func (s *TrainerTestSuite) TestTrain() {
	s.seed()
	events := s.trainer.Progress().Subscribe(64)
	a, err := s.trainer.Train(context.Background())
	s.Require().NoError(err)

	// Index order matches insertion order.
	s.Equal([]string{"u0", "u1", "u2", "u3", "u4", "u5"}, a.UserIds)
	s.Len(a.ProductIds, 8)
	s.Len(a.Rows, 6)
	s.NotNil(a.MF)
	s.NotNil(a.TFIDF)
	s.NotNil(a.Clustering)
	s.Len(a.Popularity, 8)
	s.Len(a.UserClusters, 6)
	s.GreaterOrEqual(a.Clustering.K, 2)

	// The artifact is active in the metadata store.
	record, err := s.metadata.GetActive()
	s.Require().NoError(err)
	s.Equal(a.Version, record.Version)
	s.Equal(progress.StatusComplete, s.trainer.Progress().Status())

	// Stages were announced in pipeline order.
	stages := make([]string, 0)
	for {
		select {
		case event := <-events:
			if len(stages) == 0 || stages[len(stages)-1] != event.Stage {
				stages = append(stages, event.Stage)
			}
			continue
		default:
		}
		break
	}
	s.Equal([]string{
		StageDataCollection,
		StageMatrixBuilding,
		StageClustering,
		StageCFTraining,
		StageCBFProcessing,
		StageHybridFusion,
		StageModelSaving,
	}, stages)
}

func (s *TrainerTestSuite) TestTrainDeterministic() {
	s.seed()
	first, err := s.trainer.Train(context.Background())
	s.Require().NoError(err)
	second, err := s.trainer.Train(context.Background())
	s.Require().NoError(err)
	// Fresh version, identical model.
	s.NotEqual(first.Version, second.Version)
	s.Equal(first.Rows, second.Rows)
	s.Equal(first.MF.W, second.MF.W)
	s.Equal(first.Clustering.Assignments, second.Clustering.Assignments)
	s.Equal(first.Popularity, second.Popularity)
}

func (s *TrainerTestSuite) TestHoldoutDoesNotShrinkModel() {
	s.seed()
	baseline, err := s.trainer.Train(context.Background())
	s.Require().NoError(err)

	cfg := config.GetDefaultConfig()
	cfg.CF.NEpochs = 30
	cfg.Cluster.Restarts = 3
	cfg.Data.TestRatio = 0.5
	holdout := NewTrainer(cfg, s.database, s.blobs, s.metadata)
	a, err := holdout.Train(context.Background())
	s.Require().NoError(err)

	// The hold-out split feeds evaluation only; matrix, factors and
	// popularity still cover the full interaction log.
	s.Equal(baseline.Rows, a.Rows)
	s.Equal(baseline.Popularity, a.Popularity)
	s.Equal(baseline.MF.W, a.MF.W)
}

func (s *TrainerTestSuite) TestTrainInsufficientData() {
	s.database.InsertUser(data.User{UserId: "only", Profile: data.NewProfile()})
	_, err := s.trainer.Train(context.Background())
	s.ErrorIs(err, dataset.ErrDataInsufficient)
	s.Equal(progress.StatusFailed, s.trainer.Progress().Status())
	// No artifact was activated.
	_, err = s.metadata.GetActive()
	s.Error(err)
}

func (s *TrainerTestSuite) TestFailureKeepsPreviousArtifact() {
	s.seed()
	first, err := s.trainer.Train(context.Background())
	s.Require().NoError(err)

	// A canceled run must not unseat the active artifact.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.trainer.Train(ctx)
	s.Error(err)

	record, err := s.metadata.GetActive()
	s.Require().NoError(err)
	s.Equal(first.Version, record.Version)
}

func TestTrainerTestSuite(t *testing.T) {
	suite.Run(t, new(TrainerTestSuite))
}

func TestTrainRejectsConcurrentRun(t *testing.T) {
	trainer := NewTrainer(nil, data.NewMemoryDatabase(), nil, nil)
	require.True(t, trainer.running.CompareAndSwap(false, true))
	_, err := trainer.Train(context.Background())
	assert.ErrorIs(t, err, ErrTrainingRunning)
	trainer.running.Store(false)
}
