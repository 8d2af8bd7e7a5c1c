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

package meta

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SQLiteTestSuite struct {
	suite.Suite
	database Database
}

func (s *SQLiteTestSuite) SetupTest() {
	var err error
	s.database, err = Open(filepath.Join(s.T().TempDir(), "meta.db"))
	s.Require().NoError(err)
	s.Require().NoError(s.database.Init())
}

func (s *SQLiteTestSuite) TearDownTest() {
	s.NoError(s.database.Close())
}

func (s *SQLiteTestSuite) TestActivePointer() {
	_, err := s.database.GetActive()
	s.True(errors.Is(err, errors.NotFound))

	older := Record{Version: "v1", Metrics: `{"rmse":0.4}`, TrainedAt: time.Now().Add(-time.Hour)}
	newer := Record{Version: "v2", Metrics: `{"rmse":0.3}`, TrainedAt: time.Now()}
	s.Require().NoError(s.database.Insert(older))
	s.Require().NoError(s.database.Insert(newer))

	s.Require().NoError(s.database.SetActive("v1"))
	active, err := s.database.GetActive()
	s.Require().NoError(err)
	s.Equal("v1", active.Version)
	s.True(active.IsActive)

	// Flipping deactivates the previous version.
	s.Require().NoError(s.database.SetActive("v2"))
	active, err = s.database.GetActive()
	s.Require().NoError(err)
	s.Equal("v2", active.Version)

	records, err := s.database.List()
	s.Require().NoError(err)
	s.Require().Len(s.filterActive(records), 1)
	// Newest first.
	s.Equal("v2", records[0].Version)
}

func (s *SQLiteTestSuite) TestSetActiveUnknownVersion() {
	err := s.database.SetActive("ghost")
	s.True(errors.Is(err, errors.NotFound))
}

func (s *SQLiteTestSuite) TestInsertUpsert() {
	record := Record{Version: "v1", Metrics: `{}`, TrainedAt: time.Now()}
	s.Require().NoError(s.database.Insert(record))
	record.Metrics = `{"rmse":0.1}`
	s.Require().NoError(s.database.Insert(record))
	records, err := s.database.List()
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(`{"rmse":0.1}`, records[0].Metrics)
}

func (s *SQLiteTestSuite) filterActive(records []Record) []Record {
	var active []Record
	for _, record := range records {
		if record.IsActive {
			active = append(active, record)
		}
	}
	return active
}

func TestSQLiteTestSuite(t *testing.T) {
	suite.Run(t, new(SQLiteTestSuite))
}

func TestMetricsJSON(t *testing.T) {
	require.Equal(t, `{"a":1}`, MetricsJSON(map[string]int{"a": 1}))
}
