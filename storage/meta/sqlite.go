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
	"database/sql"

	"github.com/juju/errors"
	_ "modernc.org/sqlite"
)

type SQLite struct {
	db *sql.DB
}

func newSQLite(dataSourceName string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Init() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS artifacts (
	version TEXT PRIMARY KEY,
	metrics TEXT,
	trained_at TIMESTAMP,
	is_active INTEGER NOT NULL DEFAULT 0
);`)
	return errors.Trace(err)
}

func (s *SQLite) Insert(record Record) error {
	_, err := s.db.Exec(`
INSERT INTO artifacts (version, metrics, trained_at, is_active)
VALUES (?, ?, ?, ?)
ON CONFLICT(version) DO UPDATE SET
	metrics = excluded.metrics,
	trained_at = excluded.trained_at,
	is_active = excluded.is_active
`, record.Version, record.Metrics, record.TrainedAt.UTC(), record.IsActive)
	return errors.Trace(err)
}

func (s *SQLite) SetActive(version string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = tx.Exec(`UPDATE artifacts SET is_active = 0 WHERE is_active = 1`); err != nil {
		_ = tx.Rollback()
		return errors.Trace(err)
	}
	result, err := tx.Exec(`UPDATE artifacts SET is_active = 1 WHERE version = ?`, version)
	if err != nil {
		_ = tx.Rollback()
		return errors.Trace(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		_ = tx.Rollback()
		return errors.Trace(err)
	} else if n == 0 {
		_ = tx.Rollback()
		return errors.NotFoundf("artifact %s", version)
	}
	return errors.Trace(tx.Commit())
}

func (s *SQLite) GetActive() (Record, error) {
	var record Record
	err := s.db.QueryRow(`
SELECT version, metrics, trained_at, is_active FROM artifacts WHERE is_active = 1
`).Scan(&record.Version, &record.Metrics, &record.TrainedAt, &record.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, errors.NotFoundf("active artifact")
		}
		return Record{}, errors.Trace(err)
	}
	return record, nil
}

func (s *SQLite) List() ([]Record, error) {
	rs, err := s.db.Query(`
SELECT version, metrics, trained_at, is_active FROM artifacts ORDER BY trained_at DESC
`)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rs.Close()
	var records []Record
	for rs.Next() {
		var record Record
		if err = rs.Scan(&record.Version, &record.Metrics, &record.TrainedAt, &record.IsActive); err != nil {
			return nil, errors.Trace(err)
		}
		records = append(records, record)
	}
	return records, nil
}
