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

package artifact

import (
	"bytes"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/storage/blob"
	"github.com/groupmart-io/groupmart/storage/meta"
)

// Save persists the artifact blob and flips the active pointer to it. The
// blob write is atomic and the pointer only moves after the blob is fully
// on disk, so a crash mid-save leaves the previous artifact active.
func Save(a *Artifact, blobs blob.Store, metadata meta.Database) error {
	buf := bytes.NewBuffer(nil)
	if err := a.Marshal(buf); err != nil {
		return errors.Trace(err)
	}
	if err := blobs.Put(a.Version, buf); err != nil {
		return errors.Trace(err)
	}
	record := meta.Record{
		Version:   a.Version,
		Metrics:   meta.MetricsJSON(a.Metrics),
		TrainedAt: a.TrainedAt,
	}
	if err := metadata.Insert(record); err != nil {
		return errors.Trace(err)
	}
	if err := metadata.SetActive(a.Version); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("saved artifact",
		zap.String("version", a.Version),
		zap.Int("users", len(a.UserIds)),
		zap.Int("products", len(a.ProductIds)))
	return nil
}

// LoadActive loads the currently active artifact, or a not-found error when
// no run has completed yet.
func LoadActive(blobs blob.Store, metadata meta.Database) (*Artifact, error) {
	record, err := metadata.GetActive()
	if err != nil {
		return nil, errors.Trace(err)
	}
	reader, err := blobs.Open(record.Version)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer reader.Close()
	a := new(Artifact)
	if err := a.Unmarshal(reader); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("loaded artifact", zap.String("version", a.Version))
	return a, nil
}
