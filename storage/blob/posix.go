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

package blob

import (
	"io"
	"os"
	"path"

	"github.com/juju/errors"
)

// Store is the blob persistence contract for trained model artifacts.
type Store interface {
	// Open a blob for reading.
	Open(name string) (io.ReadCloser, error)
	// Put writes a blob atomically: readers never observe a partial write.
	Put(name string, r io.Reader) error
	// List returns the names of all stored blobs.
	List() ([]string, error)
}

// POSIX stores blobs as files under a directory. Writes go to a temporary
// file first and are renamed into place, so a crashed write never corrupts
// an existing blob.
type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	return os.Open(path.Join(p.dir, name))
}

func (p *POSIX) Put(name string, r io.Reader) error {
	fullPath := path.Join(p.dir, name)
	if err := os.MkdirAll(path.Dir(fullPath), os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	temp, err := os.CreateTemp(path.Dir(fullPath), ".tmp-*")
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = io.Copy(temp, r); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	if err = temp.Close(); err != nil {
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	if err = os.Rename(temp.Name(), fullPath); err != nil {
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	return nil
}

func (p *POSIX) List() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Trace(err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
