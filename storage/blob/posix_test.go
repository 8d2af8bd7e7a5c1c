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
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPOSIXPutOpenList(t *testing.T) {
	store := NewPOSIX(t.TempDir() + "/blobs")
	require.NoError(t, store.Put("v1", bytes.NewBufferString("first")))
	require.NoError(t, store.Put("v2", bytes.NewBufferString("second")))
	// Overwrite is atomic and replaces content.
	require.NoError(t, store.Put("v1", bytes.NewBufferString("rewritten")))

	reader, err := store.Open("v1")
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "rewritten", string(content))

	names, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v1", "v2"}, names)

	_, err = store.Open("ghost")
	assert.Error(t, err)
}
