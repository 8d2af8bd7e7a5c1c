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

package dataset

// Dict maps string ids to dense indices in insertion order. The ordering is
// the positional contract between training and serving: every matrix built
// from a Dict shares its row/column layout, and the Dict is persisted with
// the artifact, never recomputed.
type Dict struct {
	si map[string]int
	is []string
}

func NewDict() *Dict {
	return &Dict{si: map[string]int{}}
}

// NewDictFromIds rebuilds a Dict from a persisted id list.
func NewDictFromIds(ids []string) *Dict {
	d := NewDict()
	for _, id := range ids {
		d.Add(id)
	}
	return d
}

// Add inserts an id and returns its index. Existing ids keep their index.
func (d *Dict) Add(s string) int {
	if i, ok := d.si[s]; ok {
		return i
	}
	i := len(d.is)
	d.si[s] = i
	d.is = append(d.is, s)
	return i
}

// Id returns the index of an id, or -1 if absent.
func (d *Dict) Id(s string) int {
	if i, ok := d.si[s]; ok {
		return i
	}
	return -1
}

// String returns the id at an index.
func (d *Dict) String(i int) (string, bool) {
	if i < 0 || i >= len(d.is) {
		return "", false
	}
	return d.is[i], true
}

// Count returns the number of ids.
func (d *Dict) Count() int {
	return len(d.is)
}

// Ids returns the ordered id list backing the Dict.
func (d *Dict) Ids() []string {
	ids := make([]string, len(d.is))
	copy(ids, d.is)
	return ids
}
