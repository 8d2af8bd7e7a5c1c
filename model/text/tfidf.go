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

// Package text scores products by content similarity. Each product's name,
// description and category are folded into a TF-IDF vector; a user's taste
// profile is the interaction-weighted mean of the product vectors, and
// content scores are cosine similarities against it.
package text

import (
	"strings"
	"unicode"

	"github.com/chewxy/math32"

	"github.com/groupmart-io/groupmart/common/floats"
	"github.com/groupmart-io/groupmart/storage/data"
)

// Vectorizer holds the fitted vocabulary, the smoothed inverse document
// frequencies and the L2-normalized product vectors in product index order.
type Vectorizer struct {
	Vocabulary map[string]int
	IDF        []float32
	// Vectors[j] is the normalized TF-IDF vector of product j.
	Vectors [][]float32
}

// Fit builds the vocabulary and product vectors. Vocabulary order follows
// first occurrence across products in index order, so the fit is
// deterministic for a fixed product list.
func Fit(products []data.Product) *Vectorizer {
	v := &Vectorizer{Vocabulary: map[string]int{}}
	docs := make([][]string, len(products))
	for j, product := range products {
		docs[j] = Tokenize(product.Name + " " + product.Description + " " + product.Category)
		for _, token := range docs[j] {
			if _, ok := v.Vocabulary[token]; !ok {
				v.Vocabulary[token] = len(v.Vocabulary)
			}
		}
	}
	// Smoothed IDF, so terms in every document keep a small positive weight.
	df := make([]int, len(v.Vocabulary))
	for _, doc := range docs {
		seen := map[int]struct{}{}
		for _, token := range doc {
			seen[v.Vocabulary[token]] = struct{}{}
		}
		for t := range seen {
			df[t]++
		}
	}
	n := float32(len(docs))
	v.IDF = make([]float32, len(df))
	for t, count := range df {
		v.IDF[t] = math32.Log((n+1)/(float32(count)+1)) + 1
	}
	v.Vectors = make([][]float32, len(docs))
	for j, doc := range docs {
		v.Vectors[j] = v.vector(doc)
	}
	return v
}

func (v *Vectorizer) vector(doc []string) []float32 {
	vec := make([]float32, len(v.Vocabulary))
	if len(doc) == 0 {
		return vec
	}
	for _, token := range doc {
		if t, ok := v.Vocabulary[token]; ok {
			vec[t]++
		}
	}
	floats.MulConst(vec, 1/float32(len(doc)))
	floats.Mul(vec, v.IDF)
	floats.Normalize(vec)
	return vec
}

// Profile builds a user's content profile from their raw interaction row:
// the quantity-weighted mean of the product vectors they bought, normalized.
// A user with no positive quantities gets a zero profile.
func (v *Vectorizer) Profile(row []float32) []float32 {
	profile := make([]float32, len(v.IDF))
	var total float32
	for j, quantity := range row {
		if quantity > 0 && j < len(v.Vectors) {
			floats.MulConstAdd(v.Vectors[j], quantity, profile)
			total += quantity
		}
	}
	if total > 0 {
		floats.Normalize(profile)
	}
	return profile
}

// Scores returns the cosine similarity of a profile against every product,
// already in [0,1] because all vectors are non-negative and normalized.
func (v *Vectorizer) Scores(profile []float32) []float32 {
	scores := make([]float32, len(v.Vectors))
	for j, vec := range v.Vectors {
		scores[j] = floats.Clamp(floats.Dot(profile, vec), 0, 1)
	}
	return scores
}

// Tokenize lowercases and splits on any non-alphanumeric rune.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
