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

import (
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base"
	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/storage/data"
)

// Minimum dataset sizes below which clustering and factorization are
// statistically meaningless.
const (
	MinUsers        = 4
	MinProducts     = 5
	MinInteractions = 10
)

// ErrDataInsufficient is returned when the dataset is below the minimum
// users/products/interactions thresholds. Training aborts before any stage
// runs.
var ErrDataInsufficient = errors.New("insufficient data for training")

// Dataset bundles the ordered index dicts and the dense user-product
// quantity matrix built from the interaction log.
type Dataset struct {
	UserDict    *Dict
	ProductDict *Dict
	// Matrix[i][j] is the summed quantity of product j bought by user i.
	// Negative (refund) quantities are kept here and clipped by consumers
	// that require non-negative input.
	Matrix       [][]float32
	Interactions int
	Users        []data.User
	Products     []data.Product
}

// Build creates a Dataset from ordered user and product lists plus the full
// interaction log. Interactions referencing unknown users or products are
// skipped. Complexity is O(|interactions|).
func Build(users []data.User, products []data.Product, interactions []data.Interaction) (*Dataset, error) {
	if len(users) < MinUsers || len(products) < MinProducts || len(interactions) < MinInteractions {
		return nil, errors.Annotatef(ErrDataInsufficient,
			"%d users (min %d), %d products (min %d), %d interactions (min %d)",
			len(users), MinUsers, len(products), MinProducts, len(interactions), MinInteractions)
	}
	d := &Dataset{
		UserDict:    NewDict(),
		ProductDict: NewDict(),
		Users:       users,
		Products:    products,
	}
	for _, user := range users {
		d.UserDict.Add(user.UserId)
	}
	for _, product := range products {
		d.ProductDict.Add(product.ProductId)
	}
	d.Matrix = base.NewMatrix32(d.UserDict.Count(), d.ProductDict.Count())
	skipped := 0
	for _, interaction := range interactions {
		userIndex := d.UserDict.Id(interaction.UserId)
		productIndex := d.ProductDict.Id(interaction.ProductId)
		if userIndex < 0 || productIndex < 0 {
			skipped++
			continue
		}
		d.Matrix[userIndex][productIndex] += float32(interaction.Quantity)
		d.Interactions++
	}
	if skipped > 0 {
		log.Logger().Debug("skipped interactions outside the index",
			zap.Int("skipped", skipped))
	}
	return d, nil
}

// CountUsers returns the number of users.
func (d *Dataset) CountUsers() int {
	return d.UserDict.Count()
}

// CountProducts returns the number of products.
func (d *Dataset) CountProducts() int {
	return d.ProductDict.Count()
}

// Row returns the raw interaction row of one user.
func (d *Dataset) Row(userIndex int) []float32 {
	return d.Matrix[userIndex]
}

// NonNegativeMatrix returns a copy of the matrix with negative quantities
// clipped to zero, as required by non-negative factorization.
func (d *Dataset) NonNegativeMatrix() [][]float32 {
	return lo.Map(d.Matrix, func(row []float32, _ int) []float32 {
		clipped := make([]float32, len(row))
		for i, v := range row {
			if v > 0 {
				clipped[i] = v
			}
		}
		return clipped
	})
}
