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

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base/log"
)

// Config is the configuration of the recommendation engine.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Cluster   ClusterConfig   `mapstructure:"cluster"`
	CF        CFConfig        `mapstructure:"cf"`
	Hybrid    HybridConfig    `mapstructure:"hybrid"`
	ColdStart ColdStartConfig `mapstructure:"cold_start"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// DataConfig controls dataset assembly.
type DataConfig struct {
	// TestRatio is the interaction hold-out ratio for offline evaluation.
	// Zero disables the hold-out.
	TestRatio float64 `mapstructure:"test_ratio" validate:"gte=0,lt=1"`
	// Seed drives every randomized step of a run so repeated runs on the
	// same snapshot produce identical artifacts.
	Seed int64 `mapstructure:"seed"`
}

// ClusterConfig controls user segmentation.
type ClusterConfig struct {
	KMin     int `mapstructure:"k_min" validate:"gte=2"`
	KMax     int `mapstructure:"k_max" validate:"gtefield=KMin"`
	Restarts int `mapstructure:"restarts" validate:"gt=0"`
	MaxIter  int `mapstructure:"max_iter" validate:"gt=0"`
}

// CFConfig controls collaborative filtering.
type CFConfig struct {
	NFactors int     `mapstructure:"n_factors" validate:"gt=0"`
	NEpochs  int     `mapstructure:"n_epochs" validate:"gt=0"`
	InitLow  float32 `mapstructure:"init_low" validate:"gte=0"`
	InitHigh float32 `mapstructure:"init_high" validate:"gtfield=InitLow"`
}

// HybridConfig controls score fusion and contextual boosts.
type HybridConfig struct {
	CFWeight         float32 `mapstructure:"cf_weight" validate:"gte=0,lte=1"`
	CBFWeight        float32 `mapstructure:"cbf_weight" validate:"gte=0,lte=1"`
	PopularityWeight float32 `mapstructure:"popularity_weight" validate:"gte=0,lte=1"`
	// HighProgress and MidProgress are fulfillment thresholds for the
	// almost-complete and half-complete boosts.
	HighProgress      float64 `mapstructure:"high_progress" validate:"gt=0,lte=1"`
	MidProgress       float64 `mapstructure:"mid_progress" validate:"gt=0,ltefield=HighProgress"`
	HighProgressBoost float32 `mapstructure:"high_progress_boost" validate:"gte=0"`
	MidProgressBoost  float32 `mapstructure:"mid_progress_boost" validate:"gte=0"`
	// DeadlineDays marks a candidate as closing soon.
	DeadlineDays  float64 `mapstructure:"deadline_days" validate:"gt=0"`
	DeadlineBoost float32 `mapstructure:"deadline_boost" validate:"gte=0"`
	// SavingsThreshold marks a deal as high savings. It affects explanations
	// only, never the score.
	SavingsThreshold float64 `mapstructure:"savings_threshold" validate:"gte=0,lte=1"`
}

// ColdStartConfig controls profile-similarity recommendations.
type ColdStartConfig struct {
	MinSimilarity float64 `mapstructure:"min_similarity" validate:"gte=0,lte=1"`
	MinNeighbors  int     `mapstructure:"min_neighbors" validate:"gt=0"`
	MaxNeighbors  int     `mapstructure:"max_neighbors" validate:"gtefield=MinNeighbors"`
}

// RecommendConfig controls the serving surface.
type RecommendConfig struct {
	TopK int `mapstructure:"top_k" validate:"gt=0"`
}

// StorageConfig locates artifact blobs and metadata.
type StorageConfig struct {
	BlobPath string `mapstructure:"blob_path" validate:"required"`
	MetaPath string `mapstructure:"meta_path" validate:"required"`
}

func setDefault() {
	// [data]
	viper.SetDefault("data.test_ratio", 0.0)
	viper.SetDefault("data.seed", 42)
	// [cluster]
	viper.SetDefault("cluster.k_min", 2)
	viper.SetDefault("cluster.k_max", 9)
	viper.SetDefault("cluster.restarts", 10)
	viper.SetDefault("cluster.max_iter", 300)
	// [cf]
	viper.SetDefault("cf.n_factors", 8)
	viper.SetDefault("cf.n_epochs", 200)
	viper.SetDefault("cf.init_low", 0.01)
	viper.SetDefault("cf.init_high", 1.0)
	// [hybrid]
	viper.SetDefault("hybrid.cf_weight", 0.6)
	viper.SetDefault("hybrid.cbf_weight", 0.4)
	viper.SetDefault("hybrid.popularity_weight", 0.1)
	viper.SetDefault("hybrid.high_progress", 0.75)
	viper.SetDefault("hybrid.mid_progress", 0.5)
	viper.SetDefault("hybrid.high_progress_boost", 0.10)
	viper.SetDefault("hybrid.mid_progress_boost", 0.05)
	viper.SetDefault("hybrid.deadline_days", 3)
	viper.SetDefault("hybrid.deadline_boost", 0.05)
	viper.SetDefault("hybrid.savings_threshold", 0.2)
	// [cold_start]
	viper.SetDefault("cold_start.min_similarity", 0.3)
	viper.SetDefault("cold_start.min_neighbors", 20)
	viper.SetDefault("cold_start.max_neighbors", 50)
	// [recommend]
	viper.SetDefault("recommend.top_k", 10)
	// [storage]
	viper.SetDefault("storage.blob_path", "groupmart_data/blobs")
	viper.SetDefault("storage.meta_path", "groupmart_data/meta.db")
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	setDefault()
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		log.Logger().Panic("failed to unmarshal default config", zap.Error(err))
	}
	return &conf
}

// LoadConfig loads the configuration from a TOML file and the GROUPMART_*
// environment. Environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	setDefault()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	viper.SetEnvPrefix("groupmart")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks field constraints and cross-field relations.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Trace(err)
	}
	weightSum := config.Hybrid.CFWeight + config.Hybrid.CBFWeight
	if weightSum <= 0 {
		return errors.Errorf("cf_weight and cbf_weight must not both be zero")
	}
	return nil
}

// LoadDefaultIfNil returns the default configuration if nil.
func (config *Config) LoadDefaultIfNil() *Config {
	if config == nil {
		return GetDefaultConfig()
	}
	return config
}
