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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/groupmart-io/groupmart/base/log"
	"github.com/groupmart-io/groupmart/config"
	"github.com/groupmart-io/groupmart/engine"
	"github.com/groupmart-io/groupmart/storage/data"
)

var rootCommand = &cobra.Command{
	Use:   "groupmart",
	Short: "Recommendation engine for group purchases",
}

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train a new model from a marketplace snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		e, cleanup := openEngine(cmd)
		defer cleanup()
		a, err := e.Train(context.Background())
		if err != nil {
			log.Logger().Fatal("training failed", zap.Error(err))
		}
		fmt.Println(a.Version)
	},
}

var recommendCommand = &cobra.Command{
	Use:   "recommend USER_ID",
	Short: "Print ranked candidates for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, cleanup := openEngine(cmd)
		defer cleanup()
		recommendations, err := e.Recommend(context.Background(), args[0])
		if err != nil {
			log.Logger().Fatal("recommendation failed", zap.Error(err))
		}
		printJSON(recommendations)
	},
}

var evaluateCommand = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure the active model against a held-out share of the log",
	Run: func(cmd *cobra.Command, args []string) {
		e, cleanup := openEngine(cmd)
		defer cleanup()
		ratio, _ := cmd.Flags().GetFloat64("test-ratio")
		evaluation, err := e.Evaluate(context.Background(), ratio)
		if err != nil {
			log.Logger().Fatal("evaluation failed", zap.Error(err))
		}
		printJSON(evaluation)
	},
}

func openEngine(cmd *cobra.Command) (*engine.Engine, func()) {
	debug, _ := cmd.Flags().GetBool("debug")
	log.SetLogger(cmd.Flags(), debug)

	configPath, _ := cmd.Flags().GetString("config")
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	snapshotPath, _ := cmd.Flags().GetString("snapshot")
	database, err := data.LoadSnapshot(snapshotPath)
	if err != nil {
		log.Logger().Fatal("failed to load snapshot", zap.Error(err))
	}
	e, err := engine.Open(conf, database)
	if err != nil {
		log.Logger().Fatal("failed to open engine", zap.Error(err))
	}
	return e, func() {
		if err := e.Close(); err != nil {
			log.Logger().Error("failed to close engine", zap.Error(err))
		}
		log.CloseLogger()
	}
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		log.Logger().Fatal("failed to encode output", zap.Error(err))
	}
}

func init() {
	rootCommand.PersistentFlags().String("config", "", "configuration file path")
	rootCommand.PersistentFlags().String("snapshot", "snapshot.json", "marketplace snapshot path")
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(rootCommand.PersistentFlags())
	evaluateCommand.Flags().Float64("test-ratio", 0.2, "held-out interaction ratio")
	rootCommand.AddCommand(trainCommand, recommendCommand, evaluateCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
