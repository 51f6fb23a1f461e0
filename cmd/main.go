/*
Copyright 2024 AgentX Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	agentx "github.com/MRT0B13/AgentX"
	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/database"
	"github.com/MRT0B13/AgentX/internal/notification"
)

// CLI encapsulates the root Cobra command.
type CLI struct {
	cmd *cobra.Command
}

// agentxInstance holds the runtime service instance and its configuration,
// shared by all subcommands.
type agentxInstance struct {
	agentx *agentx.AgentX
	cnf    *config.Configuration
}

// recoverPanic logs any panic during program execution and exits.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service instance
// before any command runs.
func preRun(app *agentxInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("agentx.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newAgentX, err := setupAgentX(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.agentx = newAgentX
		app.cnf = cnf

		return nil
	}
}

// setupAgentX connects the data source and builds the service instance.
func setupAgentX(cfg *config.Configuration) (*agentx.AgentX, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newAgentX, err := agentx.NewAgentX(db)
	if err != nil {
		return nil, fmt.Errorf("error creating agentx: %v", err)
	}
	return newAgentX, nil
}

// NewCLI creates the command-line interface for the AgentX application.
func NewCLI() *CLI {
	var configFile string
	b := &agentxInstance{}

	var rootCmd = &cobra.Command{
		Use:   "agentx",
		Short: "LaunchPack orchestration server",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./agentx.json", "Configuration file for agentx")
	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &CLI{cmd: rootCmd}
}

// executeCLI runs the CLI and reports any execution error.
func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
