/*
Copyright 2025 Pixloom Authors.

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

	"github.com/pixloom/pixloom"
	"github.com/pixloom/pixloom/config"
	"github.com/pixloom/pixloom/database"
	"github.com/pixloom/pixloom/internal/notification"
)

// Pixloom represents the CLI application, encapsulating the root Cobra command.
type Pixloom struct {
	cmd *cobra.Command
}

// pixloomInstance holds the runtime instance and configuration shared by the
// subcommands.
type pixloomInstance struct {
	pixloom *pixloom.Pixloom
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the Pixloom instance before
// any subcommand executes.
func preRun(app *pixloomInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("pixloom.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newPixloom, err := setupPixloom(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.pixloom = newPixloom
		app.cnf = cnf

		return nil
	}
}

// setupPixloom connects the data source and wires a Pixloom instance from it.
func setupPixloom(cfg *config.Configuration) (*pixloom.Pixloom, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newPixloom, err := pixloom.NewPixloom(db)
	if err != nil {
		return nil, fmt.Errorf("error creating pixloom: %v", err)
	}
	return newPixloom, nil
}

// NewCLI assembles the root command and its subcommands.
func NewCLI() *Pixloom {
	var configFile string
	b := &pixloomInstance{}

	var rootCmd = &cobra.Command{
		Use:   "pixloom",
		Short: "Credit-gated AI media backend",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./pixloom.json", "Configuration file for pixloom")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Pixloom{cmd: rootCmd}
}

func (w Pixloom) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
