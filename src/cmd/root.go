package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/logger"

	"github.com/spf13/cobra"
)

var (
	RootCmd = &cobra.Command{
		Use:   "smart-contract-database-builder",
		Short: "Builds a queryable DuckDB database of verified smart contracts and their functions",

		// All child commands will use this
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			// Setup a context that gets cancelled upon SIGINT
			ctx, cancel = context.WithCancel(context.Background())

			signalChannel = make(chan os.Signal, 1)
			signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)
			go func() {
				select {
				case <-signalChannel:
					cancel()
				case <-ctx.Done():
				}
			}()

			// Load configuration
			conf, err = config.Load(cfgFile)
			if err != nil {
				return
			}

			// The database file location: flag wins, then the DUCKDB_PATH
			// environment variable, then the config file
			if duckdbPath != "" {
				conf.Database.Path = duckdbPath
			} else if env := os.Getenv("DUCKDB_PATH"); env != "" {
				conf.Database.Path = env
			}
			if conf.Database.Path == "" {
				return errors.New("no database file, pass --duckdb-path or set DUCKDB_PATH")
			}

			// Setup logging
			err = logger.Init(conf)
			if err != nil {
				return
			}
			return
		},

		PersistentPostRunE: func(cmd *cobra.Command, args []string) (err error) {
			signal.Stop(signalChannel)
			cancel()
			return
		},
		SilenceUsage: true,
	}

	// Configuration
	conf       *config.Config
	cfgFile    string
	duckdbPath string

	// Context setup
	ctx           context.Context
	cancel        context.CancelFunc
	signalChannel chan os.Signal
)

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path")
	RootCmd.PersistentFlags().StringVar(&duckdbPath, "duckdb-path", "", "DuckDB database file path (fallback: DUCKDB_PATH env)")
}
