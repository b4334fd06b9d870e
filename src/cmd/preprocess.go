package cmd

import (
	"errors"
	"fmt"

	"github.com/cassc/smart-contract-database-builder/src/preprocess"
	"github.com/cassc/smart-contract-database-builder/src/utils/logger"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"

	"github.com/spf13/cobra"
)

func init() {
	preProcessCmd.Flags().StringVar(&etherscanContractsRoot, "etherscan-contracts-root", "", "root directory of per-contract Etherscan JSON bundles")
	preProcessCmd.Flags().StringVar(&plainContractsRoot, "plain-contracts-root", "", "root directory of a bulk dataset export (contracts stored alongside metadata.json)")
	preProcessCmd.Flags().IntVar(&preProcessChunkSize, "chunk-size", 0, "contracts inserted per transaction")
	preProcessCmd.Flags().BoolVar(&preProcessIgnoreErrors, "ignore-errors", false, "log and skip malformed records instead of aborting")
	RootCmd.AddCommand(preProcessCmd)
}

var (
	etherscanContractsRoot string
	plainContractsRoot     string
	preProcessChunkSize    int
	preProcessIgnoreErrors bool

	preProcessCmd = &cobra.Command{
		Use:   "pre-process",
		Short: "Normalize a corpus of verified contracts into the contract table",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if etherscanContractsRoot == "" && plainContractsRoot == "" {
				return errors.New("pass --etherscan-contracts-root or --plain-contracts-root")
			}

			if preProcessChunkSize > 0 {
				conf.Preprocessor.ChunkSize = preProcessChunkSize
			}
			if preProcessIgnoreErrors {
				conf.Preprocessor.IgnoreErrors = true
			}

			storage, err := model.NewConnection(ctx, conf)
			if err != nil {
				return
			}
			defer storage.Close()

			controller := preprocess.NewController(conf, storage)
			if etherscanContractsRoot != "" {
				controller.Loader.WithEtherscanRoot(etherscanContractsRoot)
			} else {
				controller.Loader.WithCorpusRoot(plainContractsRoot)
			}

			err = controller.Start()
			if err != nil {
				return
			}

			select {
			case <-controller.CtxRunning.Done():
				// Corpus fully walked and flushed
			case <-ctx.Done():
				controller.StopWait()
			}

			err = controller.Err()
			if err != nil {
				return fmt.Errorf("pre-process failed: %w", err)
			}

			log := logger.NewSublogger("pre-process-cmd")
			log.
				WithField("processed", controller.Store.NumProcessed()).
				WithField("new", controller.Store.NumInserted()).
				WithField("skipped", controller.Loader.NumSkipped()).
				Info("Pre-processing finished")
			return
		},
	}
)
