package cmd

import (
	"fmt"

	"github.com/cassc/smart-contract-database-builder/src/index"
	"github.com/cassc/smart-contract-database-builder/src/utils/logger"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"

	"github.com/spf13/cobra"
)

func init() {
	indexFunctionsCmd.Flags().IntVar(&indexChunkSize, "chunk-size", 0, "contracts compiled and committed per transaction")
	indexFunctionsCmd.Flags().IntVar(&indexWorkers, "workers", 0, "parallel compiler subprocesses within a chunk")
	indexFunctionsCmd.Flags().BoolVar(&indexIgnoreErrors, "ignore-errors", false, "exit 0 even if some contracts failed to compile")
	RootCmd.AddCommand(indexFunctionsCmd)
}

var (
	indexChunkSize    int
	indexWorkers      int
	indexIgnoreErrors bool

	indexFunctionsCmd = &cobra.Command{
		Use:   "index-functions",
		Short: "Compile all pending contracts and extract their functions into the function table",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if indexChunkSize > 0 {
				conf.Indexer.ChunkSize = indexChunkSize
			}
			if indexWorkers > 0 {
				conf.Indexer.NumWorkers = indexWorkers
			}
			if indexIgnoreErrors {
				conf.Indexer.IgnoreErrors = true
			}

			storage, err := model.NewConnection(ctx, conf)
			if err != nil {
				return
			}
			defer storage.Close()

			indexer := index.NewIndexer(conf).WithStorage(storage)

			err = indexer.Start()
			if err != nil {
				return
			}

			select {
			case <-indexer.CtxRunning.Done():
				// All pending contracts processed
			case <-ctx.Done():
				indexer.StopWait()
			}

			err = indexer.Err()
			if err != nil {
				return fmt.Errorf("index-functions failed: %w", err)
			}

			log := logger.NewSublogger("index-functions-cmd")
			log.
				WithField("indexed", indexer.NumIndexed()).
				WithField("failed", indexer.NumFailed()).
				WithField("skipped", indexer.NumSkipped()).
				Info("Indexing finished")

			if indexer.NumFailed() > 0 && !conf.Indexer.IgnoreErrors {
				return fmt.Errorf("%d contracts failed to index", indexer.NumFailed())
			}
			return
		},
	}
)
