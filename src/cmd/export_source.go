package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/cassc/smart-contract-database-builder/src/utils/contract"
	"github.com/cassc/smart-contract-database-builder/src/utils/logger"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"

	"github.com/spf13/cobra"
)

func init() {
	exportSourceCmd.Flags().StringVar(&exportOutputDir, "output", "", "directory to write the sources to (default: ./<contract-id>)")
	RootCmd.AddCommand(exportSourceCmd)
}

var (
	exportOutputDir string

	exportSourceCmd = &cobra.Command{
		Use:   "export-source <contract-id>",
		Short: "Write a stored contract's sources back to disk, unflattened, for inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id := args[0]

			storage, err := model.NewConnection(ctx, conf)
			if err != nil {
				return
			}
			defer storage.Close()

			stored, err := storage.GetContract(ctx, id)
			if err != nil {
				return
			}
			if stored == nil {
				return fmt.Errorf("no contract with id %s", id)
			}

			dir := exportOutputDir
			if dir == "" {
				dir = filepath.Join(".", id)
			}

			err = contract.WriteSources(dir, stored.Sources)
			if err != nil {
				return
			}

			log := logger.NewSublogger("export-source-cmd")
			log.
				WithField("contract", id).
				WithField("files", len(stored.Sources)).
				WithField("dir", dir).
				Info("Exported contract sources")
			return
		},
	}
)
