package cmd

import (
	"github.com/cassc/smart-contract-database-builder/src/utils/solc"

	"github.com/spf13/cobra"
)

func init() {
	downloadSolcCmd.Flags().StringVar(&solcDir, "solc-dir", "", "override the solc binary cache directory")
	RootCmd.AddCommand(downloadSolcCmd)
}

var (
	solcDir string

	downloadSolcCmd = &cobra.Command{
		Use:   "download-solc",
		Short: "Fetch and cache all released solc binaries, skipping the ones already cached",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if solcDir != "" {
				conf.Solc.CacheDir = solcDir
			}

			return solc.NewDownloader(conf).DownloadAll(ctx)
		},
	}
)
