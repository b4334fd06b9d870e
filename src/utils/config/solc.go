package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Solc struct {
	// Directory where solc binaries are cached, keyed by version
	CacheDir string

	// URL of the list of all released solc builds
	ReleaseListURL string

	// Base URL the binaries are downloaded from
	ReleaseBaseURL string

	// Max time for downloading a single binary. 0 means no limit
	DownloadMaxElapsedTime time.Duration

	// Max time between download retries
	DownloadMaxInterval time.Duration

	// Hard wall-clock limit for one compiler subprocess
	CompileTimeout time.Duration
}

func setSolcDefaults() {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	viper.SetDefault("Solc.CacheDir", filepath.Join(cacheDir, "solc-bin"))
	viper.SetDefault("Solc.ReleaseListURL", "https://binaries.soliditylang.org/linux-amd64/list.json")
	viper.SetDefault("Solc.ReleaseBaseURL", "https://binaries.soliditylang.org/linux-amd64")
	viper.SetDefault("Solc.DownloadMaxElapsedTime", "5m")
	viper.SetDefault("Solc.DownloadMaxInterval", "15s")
	viper.SetDefault("Solc.CompileTimeout", "2m")
}
