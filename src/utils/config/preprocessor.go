package config

import (
	"time"

	"github.com/spf13/viper"
)

type Preprocessor struct {
	// How many contracts are inserted in one transaction
	ChunkSize int

	// How often an insert is triggered even if the chunk isn't full
	FlushInterval time.Duration

	// Skip records that fail normalization instead of aborting the run
	IgnoreErrors bool
}

func setPreprocessorDefaults() {
	viper.SetDefault("Preprocessor.ChunkSize", "100")
	viper.SetDefault("Preprocessor.FlushInterval", "1s")
	viper.SetDefault("Preprocessor.IgnoreErrors", "false")
}
