package config

import (
	"github.com/spf13/viper"
)

type Indexer struct {
	// How many pending contracts are processed and committed per chunk
	ChunkSize int

	// Worker pool size for parallel compilation within a chunk
	NumWorkers int

	// Exit with code 0 even if some contracts failed to index
	IgnoreErrors bool
}

func setIndexerDefaults() {
	viper.SetDefault("Indexer.ChunkSize", "100")
	viper.SetDefault("Indexer.NumWorkers", "8")
	viper.SetDefault("Indexer.IgnoreErrors", "false")
}
