package solc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/logger"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Resolver maps an exact compiler version to a locally cached executable.
// It never downloads anything, a cache miss fails fast with ErrMissingBinary.
// The disk cache is read-only during indexing so the resolver is safe to
// share between workers.
type Resolver struct {
	config *config.Config
	log    *logrus.Entry

	// Memoizes successful lookups, one stat per version instead of one per
	// contract
	memo *cache.Cache
}

func NewResolver(config *config.Config) (self *Resolver) {
	self = new(Resolver)
	self.config = config
	self.log = logger.NewSublogger("solc-resolver")
	self.memo = cache.New(cache.NoExpiration, 0)
	return
}

// Resolve returns the path of the executable for the given declared version
func (self *Resolver) Resolve(rawVersion string) (path string, err error) {
	version, err := ParseVersion(rawVersion)
	if err != nil {
		return
	}

	if cached, ok := self.memo.Get(version); ok {
		return cached.(string), nil
	}

	path = filepath.Join(self.config.Solc.CacheDir, BinaryName(version))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: version %s, run download-solc first", ErrMissingBinary, version)
	}

	self.memo.SetDefault(version, path)
	return
}
