package preprocess

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/contract"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"
	"github.com/cassc/smart-contract-database-builder/src/utils/task"
)

// Loader walks a corpus root, normalizes every raw record it finds and
// forwards the canonical contracts to the store. The output channel is
// closed when the walk finishes, which lets the whole pipeline wind down.
type Loader struct {
	*task.Task

	root         string
	etherscan    bool
	ignoreErrors bool

	loaded  atomic.Int64
	skipped atomic.Int64

	mtx sync.Mutex
	err error

	Output chan *model.Contract
}

func NewLoader(config *config.Config) (self *Loader) {
	self = new(Loader)
	self.Output = make(chan *model.Contract)
	self.ignoreErrors = config.Preprocessor.IgnoreErrors

	self.Task = task.NewTask(config, "loader").
		WithSubtaskFunc(self.run)
	return
}

// WithCorpusRoot points the loader at a bulk dataset export: folders holding
// metadata.json next to sources in any of the four record layouts
func (self *Loader) WithCorpusRoot(root string) *Loader {
	self.root = root
	self.etherscan = false
	return self
}

// WithEtherscanRoot points the loader at per-contract Etherscan bundles:
// folders holding metadata.json and contract.json only
func (self *Loader) WithEtherscanRoot(root string) *Loader {
	self.root = root
	self.etherscan = true
	return self
}

func (self *Loader) WithIgnoreErrors(ignoreErrors bool) *Loader {
	self.ignoreErrors = ignoreErrors
	return self
}

// NumLoaded returns how many records were normalized and forwarded
func (self *Loader) NumLoaded() int64 {
	return self.loaded.Load()
}

// NumSkipped returns how many malformed records were skipped
func (self *Loader) NumSkipped() int64 {
	return self.skipped.Load()
}

// Err returns the error that aborted the walk in strict mode, if any
func (self *Loader) Err() error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.err
}

func (self *Loader) run() (err error) {
	defer close(self.Output)

	err = filepath.WalkDir(self.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if self.IsStopping.Load() {
			return filepath.SkipAll
		}
		if !entry.IsDir() {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(path, "metadata.json")); statErr != nil {
			return nil
		}

		normalized, normErr := self.normalize(path)
		if normErr != nil {
			if self.ignoreErrors {
				self.Log.WithError(normErr).WithField("path", path).Warn("Skipping malformed record")
				self.skipped.Add(1)
				return fs.SkipDir
			}
			// Strict mode, first failure aborts the whole run
			return normErr
		}

		select {
		case self.Output <- normalized:
			self.loaded.Add(1)
		case <-self.StopChannel:
			return filepath.SkipAll
		}

		// Record folders don't nest
		return fs.SkipDir
	})
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		self.mtx.Lock()
		self.err = err
		self.mtx.Unlock()
		return err
	}

	self.Log.
		WithField("loaded", self.loaded.Load()).
		WithField("skipped", self.skipped.Load()).
		Info("Finished walking corpus")
	return nil
}

func (self *Loader) normalize(path string) (*model.Contract, error) {
	if self.etherscan {
		return contract.NormalizeEtherscanFolder(path)
	}
	return contract.NormalizeFolder(path)
}
