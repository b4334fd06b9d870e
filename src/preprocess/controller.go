package preprocess

import (
	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"
	"github.com/cassc/smart-contract-database-builder/src/utils/task"
)

// Controller wires the corpus walk to the chunked database sink
type Controller struct {
	*task.Task

	Loader *Loader
	Store  *Store
}

func NewController(config *config.Config, storage *model.Storage) (self *Controller) {
	self = new(Controller)
	self.Task = task.NewTask(config, "preprocess-controller")

	self.Loader = NewLoader(config)
	self.Store = NewStore(config).
		WithStorage(storage).
		WithInputChannel(self.Loader.Output)

	// Setup everything, will start upon calling Controller.Start()
	self.Task.
		WithSubtask(self.Loader.Task).
		WithSubtask(self.Store.Task)

	// A stopped sink also stops the walk, otherwise the loader would block
	// forever on its output channel after a storage error
	self.Store.Task.WithOnStop(self.Loader.Stop)
	return
}

// Err returns the first error of either stage
func (self *Controller) Err() error {
	if err := self.Loader.Err(); err != nil {
		return err
	}
	return self.Store.Err()
}
