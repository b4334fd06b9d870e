package preprocess

import (
	"sync/atomic"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"
	"github.com/cassc/smart-contract-database-builder/src/utils/task"
)

// Store saves normalized contracts in fixed-size chunks.
// SinkTask handles caching data and flushing, inserts are deduplicated on
// the content-derived id so re-ingestion is idempotent.
type Store struct {
	*task.SinkTask[*model.Contract]

	storage  *model.Storage
	inserted atomic.Int64
	total    atomic.Int64
}

func NewStore(config *config.Config) (self *Store) {
	self = new(Store)

	self.SinkTask = task.NewSinkTask[*model.Contract](config, "store").
		WithOnFlush(config.Preprocessor.FlushInterval, self.save).
		WithBatchSize(config.Preprocessor.ChunkSize)
	return
}

func (self *Store) WithStorage(storage *model.Storage) *Store {
	self.storage = storage
	return self
}

func (self *Store) WithInputChannel(input chan *model.Contract) *Store {
	self.SinkTask = self.SinkTask.WithInputChannel(input)
	return self
}

func (self *Store) WithBatchSize(batchSize int) *Store {
	self.SinkTask = self.SinkTask.WithBatchSize(batchSize)
	return self
}

// NumInserted returns how many new contract rows were created
func (self *Store) NumInserted() int64 {
	return self.inserted.Load()
}

// NumProcessed returns how many contracts went through the store,
// duplicates included
func (self *Store) NumProcessed() int64 {
	return self.total.Load()
}

func (self *Store) save(contracts []*model.Contract) error {
	inserted, err := self.storage.InsertContracts(self.Ctx, contracts)
	if err != nil {
		self.Log.WithError(err).Error("Failed to save contracts")
		return err
	}

	self.inserted.Add(inserted)
	self.total.Add(int64(len(contracts)))

	self.Log.
		WithField("len", len(contracts)).
		WithField("new", inserted).
		Debug("Saved contract chunk")
	return nil
}
