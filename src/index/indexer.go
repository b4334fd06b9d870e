package index

import (
	"sync"
	"sync/atomic"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"
	"github.com/cassc/smart-contract-database-builder/src/utils/solc"
	"github.com/cassc/smart-contract-database-builder/src/utils/task"
)

// Indexer drives compilation and function extraction over all pending
// contracts, chunk by chunk. Contracts within a chunk are compiled in
// parallel on the worker pool, workers never touch storage, the chunk's
// results and status flips are committed in a single transaction by the
// indexer itself. Cancellation is safe at chunk boundaries: an in-flight
// chunk either commits whole or is abandoned whole.
type Indexer struct {
	*task.Task

	storage   *model.Storage
	compiler  *solc.Compiler
	extractor *Extractor

	indexed atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64

	mtx sync.Mutex
	err error
}

func NewIndexer(config *config.Config) (self *Indexer) {
	self = new(Indexer)
	self.Task = task.NewTask(config, "indexer").
		WithWorkerPool(config.Indexer.NumWorkers).
		WithSubtaskFunc(self.run)

	self.compiler = solc.NewCompiler(config)
	self.extractor = NewExtractor()
	return
}

func (self *Indexer) WithStorage(storage *model.Storage) *Indexer {
	self.storage = storage
	return self
}

func (self *Indexer) WithCompiler(compiler *solc.Compiler) *Indexer {
	self.compiler = compiler
	return self
}

// NumIndexed returns how many contracts were successfully indexed
func (self *Indexer) NumIndexed() int64 {
	return self.indexed.Load()
}

// NumFailed returns how many contracts ended up failed
func (self *Indexer) NumFailed() int64 {
	return self.failed.Load()
}

// NumSkipped returns how many contracts were skipped as not indexable
func (self *Indexer) NumSkipped() int64 {
	return self.skipped.Load()
}

// Err returns the storage error that aborted the run, if any
func (self *Indexer) Err() error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.err
}

func (self *Indexer) fail(err error) error {
	self.mtx.Lock()
	if self.err == nil {
		self.err = err
	}
	self.mtx.Unlock()
	return err
}

func (self *Indexer) run() (err error) {
	chunkSize := self.Config.Indexer.ChunkSize

	for {
		if self.Ctx.Err() != nil {
			return nil
		}

		contracts, err := self.storage.GetPendingContracts(self.Ctx, chunkSize)
		if err != nil {
			// No safe partial state to continue from
			return self.fail(err)
		}
		if len(contracts) == 0 {
			break
		}

		results := self.processChunk(contracts)
		if self.IsStopping.Load() {
			// Abandon the in-flight chunk, nothing was committed
			self.Log.WithField("len", len(contracts)).Warn("Stopping, chunk abandoned")
			return nil
		}

		err = self.storage.CommitChunk(self.Ctx, results)
		if err != nil {
			return self.fail(err)
		}

		self.Log.
			WithField("indexed", self.indexed.Load()).
			WithField("failed", self.failed.Load()).
			WithField("skipped", self.skipped.Load()).
			Info("Committed chunk")
	}

	self.Log.
		WithField("indexed", self.indexed.Load()).
		WithField("failed", self.failed.Load()).
		WithField("skipped", self.skipped.Load()).
		Info("Finished indexing")
	return nil
}

// processChunk compiles a chunk in parallel and gathers the per-contract
// results. Order within the chunk doesn't matter, results are collected
// before the single transactional write.
func (self *Indexer) processChunk(contracts []*model.Contract) (results []*model.ContractResult) {
	resultChannel := make(chan *model.ContractResult, len(contracts))

	var wg sync.WaitGroup
	for _, contract := range contracts {
		contract := contract
		wg.Add(1)
		self.Workers.Submit(func() {
			defer wg.Done()
			resultChannel <- self.process(contract)
		})
	}
	wg.Wait()
	close(resultChannel)

	for result := range resultChannel {
		results = append(results, result)
	}
	return
}

func (self *Indexer) process(contract *model.Contract) (result *model.ContractResult) {
	result = &model.ContractResult{ContractId: contract.Id}

	if contract.SourceType == model.SourceTypeVyper {
		// Recorded during pre-process but not compilable here. Not a
		// failure, the exit code stays clean.
		self.Log.WithField("contract", contract.Id).Debug("Skipping vyper contract")
		result.Status = model.StatusSkipped
		self.skipped.Add(1)
		return
	}

	output, err := self.compiler.Compile(self.Ctx, contract)
	if err != nil {
		if self.Ctx.Err() != nil {
			// Interrupted, not a compile failure. The chunk is abandoned
			// and the contract stays pending.
			result.Status = model.StatusPending
			return
		}
		self.log(contract, err.Error())
		result.Status = model.StatusFailed
		self.failed.Add(1)
		return
	}

	functions, err := self.extractor.Extract(contract, output)
	if err != nil {
		self.log(contract, err.Error())
		result.Status = model.StatusFailed
		self.failed.Add(1)
		return
	}

	result.Status = model.StatusIndexed
	result.Functions = functions
	self.indexed.Add(1)
	return
}

func (self *Indexer) log(contract *model.Contract, reason string) {
	self.Log.
		WithField("contract", contract.Id).
		WithField("name", contract.Name).
		WithField("reason", reason).
		Error("Failed to index contract")
}
