package preprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/contract"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

type ControllerTestSuite struct {
	suite.Suite
	ctx     context.Context
	config  *config.Config
	storage *model.Storage
	corpus  string
}

func (s *ControllerTestSuite) SetupTest() {
	s.ctx = context.Background()

	s.config = config.Default()
	s.config.Database.Path = filepath.Join(s.T().TempDir(), "contracts.duckdb")
	s.config.Preprocessor.ChunkSize = 2
	s.config.Preprocessor.FlushInterval = 100 * time.Millisecond

	var err error
	s.storage, err = model.NewConnection(s.ctx, s.config)
	require.Nil(s.T(), err)

	s.corpus = s.T().TempDir()
}

func (s *ControllerTestSuite) TearDownTest() {
	s.storage.Close()
}

func (s *ControllerTestSuite) record(name, metadata string, files map[string]string) {
	dir := filepath.Join(s.corpus, name)
	err := os.MkdirAll(dir, 0o755)
	require.Nil(s.T(), err)
	err = os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(metadata), 0o644)
	require.Nil(s.T(), err)
	for filename, content := range files {
		err = os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644)
		require.Nil(s.T(), err)
	}
}

func (s *ControllerTestSuite) solidityRecord(name, source string) {
	s.record(name,
		`{"ContractName": "Counter", "CompilerVersion": "v0.8.19+commit.7dd6d404"}`,
		map[string]string{"main.sol": source})
}

func (s *ControllerTestSuite) runController(setup func(*Loader)) *Controller {
	controller := NewController(s.config, s.storage)
	setup(controller.Loader)

	err := controller.Start()
	require.Nil(s.T(), err)

	select {
	case <-controller.CtxRunning.Done():
	case <-time.After(30 * time.Second):
		s.T().Fatal("controller did not finish")
	}
	return controller
}

func (s *ControllerTestSuite) TestIngestCorpus() {
	s.solidityRecord("record-0", "contract Counter { uint public a; }")
	s.solidityRecord("record-1", "contract Counter { uint public b; }")
	s.solidityRecord("record-2", "contract Counter { uint public c; }")

	controller := s.runController(func(loader *Loader) {
		loader.WithCorpusRoot(s.corpus)
	})

	require.Nil(s.T(), controller.Err())
	assert.EqualValues(s.T(), 3, controller.Loader.NumLoaded())
	assert.EqualValues(s.T(), 0, controller.Loader.NumSkipped())
	assert.EqualValues(s.T(), 3, controller.Store.NumInserted())

	count, err := s.storage.CountContracts(s.ctx)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 3, count)

	id := contract.SimpleHash("contract Counter { uint public a; }")
	stored, err := s.storage.GetContract(s.ctx, id)
	require.Nil(s.T(), err)
	require.NotNil(s.T(), stored)
	assert.Equal(s.T(), "Counter", stored.Name)
	assert.Equal(s.T(), model.StatusPending, stored.Status)
}

// Re-ingesting the same corpus creates no new rows
func (s *ControllerTestSuite) TestIngestIdempotent() {
	s.solidityRecord("record-0", "contract Counter { uint public a; }")
	s.solidityRecord("record-1", "contract Counter { uint public b; }")

	first := s.runController(func(loader *Loader) {
		loader.WithCorpusRoot(s.corpus)
	})
	require.Nil(s.T(), first.Err())
	assert.EqualValues(s.T(), 2, first.Store.NumInserted())

	second := s.runController(func(loader *Loader) {
		loader.WithCorpusRoot(s.corpus)
	})
	require.Nil(s.T(), second.Err())
	assert.EqualValues(s.T(), 2, second.Store.NumProcessed())
	assert.EqualValues(s.T(), 0, second.Store.NumInserted())

	count, err := s.storage.CountContracts(s.ctx)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 2, count)
}

func (s *ControllerTestSuite) TestMalformedRecordSkipped() {
	s.solidityRecord("record-0", "contract Counter {}")
	s.record("record-1", `{"ContractName": `, nil)

	controller := s.runController(func(loader *Loader) {
		loader.WithCorpusRoot(s.corpus).WithIgnoreErrors(true)
	})

	require.Nil(s.T(), controller.Err())
	assert.EqualValues(s.T(), 1, controller.Loader.NumLoaded())
	assert.EqualValues(s.T(), 1, controller.Loader.NumSkipped())
}

// Strict mode aborts the walk on the first malformed record
func (s *ControllerTestSuite) TestMalformedRecordStrict() {
	s.record("record-0", `{"ContractName": `, nil)

	controller := s.runController(func(loader *Loader) {
		loader.WithCorpusRoot(s.corpus).WithIgnoreErrors(false)
	})

	require.ErrorIs(s.T(), controller.Err(), contract.ErrMalformedRecord)

	count, err := s.storage.CountContracts(s.ctx)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 0, count)
}

// A storage error aborts the whole pipeline instead of stalling the walk
func (s *ControllerTestSuite) TestStorageErrorAborts() {
	s.solidityRecord("record-0", "contract Counter { uint public a; }")
	s.solidityRecord("record-1", "contract Counter { uint public b; }")
	s.solidityRecord("record-2", "contract Counter { uint public c; }")
	s.config.Preprocessor.ChunkSize = 1

	// Closed database makes the first flush fail
	require.Nil(s.T(), s.storage.Close())

	controller := NewController(s.config, s.storage)
	controller.Loader.WithCorpusRoot(s.corpus)

	err := controller.Start()
	require.Nil(s.T(), err)

	select {
	case <-controller.CtxRunning.Done():
	case <-time.After(10 * time.Second):
		s.T().Fatal("pipeline stalled on a storage error")
	}

	require.NotNil(s.T(), controller.Err())
	assert.EqualValues(s.T(), 0, controller.Store.NumInserted())
}

func (s *ControllerTestSuite) TestIngestEtherscanBundles() {
	s.record("record-0",
		`{"ContractName": "Counter", "CompilerVersion": "v0.8.19+commit.7dd6d404"}`,
		map[string]string{"contract.json": `{
			"language": "Solidity",
			"sources": {"contracts/Counter.sol": {"content": "contract Counter {}"}}
		}`})
	// Plain layout is rejected under the etherscan root
	s.solidityRecord("record-1", "contract Counter {}")

	controller := s.runController(func(loader *Loader) {
		loader.WithEtherscanRoot(s.corpus).WithIgnoreErrors(true)
	})

	require.Nil(s.T(), controller.Err())
	assert.EqualValues(s.T(), 1, controller.Loader.NumLoaded())
	assert.EqualValues(s.T(), 1, controller.Loader.NumSkipped())

	count, err := s.storage.CountContractsByStatus(s.ctx, model.StatusPending)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 1, count)
}
