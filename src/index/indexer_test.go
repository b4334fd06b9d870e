package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"
	"github.com/cassc/smart-contract-database-builder/src/utils/solc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestIndexerTestSuite(t *testing.T) {
	suite.Run(t, new(IndexerTestSuite))
}

type IndexerTestSuite struct {
	suite.Suite
	ctx     context.Context
	config  *config.Config
	storage *model.Storage
}

func (s *IndexerTestSuite) SetupTest() {
	s.ctx = context.Background()

	s.config = config.Default()
	s.config.Database.Path = filepath.Join(s.T().TempDir(), "contracts.duckdb")
	s.config.Solc.CacheDir = s.T().TempDir()
	s.config.Solc.CompileTimeout = 5 * time.Second
	s.config.Indexer.ChunkSize = 4
	s.config.Indexer.NumWorkers = 4

	var err error
	s.storage, err = model.NewConnection(s.ctx, s.config)
	require.Nil(s.T(), err)

	// Cached compiler answers with the Counter fixture for every input
	script := fmt.Sprintf("#!/bin/sh\ncat > /dev/null\ncat <<'EOF'\n%s\nEOF\n", extractorFixture)
	err = os.WriteFile(filepath.Join(s.config.Solc.CacheDir, solc.BinaryName("0.8.19")), []byte(script), 0o755)
	require.Nil(s.T(), err)
}

func (s *IndexerTestSuite) TearDownTest() {
	s.storage.Close()
}

func (s *IndexerTestSuite) contract(id string, sourceType model.SourceType) *model.Contract {
	name := "main.sol"
	if sourceType == model.SourceTypeVyper {
		name = "main.vy"
	}
	return &model.Contract{
		Id:              id,
		Name:            "Counter",
		CompilerVersion: "0.8.19",
		Sources:         []model.SourceFile{{Name: name, Content: "contract Counter {}"}},
		SourceType:      sourceType,
		Status:          model.StatusPending,
	}
}

func (s *IndexerTestSuite) runIndexer() *Indexer {
	indexer := NewIndexer(s.config).WithStorage(s.storage)
	err := indexer.Start()
	require.Nil(s.T(), err)

	select {
	case <-indexer.CtxRunning.Done():
	case <-time.After(30 * time.Second):
		s.T().Fatal("indexer did not finish")
	}
	return indexer
}

func (s *IndexerTestSuite) TestIndexAllPending() {
	contracts := make([]*model.Contract, 0, 10)
	for i := 0; i < 10; i++ {
		sourceType := model.SourceTypeSingleSolidity
		if i == 5 {
			sourceType = model.SourceTypeVyper
		}
		contracts = append(contracts, s.contract(fmt.Sprintf("contract-%02d", i), sourceType))
	}

	inserted, err := s.storage.InsertContracts(s.ctx, contracts)
	require.Nil(s.T(), err)
	require.EqualValues(s.T(), 10, inserted)

	indexer := s.runIndexer()
	require.Nil(s.T(), indexer.Err())
	assert.EqualValues(s.T(), 9, indexer.NumIndexed())
	assert.EqualValues(s.T(), 1, indexer.NumSkipped())

	// A skipped vyper contract is not a failure, a clean corpus must not
	// produce a non-zero exit code
	assert.EqualValues(s.T(), 0, indexer.NumFailed())

	indexed, err := s.storage.CountContractsByStatus(s.ctx, model.StatusIndexed)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 9, indexed)

	skipped, err := s.storage.CountContractsByStatus(s.ctx, model.StatusSkipped)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 1, skipped)

	failed, err := s.storage.CountContractsByStatus(s.ctx, model.StatusFailed)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 0, failed)

	pending, err := s.storage.CountContractsByStatus(s.ctx, model.StatusPending)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 0, pending)

	functions, err := s.storage.GetFunctions(s.ctx, "contract-00")
	require.Nil(s.T(), err)
	require.Len(s.T(), functions, 4)
	assert.Equal(s.T(), "06661abd", functions[0].Selector)
	assert.Equal(s.T(), "d09de08a", functions[3].Selector)

	// The vyper contract has no functions
	functions, err = s.storage.GetFunctions(s.ctx, "contract-05")
	require.Nil(s.T(), err)
	assert.Empty(s.T(), functions)
}

// An interrupt mid-compilation abandons the chunk: nothing is counted as
// failed and the contract stays pending for the next run
func (s *IndexerTestSuite) TestInterruptKeepsContractsPending() {
	script := "#!/bin/sh\ncat > /dev/null\nsleep 5\n"
	err := os.WriteFile(filepath.Join(s.config.Solc.CacheDir, solc.BinaryName("0.8.19")), []byte(script), 0o755)
	require.Nil(s.T(), err)

	_, err = s.storage.InsertContracts(s.ctx, []*model.Contract{
		s.contract("contract-0", model.SourceTypeSingleSolidity),
	})
	require.Nil(s.T(), err)

	indexer := NewIndexer(s.config).WithStorage(s.storage)
	require.Nil(s.T(), indexer.Start())

	// Let the compiler subprocess get going before interrupting
	time.Sleep(200 * time.Millisecond)
	indexer.StopWait()

	require.Nil(s.T(), indexer.Err())
	assert.EqualValues(s.T(), 0, indexer.NumIndexed())
	assert.EqualValues(s.T(), 0, indexer.NumFailed())

	pending, err := s.storage.CountContractsByStatus(s.ctx, model.StatusPending)
	require.Nil(s.T(), err)
	assert.EqualValues(s.T(), 1, pending)
}

func (s *IndexerTestSuite) TestMissingBinaryMarksFailed() {
	contracts := []*model.Contract{s.contract("contract-old", model.SourceTypeSingleSolidity)}
	contracts[0].CompilerVersion = "0.4.26"

	_, err := s.storage.InsertContracts(s.ctx, contracts)
	require.Nil(s.T(), err)

	indexer := s.runIndexer()
	require.Nil(s.T(), indexer.Err())
	assert.EqualValues(s.T(), 0, indexer.NumIndexed())
	assert.EqualValues(s.T(), 1, indexer.NumFailed())
}

// A multi-file contract and its flattened equivalent index to the same
// function set
func (s *IndexerTestSuite) TestFlattenedEquivalence() {
	flattened := s.contract("contract-flat", model.SourceTypeSingleSolidity)

	split := s.contract("contract-split", model.SourceTypeMultiSolidity)
	split.Sources = []model.SourceFile{
		{Name: "ICounter.sol", Content: "interface ICounter { function increment() external; }"},
		{Name: "Counter.sol", Content: "import \"./ICounter.sol\";\ncontract Counter is ICounter {}"},
	}

	_, err := s.storage.InsertContracts(s.ctx, []*model.Contract{flattened, split})
	require.Nil(s.T(), err)

	indexer := s.runIndexer()
	require.Nil(s.T(), indexer.Err())
	assert.EqualValues(s.T(), 2, indexer.NumIndexed())

	first, err := s.storage.GetFunctions(s.ctx, "contract-flat")
	require.Nil(s.T(), err)
	second, err := s.storage.GetFunctions(s.ctx, "contract-split")
	require.Nil(s.T(), err)
	require.Len(s.T(), second, len(first))

	for i := range first {
		assert.Equal(s.T(), first[i].Signature, second[i].Signature)
		assert.Equal(s.T(), first[i].Selector, second[i].Selector)
		assert.Equal(s.T(), first[i].Mutability, second[i].Mutability)
		assert.Equal(s.T(), first[i].Visibility, second[i].Visibility)
	}
}

func (s *IndexerTestSuite) TestNothingPending() {
	indexer := s.runIndexer()
	require.Nil(s.T(), indexer.Err())
	assert.EqualValues(s.T(), 0, indexer.NumIndexed())
	assert.EqualValues(s.T(), 0, indexer.NumFailed())
}
