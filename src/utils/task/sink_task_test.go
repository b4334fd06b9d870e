package task

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestSinkTaskTestSuite(t *testing.T) {
	suite.Run(t, new(SinkTaskTestSuite))
}

type SinkTaskTestSuite struct {
	suite.Suite
	config *config.Config

	mtx     sync.Mutex
	batches [][]int
}

func (s *SinkTaskTestSuite) SetupTest() {
	s.config = config.Default()
	s.batches = nil
}

func (s *SinkTaskTestSuite) record(batch []int) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

func (s *SinkTaskTestSuite) wait(sink *SinkTask[int]) {
	select {
	case <-sink.CtxRunning.Done():
	case <-time.After(5 * time.Second):
		s.T().Fatal("sink did not stop")
	}
}

// Input close flushes the tail and stops the task
func (s *SinkTaskTestSuite) TestDrainsInputInBatches() {
	input := make(chan int)
	sink := NewSinkTask[int](s.config, "test-sink").
		WithInputChannel(input).
		WithOnFlush(0, s.record).
		WithBatchSize(3)

	err := sink.Start()
	require.Nil(s.T(), err)

	for i := 0; i < 7; i++ {
		input <- i
	}
	close(input)
	s.wait(sink)

	require.Nil(s.T(), sink.Err())
	require.Len(s.T(), s.batches, 3)
	assert.Equal(s.T(), []int{0, 1, 2}, s.batches[0])
	assert.Equal(s.T(), []int{3, 4, 5}, s.batches[1])
	assert.Equal(s.T(), []int{6}, s.batches[2])
}

func (s *SinkTaskTestSuite) TestEmptyInput() {
	input := make(chan int)
	sink := NewSinkTask[int](s.config, "test-sink").
		WithInputChannel(input).
		WithOnFlush(0, s.record).
		WithBatchSize(3)

	err := sink.Start()
	require.Nil(s.T(), err)

	close(input)
	s.wait(sink)

	require.Nil(s.T(), sink.Err())
	assert.Empty(s.T(), s.batches)
}

// First flush error is kept and the sink stops
func (s *SinkTaskTestSuite) TestFlushErrorStops() {
	flushErr := errors.New("disk full")
	input := make(chan int, 3)
	sink := NewSinkTask[int](s.config, "test-sink").
		WithInputChannel(input).
		WithOnFlush(0, func([]int) error { return flushErr }).
		WithBatchSize(3)

	err := sink.Start()
	require.Nil(s.T(), err)

	for i := 0; i < 3; i++ {
		input <- i
	}
	s.wait(sink)

	require.ErrorIs(s.T(), sink.Err(), flushErr)
}
