package task

import (
	"sync"
	"time"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"

	"github.com/gammazero/deque"
)

// Task that receives data through a channel and pushes it to the database in
// chunks. When the input channel is closed the remaining data is flushed and
// the task stops itself, so a batch pipeline finishes once its source is done.
type SinkTask[T any] struct {
	*Task

	// For synchronizing access to the queue
	mtx sync.Mutex

	// Chunk size that triggers a flush
	batchSize int

	// Called with at most batchSize items at a time
	onFlush func([]T) error

	// Incoming data
	input chan T

	// Data waiting to be flushed
	queue deque.Deque[T]

	// First flush error; the sink stops on it
	err error
}

func NewSinkTask[T any](config *config.Config, name string) (self *SinkTask[T]) {
	self = new(SinkTask[T])
	self.Task = NewTask(config, name).
		WithSubtaskFunc(self.receive)

	return
}

func (self *SinkTask[T]) WithBatchSize(batchSize int) *SinkTask[T] {
	self.queue.SetMinCapacity(2 * uint(batchSize))
	self.batchSize = batchSize
	return self
}

func (self *SinkTask[T]) WithInputChannel(input chan T) *SinkTask[T] {
	self.input = input
	return self
}

func (self *SinkTask[T]) WithOnFlush(interval time.Duration, f func([]T) error) *SinkTask[T] {
	self.onFlush = f
	if interval > 0 {
		self.Task = self.Task.
			WithPeriodicSubtaskFunc(interval, func() error {
				return self.flush()
			})
	}
	return self
}

// Err returns the first flush error, if any
func (self *SinkTask[T]) Err() error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.err
}

func (self *SinkTask[T]) fail(err error) {
	self.mtx.Lock()
	if self.err == nil {
		self.err = err
	}
	self.mtx.Unlock()
	self.Stop()
}

// Puts data into the queue
func (self *SinkTask[T]) receive() error {
	for {
		select {
		case data, ok := <-self.input:
			if !ok {
				// Input closed, there will be no more data
				err := self.flush()
				self.Stop()
				return err
			}

			self.mtx.Lock()
			self.queue.PushBack(data)
			isBatchReady := self.queue.Len() >= self.batchSize
			self.mtx.Unlock()

			if isBatchReady {
				if err := self.flush(); err != nil {
					return err
				}
			}

		case <-self.StopChannel:
			return self.Err()
		}
	}
}

func (self *SinkTask[T]) flush() error {
	// Repeat while there's still data in the queue
	for {
		self.mtx.Lock()
		size := self.queue.Len()
		if size == 0 {
			self.mtx.Unlock()
			return nil
		}

		if size > self.batchSize {
			size = self.batchSize
		}

		// Copy data to avoid locking for too long
		batch := make([]T, 0, size)
		for i := 0; i < size; i++ {
			batch = append(batch, self.queue.PopFront())
		}
		self.mtx.Unlock()

		err := self.onFlush(batch)
		if err != nil {
			self.fail(err)
			return err
		}
	}
}
