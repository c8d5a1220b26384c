// Package ringbuffer provides a blocking ring of composite samples,
// decoupling the composition goroutine from sink pulls.
package ringbuffer

import "sync"

// RingBuffer is a concurrent-safe ring buffer for float64 samples. One
// producer writes, one consumer reads; Close ends the stream and lets
// the consumer drain what remains.
type RingBuffer struct {
	buf        []float64
	size       int
	readIndex  int
	writeIndex int
	closed     bool
	mu         sync.Mutex
	cond       *sync.Cond
}

// New creates a RingBuffer holding up to size-1 samples.
func New(size int) *RingBuffer {
	rb := &RingBuffer{
		buf:  make([]float64, size),
		size: size,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// availableWrite returns the free space. Callers hold mu.
func (rb *RingBuffer) availableWrite() int {
	if rb.writeIndex >= rb.readIndex {
		return rb.size - (rb.writeIndex - rb.readIndex) - 1
	}
	return rb.readIndex - rb.writeIndex - 1
}

// availableRead returns the number of buffered samples. Callers hold mu.
func (rb *RingBuffer) availableRead() int {
	if rb.writeIndex >= rb.readIndex {
		return rb.writeIndex - rb.readIndex
	}
	return rb.size - rb.readIndex + rb.writeIndex
}

// Buffered returns the number of samples waiting to be read.
func (rb *RingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.availableRead()
}

// Close marks the end of the stream and wakes any waiting reader. The
// reader drains remaining samples before seeing end of stream.
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}

// Write adds data to the buffer, blocking until space is available.
// It returns false without writing once the buffer is closed, so a
// producer racing a Close unwinds cleanly.
func (rb *RingBuffer) Write(data []float64) bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := 0; i < len(data); {
		for !rb.closed && rb.availableWrite() == 0 {
			rb.cond.Wait()
		}
		if rb.closed {
			return false
		}

		// Copy up to the physical end of the buffer or up to one slot
		// before the read index, whichever comes first.
		end := rb.size
		if rb.readIndex > rb.writeIndex {
			end = rb.readIndex - 1
		} else if rb.readIndex == 0 {
			end = rb.size - 1
		}
		written := copy(rb.buf[rb.writeIndex:end], data[i:])
		rb.writeIndex = (rb.writeIndex + written) % rb.size
		i += written
		rb.cond.Broadcast()
	}
	return true
}

// Read retrieves up to n samples, blocking until data arrives or the
// buffer is closed. After Close it returns whatever remains, then nil.
func (rb *RingBuffer) Read(n int) []float64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for !rb.closed && rb.availableRead() < n {
		rb.cond.Wait()
	}
	if rb.closed && rb.availableRead() == 0 {
		return nil
	}

	readSize := n
	if avail := rb.availableRead(); avail < readSize {
		readSize = avail
	}

	data := make([]float64, readSize)
	if rb.readIndex+readSize <= rb.size {
		copy(data, rb.buf[rb.readIndex:rb.readIndex+readSize])
	} else {
		part1 := rb.size - rb.readIndex
		copy(data, rb.buf[rb.readIndex:])
		copy(data[part1:], rb.buf[:readSize-part1])
	}
	rb.readIndex = (rb.readIndex + readSize) % rb.size
	rb.cond.Broadcast()
	return data
}
