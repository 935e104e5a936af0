package audioengine

import "sync/atomic"

// ringBuffer is a lock-free single-producer single-consumer ring buffer of
// float32 samples, using the same power-of-two masked atomic-cursor
// algorithm as a byte ring buffer but rewritten element-at-a-time: the
// sender side needs a one-sample try_push -> ok/overflow contract, not a
// bulk io.Reader/io.Writer surface.
type ringBuffer struct {
	buf      []float32
	size     uint64 // power of 2
	mask     uint64
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

func newRingBuffer(capacity uint64) *ringBuffer {
	capacity = nextPowerOf2(capacity)
	return &ringBuffer{
		buf:  make([]float32, capacity),
		size: capacity,
		mask: capacity - 1,
	}
}

// tryPush writes one sample if there is room. It must only be called by
// the decoder worker that owns this sender.
func (rb *ringBuffer) tryPush(sample float32) bool {
	if rb.availableWrite() == 0 {
		return false
	}
	pos := rb.writePos.Load()
	rb.buf[pos&rb.mask] = sample
	rb.writePos.Store(pos + 1)
	return true
}

// tryPop reads one sample if one is available. It must only be called by
// the engine's mixer goroutine.
func (rb *ringBuffer) tryPop() (float32, bool) {
	if rb.availableRead() == 0 {
		return 0, false
	}
	pos := rb.readPos.Load()
	v := rb.buf[pos&rb.mask]
	rb.readPos.Store(pos + 1)
	return v, true
}

func (rb *ringBuffer) availableWrite() uint64 {
	return rb.size - (rb.writePos.Load() - rb.readPos.Load())
}

func (rb *ringBuffer) availableRead() uint64 {
	return rb.writePos.Load() - rb.readPos.Load()
}

func (rb *ringBuffer) capacity() uint64 {
	return rb.size
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
