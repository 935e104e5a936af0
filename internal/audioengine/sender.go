package audioengine

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Sender is the producer-facing half of a session's audio path: one per
// (session, output channel) pair. A decoder worker pushes decoded samples
// into its ring buffer; the engine's mixer goroutine drains it, scaled by
// its volume parameter, into the mixed output frame.
//
// Its identity (UUID) is what audio-thread events like PlayerBufHalf and
// PlayerBufEmpty carry back to the orchestrator, which has no other way to
// know which session a given ring buffer belongs to.
type Sender struct {
	id           uuid.UUID
	channelIndex int
	sampleRate   int
	ring         *ringBuffer

	volMx  sync.RWMutex
	volume Parameter

	startNs  atomic.Int64
	active   atomic.Bool
	alive    atomic.Bool
	position atomic.Uint64

	emptyNotified atomic.Bool
	halfNotified  atomic.Bool
}

func newSender(channelIndex, sampleRate int, capacity uint64) *Sender {
	s := &Sender{
		id:           uuid.New(),
		channelIndex: channelIndex,
		sampleRate:   sampleRate,
		ring:         newRingBuffer(capacity),
		volume:       Raw(0),
	}
	s.alive.Store(true)
	return s
}

// UUID identifies this sender for the lifetime of the process.
func (s *Sender) UUID() uuid.UUID { return s.id }

// ChannelIndex is the output-patch index this sender is bound to.
func (s *Sender) ChannelIndex() int { return s.channelIndex }

// SampleRate is the rate the owning decoder produced samples at.
func (s *Sender) SampleRate() int { return s.sampleRate }

// SetStartTime records the engine-clock time at which this sender should
// start being drained by the mixer.
func (s *Sender) SetStartTime(ns int64) { s.startNs.Store(ns) }

// SetActive toggles whether the mixer drains this sender at all.
func (s *Sender) SetActive(v bool) { s.active.Store(v) }

// Active reports the current activation state.
func (s *Sender) Active() bool { return s.active.Load() }

// Alive reports whether the engine still owns this sender. It goes false
// once the orchestrator removes the sender, signalling the mixer to stop
// touching it even if a stale reference lingers.
func (s *Sender) Alive() bool { return s.alive.Load() }

// PositionSamples is the count of samples the mixer has drained from this
// sender so far, used for shutdown-drain polling and debug reporting.
func (s *Sender) PositionSamples() uint64 { return s.position.Load() }

// SetVolume installs a new volume parameter, replacing whatever was there.
func (s *Sender) SetVolume(p Parameter) {
	s.volMx.Lock()
	s.volume = p
	s.volMx.Unlock()
}

// Volume returns the currently installed volume parameter.
func (s *Sender) Volume() Parameter {
	s.volMx.RLock()
	defer s.volMx.RUnlock()
	return s.volume
}

// TryPush attempts to push one decoded sample into the ring buffer. It
// returns false if the ring is full, in which case the decoder worker
// must back off and wait for a wake signal before retrying.
func (s *Sender) TryPush(sample float32) bool {
	ok := s.ring.tryPush(sample)
	if ok {
		s.emptyNotified.Store(false)
	}
	return ok
}

func (s *Sender) die() {
	s.alive.Store(false)
}
