// Package audioengine simulates the realtime port-graph audio backend:
// per-channel senders feeding a shared mixer, draining at a fixed tick
// rate into a pluggable output sink. It stands in for a real JACK-style
// server process (none of which exists as a Go binding) while keeping the
// same producer/consumer shape as pkg/audioplayer.Player: a ring buffer
// per stream, a background goroutine draining it, and event reporting back
// to whoever owns session lifecycle.
package audioengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageKind identifies the kind of event the engine reports back to the
// orchestrator over its message channel.
type MessageKind int

const (
	// Xrun reports that a mix tick missed its output deadline.
	Xrun MessageKind = iota
	// PlayerInvalidOutpatch reports a sender bound to a channel index the
	// backend has no output for.
	PlayerInvalidOutpatch
	// PlayerRejected reports that a new sender could not be admitted
	// because the engine is already at its sender limit.
	PlayerRejected
	// PlayerBufHalf reports that a sender's ring buffer has drained to at
	// or below half capacity and would welcome more data.
	PlayerBufHalf
	// PlayerBufEmpty reports that a sender's ring buffer had nothing to
	// give the mixer on this tick.
	PlayerBufEmpty
)

// Message is one event emitted by the engine's mixer goroutine.
type Message struct {
	Kind     MessageKind
	SenderID uuid.UUID
}

// Backend is the concrete realtime output sink the engine drains into.
// NullBackend discards everything; PortAudioBackend drives real hardware.
type Backend interface {
	Start(sampleRate, channels int) error
	Write(frame []float32) error
	Stop() error
}

const (
	defaultSenderCapacity = 1 << 15 // ~0.68s of samples at 48kHz
	defaultMaxSenders     = 256
)

// EngineConfig configures a new Engine.
type EngineConfig struct {
	SampleRate int
	Channels   int
	// Backend is the concrete output sink. Nil selects NullBackend.
	Backend Backend
	// TickInterval overrides the mixer's drain period. Zero selects one
	// frame period at SampleRate.
	TickInterval time.Duration
	// MaxSenders caps how many senders may be live at once. Zero selects
	// defaultMaxSenders.
	MaxSenders int
}

// Engine owns the live sender set and the background mixer goroutine that
// drains them into Backend.
type Engine struct {
	cfg        EngineConfig
	clockStart time.Time

	mu      sync.Mutex
	senders map[uuid.UUID]*Sender

	messages chan Message
	backend  Backend

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewEngine starts the backend and the mixer goroutine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("audioengine: sample rate must be positive")
	}
	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("audioengine: channel count must be positive")
	}
	backend := cfg.Backend
	if backend == nil {
		backend = NewNullBackend()
	}
	if err := backend.Start(cfg.SampleRate, cfg.Channels); err != nil {
		return nil, fmt.Errorf("audioengine: starting backend: %w", err)
	}
	if cfg.MaxSenders <= 0 {
		cfg.MaxSenders = defaultMaxSenders
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second / time.Duration(cfg.SampleRate)
	}

	e := &Engine{
		cfg:        cfg,
		clockStart: time.Now(),
		senders:    make(map[uuid.UUID]*Sender),
		messages:   make(chan Message, 256),
		backend:    backend,
		stop:       make(chan struct{}),
	}
	e.wg.Add(1)
	go e.mixerLoop(interval)
	return e, nil
}

// Messages is the engine's event stream. The audio event bridge reads from
// it and forwards each message into the control queue.
func (e *Engine) Messages() <-chan Message { return e.messages }

// NowNS returns nanoseconds since the engine started, on a monotonic
// clock (time.Since reads the monotonic component of the stored
// reference). Fades and start times are expressed on this clock.
func (e *Engine) NowNS() int64 { return int64(time.Since(e.clockStart)) }

// NewSender admits a new sender bound to channelIndex, fed by a decoder
// producing at sampleRate. If the engine is already at its sender limit,
// the sender is returned inert (never drained) and a PlayerRejected event
// is emitted.
func (e *Engine) NewSender(channelIndex, sampleRate int) *Sender {
	s := newSender(channelIndex, sampleRate, defaultSenderCapacity)

	e.mu.Lock()
	admit := len(e.senders) < e.cfg.MaxSenders
	if admit {
		e.senders[s.id] = s
	}
	e.mu.Unlock()

	if !admit {
		s.die()
		e.emit(PlayerRejected, s.id)
	}
	return s
}

// RemoveSender drops a sender from the mixer and marks it dead. Safe to
// call more than once or with an unknown id.
func (e *Engine) RemoveSender(id uuid.UUID) {
	e.mu.Lock()
	s, ok := e.senders[id]
	if ok {
		delete(e.senders, id)
	}
	e.mu.Unlock()
	if ok {
		s.die()
	}
}

// Close stops the mixer goroutine and the backend.
func (e *Engine) Close() error {
	close(e.stop)
	e.wg.Wait()
	return e.backend.Stop()
}

func (e *Engine) snapshotSenders() []*Sender {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Sender, 0, len(e.senders))
	for _, s := range e.senders {
		out = append(out, s)
	}
	return out
}

func (e *Engine) emit(kind MessageKind, id uuid.UUID) {
	select {
	case e.messages <- Message{Kind: kind, SenderID: id}:
	default:
		// The bridge goroutine isn't keeping up; drop rather than block
		// the mixer. The control queue downstream of it is unbounded, so
		// this only triggers if the bridge itself is stuck.
	}
}

func (e *Engine) mixerLoop(interval time.Duration) {
	defer e.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := make([]float32, e.cfg.Channels)
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.mixTick(frame)
		}
	}
}

func (e *Engine) mixTick(frame []float32) {
	for i := range frame {
		frame[i] = 0
	}
	now := e.NowNS()

	for _, s := range e.snapshotSenders() {
		if !s.Alive() || !s.Active() {
			continue
		}
		if now < s.startNs.Load() {
			continue
		}
		if s.channelIndex < 0 || s.channelIndex >= len(frame) {
			e.emit(PlayerInvalidOutpatch, s.id)
			continue
		}

		sample, ok := s.ring.tryPop()
		if !ok {
			if !s.emptyNotified.Swap(true) {
				e.emit(PlayerBufEmpty, s.id)
			}
			continue
		}
		s.position.Add(1)

		vol := s.Volume().Get(now)
		frame[s.channelIndex] += sample * float32(vol)

		if s.ring.availableRead() <= s.ring.capacity()/2 {
			if !s.halfNotified.Swap(true) {
				e.emit(PlayerBufHalf, s.id)
			}
		} else {
			s.halfNotified.Store(false)
		}
	}

	if err := e.backend.Write(frame); err != nil {
		e.emit(Xrun, uuid.Nil)
	}
}
