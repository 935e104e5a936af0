// Package orchestrator holds gramophone's single-threaded playback state
// machine: the set of active sessions, the epoch counter that tells a
// stale worker's completion notice from a current one, and the handlers
// for every OSC command and audio-engine event. Everything here runs on
// one goroutine; concurrency with the rest of the process is confined to
// the control queue.
package orchestrator

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/drgolem/gramophone/internal/audioengine"
	"github.com/drgolem/gramophone/internal/config"
	"github.com/drgolem/gramophone/internal/decoderadapter"
)

// osExit is a seam for tests: shutdown calls it instead of os.Exit
// directly so a test exercising a ShutdownIntent doesn't kill the test
// binary.
var osExit = os.Exit

// Context owns the active session table and the engine it drives.
type Context struct {
	cfg    config.Config
	engine *audioengine.Engine
	queue  *intentQueue

	sessions    map[string]*session
	senderOwner map[uuid.UUID]string
	epoch       uint64
}

// NewContext builds an orchestrator bound to cfg and engine, with its own
// control queue. Call Enqueue to feed it and Run to drive it.
func NewContext(cfg config.Config, engine *audioengine.Engine) *Context {
	return &Context{
		cfg:         cfg,
		engine:      engine,
		queue:       newIntentQueue(),
		sessions:    make(map[string]*session),
		senderOwner: make(map[uuid.UUID]string),
	}
}

// Enqueue hands an intent to the orchestrator. Safe to call from any
// goroutine; never blocks.
func (c *Context) Enqueue(i Intent) { c.queue.Send(i) }

// Run drives the control queue until a ShutdownIntent is processed or the
// queue is closed out from under it. It does not return in normal
// operation.
func (c *Context) Run() {
	for {
		intent, ok := c.queue.Recv()
		if !ok {
			slog.Warn("control queue closed; shutting down")
			c.shutdown()
			return
		}
		if c.process(intent) {
			return
		}
	}
}

// process handles one intent. It returns true if the orchestrator should
// stop running.
func (c *Context) process(intent Intent) (stop bool) {
	switch m := intent.(type) {
	case PingIntent:
		slog.Info("ping")

	case ShutdownIntent:
		c.shutdown()
		return true

	case PlayFileIntent:
		if err := c.prepare(m.Name, m.LevelDB); err != nil {
			slog.Warn("prepare failed", "file", m.Name, "error", err)
			return false
		}
		if err := c.activate(m.Name, true); err != nil {
			slog.Warn("activate failed", "file", m.Name, "error", err)
		}

	case StopFileIntent:
		if err := c.activate(m.Name, false); err != nil {
			slog.Warn("stop failed", "file", m.Name, "error", err)
		}

	case FadeFileIntent:
		if err := c.fade(m.Name, m.TargetDB, m.DurationMS); err != nil {
			slog.Warn("fade failed", "file", m.Name, "error", err)
		}

	case DebugFileIntent:
		if err := c.debug(m.Name); err != nil {
			slog.Warn("debug failed", "file", m.Name, "error", err)
		}

	case EngineIntent:
		c.handleEngineMessage(m.Msg)

	case BufferCompleteIntent:
		if s, ok := c.sessions[m.Name]; ok && s.epoch == m.Epoch {
			s.buffered = true
		}
	}
	return false
}

// prepare opens the named file and starts a fresh decoder worker buffering
// it, replacing any prior session at the same name. The new session is not
// yet activated: the caller (PlayFileIntent) activates it immediately
// after, but a session can also be prepared and left inactive by callers
// that only want it buffered and ready.
func (c *Context) prepare(name string, levelDB float64) error {
	fe, ok := c.cfg.Files[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchFile, name)
	}

	fs, err := decoderadapter.Open(fe.URI)
	if err != nil {
		return fmt.Errorf("opening %s: %w", fe.URI, err)
	}

	level := dbLin(levelDB)
	senders := make([]*audioengine.Sender, len(c.cfg.Channels))
	for i := range c.cfg.Channels {
		sdr := c.engine.NewSender(i, fs.SampleRate())
		sdr.SetVolume(audioengine.Raw(level))
		senders[i] = sdr
	}

	c.epoch++
	epoch := c.epoch
	wake := make(chan wakeSignal, 1)
	go runDecoderWorker(fs, senders, wake, c.queue, name, epoch)

	if old, existed := c.sessions[name]; existed {
		c.teardown(old)
	}
	for _, sdr := range senders {
		c.senderOwner[sdr.UUID()] = name
	}
	c.sessions[name] = &session{senders: senders, epoch: epoch, wake: wake}
	return nil
}

// activate starts or stops every sender of an existing session, sampling
// the engine clock once so all channels begin or end in lockstep. Stopping
// tears the session down entirely.
func (c *Context) activate(name string, start bool) error {
	s, ok := c.sessions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchActiveFile, name)
	}

	now := c.engine.NowNS()
	for _, sdr := range s.senders {
		if start {
			sdr.SetStartTime(now)
			sdr.SetActive(true)
		} else {
			sdr.SetActive(false)
		}
	}

	if !start {
		c.removeSession(name)
	}
	return nil
}

// fade samples sender 0's current volume as the fade's starting point,
// builds one shared LinearFade, and installs the same instance on every
// sender in the session so all channels ramp coherently.
func (c *Context) fade(name string, targetDB float64, durationMS int64) error {
	s, ok := c.sessions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchActiveFile, name)
	}

	now := c.engine.NowNS()
	cur := s.senders[0].Volume().Get(now)
	target := dbLin(targetDB)
	fd := audioengine.NewLinearFade(cur, target, now, time.Duration(durationMS)*time.Millisecond)

	for _, sdr := range s.senders {
		sdr.SetVolume(fd)
	}
	return nil
}

// debug logs a session's state for operator inspection.
func (c *Context) debug(name string) error {
	s, ok := c.sessions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchActiveFile, name)
	}

	s0 := s.senders[0]
	now := c.engine.NowNS()
	slog.Info("file debug",
		"file", name,
		"senders", len(s.senders),
		"buffered", s.buffered,
		"sender0_alive", s0.Alive(),
		"sender0_active", s0.Active(),
		"sender0_position_samples", s0.PositionSamples(),
		"sender0_volume", s0.Volume().Get(now),
	)
	return nil
}

func (c *Context) handleEngineMessage(msg audioengine.Message) {
	switch msg.Kind {
	case audioengine.Xrun:
		slog.Warn("audio engine xrun")

	case audioengine.PlayerInvalidOutpatch:
		slog.Warn("sender bound to invalid output patch", "sender", msg.SenderID)

	case audioengine.PlayerRejected:
		slog.Error("sender rejected: engine at capacity", "sender", msg.SenderID)

	case audioengine.PlayerBufHalf:
		name, ok := c.senderOwner[msg.SenderID]
		if !ok {
			return
		}
		s := c.sessions[name]
		select {
		case s.wake <- wakeSignal{}:
		default:
			// Worker isn't waiting (still has room); non-fatal either way.
		}

	case audioengine.PlayerBufEmpty:
		name, ok := c.senderOwner[msg.SenderID]
		if !ok {
			slog.Warn("straggling sender ran out of samples", "sender", msg.SenderID)
			return
		}
		s := c.sessions[name]
		if s.buffered {
			slog.Info("file finished playback", "file", name)
			c.removeSession(name)
		} else {
			slog.Warn("file ran out of samples", "file", name)
		}
	}
}

func (c *Context) teardown(s *session) {
	close(s.wake)
	for _, sdr := range s.senders {
		delete(c.senderOwner, sdr.UUID())
		c.engine.RemoveSender(sdr.UUID())
	}
}

func (c *Context) removeSession(name string) {
	s, ok := c.sessions[name]
	if !ok {
		return
	}
	delete(c.sessions, name)
	c.teardown(s)
}

// shutdown optionally drains, then tears down every session and exits the
// process. Go has no destructor-on-unwind to lean on, so every session is
// torn down explicitly here rather than relying on process exit to do it.
func (c *Context) shutdown() {
	slog.Warn("shutting down")

	if c.cfg.ShutdownSecs > 0 {
		c.drain(time.Duration(c.cfg.ShutdownSecs) * time.Second)
	}

	for name, s := range c.sessions {
		delete(c.sessions, name)
		c.teardown(s)
	}

	osExit(0)
}

// drain polls every live sender's playback position once a second,
// returning early once a full second passes with no sender advancing, or
// once timeout elapses, whichever comes first.
func (c *Context) drain(timeout time.Duration) {
	slog.Info("draining before shutdown", "timeout", timeout)
	deadline := time.Now().Add(timeout)
	last := c.samplePositions()

	for time.Now().Before(deadline) {
		time.Sleep(time.Second)
		cur := c.samplePositions()
		if !positionsAdvanced(last, cur) {
			slog.Info("drain complete: no sender advanced")
			return
		}
		last = cur
	}
	slog.Info("drain timeout reached")
}

func (c *Context) samplePositions() map[uuid.UUID]uint64 {
	out := make(map[uuid.UUID]uint64)
	for _, s := range c.sessions {
		for _, sdr := range s.senders {
			out[sdr.UUID()] = sdr.PositionSamples()
		}
	}
	return out
}

func positionsAdvanced(a, b map[uuid.UUID]uint64) bool {
	for id, pos := range b {
		if a[id] != pos {
			return true
		}
	}
	return false
}
