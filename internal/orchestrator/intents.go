package orchestrator

import "github.com/drgolem/gramophone/internal/audioengine"

// PingIntent is a liveness check; it only produces a log line.
type PingIntent struct{}

func (PingIntent) isIntent() {}

// ShutdownIntent tells the orchestrator to tear everything down and exit.
type ShutdownIntent struct{}

func (ShutdownIntent) isIntent() {}

// PlayFileIntent opens (or re-opens) a named file and starts it playing
// at LevelDB.
type PlayFileIntent struct {
	Name    string
	LevelDB float64
}

func (PlayFileIntent) isIntent() {}

// StopFileIntent deactivates and removes an active session.
type StopFileIntent struct {
	Name string
}

func (StopFileIntent) isIntent() {}

// FadeFileIntent installs a linear-amplitude fade on an active session.
type FadeFileIntent struct {
	Name       string
	TargetDB   float64
	DurationMS int64
}

func (FadeFileIntent) isIntent() {}

// DebugFileIntent logs the current state of a named session.
type DebugFileIntent struct {
	Name string
}

func (DebugFileIntent) isIntent() {}

// EngineIntent carries a message from the audio engine (via the event
// bridge goroutine) into the orchestrator's single-threaded state.
type EngineIntent struct {
	Msg audioengine.Message
}

func (EngineIntent) isIntent() {}

// BufferCompleteIntent is sent by a decoder worker once it has pushed its
// last sample and drained all wake signals up to the point it stopped
// buffering, identified by the session name and the epoch it was started
// under.
type BufferCompleteIntent struct {
	Name  string
	Epoch uint64
}

func (BufferCompleteIntent) isIntent() {}
