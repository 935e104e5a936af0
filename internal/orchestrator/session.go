package orchestrator

import "github.com/drgolem/gramophone/internal/audioengine"

// session is the orchestrator's record of one active file: one sender per
// configured output channel, all sharing a decoder worker and an epoch.
// Every field here is read and written only from the orchestrator's own
// goroutine; the worker goroutine only ever touches the senders' ring
// buffers (through Sender.TryPush) and the wake channel.
type session struct {
	senders  []*audioengine.Sender
	buffered bool
	epoch    uint64
	wake     chan wakeSignal
}
