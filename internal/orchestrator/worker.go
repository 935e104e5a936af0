package orchestrator

import (
	"errors"
	"io"
	"log/slog"

	"github.com/drgolem/gramophone/internal/audioengine"
	"github.com/drgolem/gramophone/internal/decoderadapter"
)

// wakeSignal is sent on a session's wake channel whenever a sender's ring
// buffer has drained enough to welcome more data. The channel being
// closed (rather than any particular value arriving) is what tells a
// blocked worker to give up and die: Die travels as channel closure so a
// worker parked in a receive wakes up exactly the same way whether it's
// being nudged for more room or being torn down.
type wakeSignal struct{}

// runDecoderWorker decodes fs frame by frame, pushing each channel's
// sample into the matching sender, retrying against backpressure by
// waiting for wake. It owns fs and senders for its lifetime and closes or
// drops them before returning.
func runDecoderWorker(fs *decoderadapter.Source, senders []*audioengine.Sender, wake <-chan wakeSignal, queue *intentQueue, name string, epoch uint64) {
	defer fs.Close()

	for {
		frame, err := fs.NextFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			slog.Warn("frame decode error, skipping", "file", name, "error", err)
			continue
		}

		for ch, sample := range frame {
			if ch >= len(senders) {
				continue
			}
			for !senders[ch].TryPush(sample) {
				if _, ok := <-wake; !ok {
					slog.Info("buffering ended prematurely", "file", name, "epoch", epoch)
					return
				}
			}
		}
	}

	slog.Info("finished buffering", "file", name, "epoch", epoch)
	queue.Send(BufferCompleteIntent{Name: name, Epoch: epoch})

	// Keep draining wake signals so the orchestrator can still nudge this
	// worker without blocking forever, until the session is torn down and
	// wake is closed.
	for {
		if _, ok := <-wake; !ok {
			return
		}
	}
}
