// Package oscfront is gramophone's OSC front-end: a single UDP receive
// loop that decodes datagrams, maps recognized addresses to control
// intents, and acknowledges or rejects each datagram back to its source.
package oscfront

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/drgolem/gramophone/internal/orchestrator"
)

// IntentSink is the orchestrator capability the front-end needs: a
// non-blocking hand-off onto the control queue. orchestrator.Context
// satisfies it.
type IntentSink interface {
	Enqueue(orchestrator.Intent)
}

// Frontend owns the UDP socket and the receive loop.
type Frontend struct {
	conn *net.UDPConn
	sink IntentSink
}

// Listen binds addr for UDP and returns a Frontend ready to Serve.
func Listen(addr string, sink IntentSink) (*Frontend, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("oscfront: resolving %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("oscfront: listening on %s: %w", addr, err)
	}
	return &Frontend{conn: conn, sink: sink}, nil
}

// Close releases the UDP socket, unblocking a pending Serve.
func (f *Frontend) Close() error { return f.conn.Close() }

// Serve runs the receive loop until the socket is closed. A receive error
// enqueues a shutdown intent and backs off for a second before retrying,
// rather than spinning; a decode error just logs and continues.
func (f *Frontend) Serve() error {
	buf := make([]byte, 65535)
	for {
		n, src, err := f.conn.ReadFromUDP(buf)
		if err != nil {
			if isClosedConnError(err) {
				return err
			}
			slog.Error("osc receive failed", "error", err)
			f.sink.Enqueue(orchestrator.ShutdownIntent{})
			time.Sleep(time.Second)
			continue
		}

		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			slog.Warn("osc decode failed", "error", err)
			continue
		}
		f.handlePacket(packet, src)
	}
}

func isClosedConnError(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}

func (f *Frontend) handlePacket(packet osc.Packet, src *net.UDPAddr) {
	switch p := packet.(type) {
	case *osc.Bundle:
		slog.Warn("rejecting osc bundle", "source", src.String())
		f.reply(src, osc.NewMessage("/no_bundles_please"))
	case *osc.Message:
		f.handleMessage(p, src)
	default:
		slog.Warn("unrecognized osc packet type", "source", src.String())
	}
}

func (f *Frontend) handleMessage(msg *osc.Message, src *net.UDPAddr) {
	addr := msg.Address
	segments := strings.Split(strings.Trim(addr, "/"), "/")

	var intent orchestrator.Intent
	var argErr error

	switch {
	case addr == "/ping":
		intent = orchestrator.PingIntent{}

	case addr == "/shutdown":
		intent = orchestrator.ShutdownIntent{}

	case len(segments) == 3 && segments[0] == "file":
		name := segments[1]
		switch segments[2] {
		case "start":
			var level float64
			level, argErr = floatArg(msg, 0)
			intent = orchestrator.PlayFileIntent{Name: name, LevelDB: level}
		case "stop":
			intent = orchestrator.StopFileIntent{Name: name}
		case "fade":
			var target float64
			var duration int64
			target, argErr = floatArg(msg, 0)
			if argErr == nil {
				duration, argErr = intArg(msg, 1)
			}
			intent = orchestrator.FadeFileIntent{Name: name, TargetDB: target, DurationMS: duration}
		case "debug":
			intent = orchestrator.DebugFileIntent{Name: name}
		default:
			f.reply(src, osc.NewMessage("/unknown_address", addr))
			return
		}

	default:
		f.reply(src, osc.NewMessage("/unknown_address", addr))
		return
	}

	if argErr != nil {
		slog.Warn("osc message has bad arguments", "address", addr, "error", argErr)
		f.reply(src, osc.NewMessage("/incorrect_args", addr))
		return
	}

	f.sink.Enqueue(intent)
	f.reply(src, osc.NewMessage("/ack"))
}

func floatArg(msg *osc.Message, i int) (float64, error) {
	if i >= len(msg.Arguments) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	switch v := msg.Arguments[i].(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("argument %d: expected float or double, got %T", i, v)
	}
}

func intArg(msg *osc.Message, i int) (int64, error) {
	if i >= len(msg.Arguments) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	switch v := msg.Arguments[i].(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("argument %d: expected int, got %T", i, v)
	}
}

func (f *Frontend) reply(dst *net.UDPAddr, msg *osc.Message) {
	data, err := msg.ToByteArray()
	if err != nil {
		slog.Warn("failed to encode osc reply", "address", msg.Address, "error", err)
		return
	}
	if _, err := f.conn.WriteToUDP(data, dst); err != nil {
		slog.Warn("failed to send osc reply", "address", msg.Address, "error", err)
	}
}
