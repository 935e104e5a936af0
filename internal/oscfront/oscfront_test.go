package oscfront

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/gramophone/internal/orchestrator"
)

type fakeSink struct {
	mu  sync.Mutex
	got []orchestrator.Intent
}

func (f *fakeSink) Enqueue(i orchestrator.Intent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, i)
}

func (f *fakeSink) last() orchestrator.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.got) == 0 {
		return nil
	}
	return f.got[len(f.got)-1]
}

func startTestFrontend(t *testing.T) (*fakeSink, *net.UDPConn) {
	t.Helper()
	sink := &fakeSink{}
	fe, err := Listen("127.0.0.1:0", sink)
	require.NoError(t, err)
	t.Cleanup(func() { fe.Close() })
	go fe.Serve()

	clientConn, err := net.DialUDP("udp", nil, fe.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return sink, clientConn
}

func sendAndRecv(t *testing.T, conn *net.UDPConn, packet osc.Packet) *osc.Message {
	t.Helper()
	data, err := packet.ToByteArray()
	require.NoError(t, err)
	_, err = conn.Write(data)
	require.NoError(t, err)

	buf := make([]byte, 65535)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	reply, err := osc.ParsePacket(string(buf[:n]))
	require.NoError(t, err)
	msg, ok := reply.(*osc.Message)
	require.True(t, ok)
	return msg
}

func TestPingAcksAndEnqueuesPingIntent(t *testing.T) {
	sink, conn := startTestFrontend(t)
	reply := sendAndRecv(t, conn, osc.NewMessage("/ping"))
	assert.Equal(t, "/ack", reply.Address)

	require.Eventually(t, func() bool {
		_, ok := sink.last().(orchestrator.PingIntent)
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestFileStartAcksAndEnqueuesPlayFileIntent(t *testing.T) {
	sink, conn := startTestFrontend(t)
	msg := osc.NewMessage("/file/bell/start")
	msg.Append(float32(-6.0))

	reply := sendAndRecv(t, conn, msg)
	assert.Equal(t, "/ack", reply.Address)

	require.Eventually(t, func() bool {
		intent, ok := sink.last().(orchestrator.PlayFileIntent)
		return ok && intent.Name == "bell" && intent.LevelDB == -6.0
	}, time.Second, 10*time.Millisecond)
}

func TestFileStartWithMissingArgReturnsIncorrectArgs(t *testing.T) {
	_, conn := startTestFrontend(t)
	reply := sendAndRecv(t, conn, osc.NewMessage("/file/bell/start"))
	assert.Equal(t, "/incorrect_args", reply.Address)
}

func TestFileFadeAcksAndEnqueuesFadeFileIntent(t *testing.T) {
	sink, conn := startTestFrontend(t)
	msg := osc.NewMessage("/file/bell/fade")
	msg.Append(float32(-60.0))
	msg.Append(int32(500))

	reply := sendAndRecv(t, conn, msg)
	assert.Equal(t, "/ack", reply.Address)

	require.Eventually(t, func() bool {
		intent, ok := sink.last().(orchestrator.FadeFileIntent)
		return ok && intent.Name == "bell" && intent.TargetDB == -60.0 && intent.DurationMS == 500
	}, time.Second, 10*time.Millisecond)
}

func TestFileStopAndDebugEnqueueExpectedIntents(t *testing.T) {
	sink, conn := startTestFrontend(t)

	reply := sendAndRecv(t, conn, osc.NewMessage("/file/bell/stop"))
	assert.Equal(t, "/ack", reply.Address)
	require.Eventually(t, func() bool {
		_, ok := sink.last().(orchestrator.StopFileIntent)
		return ok
	}, time.Second, 10*time.Millisecond)

	reply = sendAndRecv(t, conn, osc.NewMessage("/file/bell/debug"))
	assert.Equal(t, "/ack", reply.Address)
	require.Eventually(t, func() bool {
		_, ok := sink.last().(orchestrator.DebugFileIntent)
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestUnknownAddressIsReported(t *testing.T) {
	_, conn := startTestFrontend(t)
	reply := sendAndRecv(t, conn, osc.NewMessage("/nope"))
	assert.Equal(t, "/unknown_address", reply.Address)
	require.Len(t, reply.Arguments, 1)
	assert.Equal(t, "/nope", reply.Arguments[0])
}

func TestBundleIsRejected(t *testing.T) {
	_, conn := startTestFrontend(t)
	bundle := osc.NewBundle(time.Now())
	bundle.Append(osc.NewMessage("/ping"))

	reply := sendAndRecv(t, conn, bundle)
	assert.Equal(t, "/no_bundles_please", reply.Address)
}
