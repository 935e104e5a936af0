package audioengine

// NullBackend discards the mixed signal. It is the default backend for
// tests and for headless operation with no sound card attached.
type NullBackend struct{}

// NewNullBackend returns a backend that discards everything written to it.
func NewNullBackend() *NullBackend { return &NullBackend{} }

// Start implements Backend.
func (*NullBackend) Start(sampleRate, channels int) error { return nil }

// Write implements Backend.
func (*NullBackend) Write(frame []float32) error { return nil }

// Stop implements Backend.
func (*NullBackend) Stop() error { return nil }
