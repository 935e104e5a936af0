package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"

	"github.com/drgolem/gramophone/internal/audioengine"
	"github.com/drgolem/gramophone/internal/config"
	"github.com/drgolem/gramophone/internal/decoderadapter"
	"github.com/drgolem/gramophone/internal/orchestrator"
	"github.com/drgolem/gramophone/internal/oscfront"
)

var (
	configPath      string
	audioDeviceIdx  int
	framesPerBuffer int
	serveVerbose    bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playback server",
	Long: `serve loads gramophone's configuration, probes every configured file,
binds the OSC listener, and runs the playback orchestrator until a
shutdown is requested or the process is signaled.`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Directory to search for gramophone.yaml (default: working directory, then /etc/gramophone)")
	serveCmd.Flags().IntVarP(&audioDeviceIdx, "device", "d", -1, "PortAudio output device index (-1 plays to a null sink)")
	serveCmd.Flags().IntVarP(&framesPerBuffer, "frames", "f", 512, "PortAudio frames per buffer")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runServe(cmd *cobra.Command, args []string) {
	logLevel := slog.LevelInfo
	if serveVerbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	var searchPaths []string
	if configPath != "" {
		searchPaths = []string{configPath}
	}
	cfg, err := config.Load(searchPaths...)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	if err := probeFiles(cfg); err != nil {
		slog.Error("file probe failed", "error", err)
		os.Exit(1)
	}

	var backend audioengine.Backend
	if audioDeviceIdx >= 0 {
		slog.Info("initializing portaudio")
		if err := portaudio.Initialize(); err != nil {
			slog.Error("failed to initialize portaudio", "error", err)
			os.Exit(1)
		}
		defer portaudio.Terminate()
		backend = audioengine.NewPortAudioBackend(audioDeviceIdx, framesPerBuffer)
	}

	engine, err := audioengine.NewEngine(audioengine.EngineConfig{
		SampleRate: cfg.SampleRate,
		Channels:   len(cfg.Channels),
		Backend:    backend,
	})
	if err != nil {
		slog.Error("failed to start audio engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	octx := orchestrator.NewContext(cfg, engine)

	// Audio Event Bridge: republishes every engine message as an intent.
	go func() {
		for msg := range engine.Messages() {
			octx.Enqueue(orchestrator.EngineIntent{Msg: msg})
		}
	}()

	frontend, err := oscfront.Listen(cfg.Listen, octx)
	if err != nil {
		slog.Error("failed to bind osc listener", "error", err)
		os.Exit(1)
	}
	defer frontend.Close()

	go func() {
		if err := frontend.Serve(); err != nil {
			slog.Warn("osc listener stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("signal received, shutting down", "signal", sig)
		octx.Enqueue(orchestrator.ShutdownIntent{})
	}()

	slog.Info("gramophone listening", "addr", cfg.Listen, "channels", cfg.Channels, "sample_rate", cfg.SampleRate)
	octx.Run()
}

// probeFiles opens every configured file once at startup: a decoder-open
// failure or a sample-rate mismatch is fatal, a channel count larger than
// the configured output width is only a warning (extra channels are
// simply never routed).
func probeFiles(cfg config.Config) error {
	for name, fe := range cfg.Files {
		src, err := decoderadapter.Open(fe.URI)
		if err != nil {
			return fmt.Errorf("probing file %q (%s): %w", name, fe.URI, err)
		}
		if src.SampleRate() != cfg.SampleRate {
			src.Close()
			return fmt.Errorf("file %q (%s): sample rate %d does not match configured %d", name, fe.URI, src.SampleRate(), cfg.SampleRate)
		}
		if src.Channels() > len(cfg.Channels) {
			slog.Warn("file has more channels than configured outputs", "file", name, "file_channels", src.Channels(), "configured_channels", len(cfg.Channels))
		}
		src.Close()
	}
	return nil
}
