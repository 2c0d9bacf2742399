// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"audiorelay/internal/audio"
	"audiorelay/internal/client"
	"audiorelay/internal/config"
	"audiorelay/internal/engine"
	applog "audiorelay/internal/log"
	"audiorelay/internal/pipeline"
	"audiorelay/internal/server"
	"audiorelay/internal/session"
	"audiorelay/internal/tui"
	"audiorelay/pkg/build"

	"github.com/spf13/cobra"
)

// cliFlags holds flag values. Only flags the user set override the
// loaded configuration.
type cliFlags struct {
	configPath string
	logLevel   string
	debug      bool

	host           string
	port           int
	relayAudio     bool
	gateThreshold  float64
	targetLanguage string
	transcriber    string
	translator     string

	serverURL   string
	deviceID    int
	captureRate float64
	lowLatency  bool
	record      bool
	outputFile  string
	tuiMode     bool
	pick        bool
}

// Execute runs the CLI against os.Args.
func Execute() error {
	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	buildInfo := build.GetBuildInfo()
	flags := &cliFlags{}
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd, loaded)
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			configureLogging(loaded)
			cfg = loaded
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml or ./audiorelay.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false,
		"Development logging with stack traces")

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().StringVar(&flags.host, "host", config.DefaultHost, "Interface to bind")
	serveCmd.Flags().IntVarP(&flags.port, "port", "p", config.DefaultPort, "TCP port to bind")
	serveCmd.Flags().BoolVar(&flags.relayAudio, "relay-audio", config.DefaultRelayAudio,
		"Broadcast every inbound audio chunk to all connected clients")
	serveCmd.Flags().Float64Var(&flags.gateThreshold, "gate-threshold", config.DefaultGateThreshold,
		"Skip windows whose peak amplitude is below this (0 disables)")
	serveCmd.Flags().StringVarP(&flags.targetLanguage, "target-language", "t", config.DefaultTargetLanguage,
		"Language to translate into")
	serveCmd.Flags().StringVar(&flags.transcriber, "transcriber", config.DefaultTranscriber,
		"Transcription backend: stub or openai")
	serveCmd.Flags().StringVar(&flags.translator, "translator", config.DefaultTranslator,
		"Translation backend: stub, openai or anthropic")
	rootCmd.AddCommand(serveCmd)

	// Stream command
	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Capture microphone audio and stream it to a relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd.Context(), cfg, flags.pick)
		},
	}
	streamCmd.Flags().StringVarP(&flags.serverURL, "server-url", "u", config.DefaultServerURL,
		"WebSocket endpoint of the relay")
	streamCmd.Flags().IntVarP(&flags.deviceID, "device", "d", config.DefaultInputDevice,
		"Specify input device ID. Use 'list' command to see available devices.")
	streamCmd.Flags().Float64VarP(&flags.captureRate, "capture-rate", "s", 0,
		"Device sample rate in Hz, resampled to the stream rate (0 uses the stream rate)")
	streamCmd.Flags().BoolVarP(&flags.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	streamCmd.Flags().BoolVarP(&flags.record, "record", "r", false,
		"Also record captured audio to a WAV file")
	streamCmd.Flags().StringVarP(&flags.outputFile, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	streamCmd.Flags().BoolVar(&flags.tuiMode, "tui", false, "Show results in the terminal UI")
	streamCmd.Flags().BoolVar(&flags.pick, "pick", false, "Choose the input device interactively")
	rootCmd.AddCommand(streamCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.FprintDevices(cmd.OutOrStdout())
		},
	}
	rootCmd.AddCommand(listCmd)

	return rootCmd
}

// apply copies every flag the user set onto cfg.
func (f *cliFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	if changed("host") {
		cfg.Server.Host = f.host
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("relay-audio") {
		cfg.Server.RelayAudio = f.relayAudio
	}
	if changed("gate-threshold") {
		cfg.Audio.GateThreshold = f.gateThreshold
	}
	if changed("target-language") {
		cfg.Engine.TargetLanguage = f.targetLanguage
	}
	if changed("transcriber") {
		cfg.Engine.Transcriber = f.transcriber
	}
	if changed("translator") {
		cfg.Engine.Translator = f.translator
	}
	if changed("server-url") {
		cfg.Client.ServerURL = f.serverURL
	}
	if changed("device") {
		cfg.Client.InputDevice = f.deviceID
	}
	if changed("capture-rate") {
		cfg.Client.CaptureRate = f.captureRate
	}
	if changed("low-latency") {
		cfg.Client.LowLatency = f.lowLatency
	}
	if changed("record") {
		cfg.Client.Record = f.record
	}
	if changed("output") {
		cfg.Client.OutputFile = f.outputFile
	}
	if changed("tui") {
		cfg.Client.TUI = f.tuiMode
	}
}

func configureLogging(cfg *config.Config) {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("Unknown log level %q, using INFO", cfg.LogLevel)
	}
	applog.Configure(level, cfg.Debug)
}

// runServe wires the engines, pipeline and session loop behind the HTTP
// server and blocks until a signal or a listener failure.
func runServe(ctx context.Context, cfg *config.Config) error {
	transcriber, translator, err := engine.New(cfg.Engine)
	if err != nil {
		return err
	}

	p := pipeline.New(transcriber, translator, pipeline.Options{
		SampleRate:     cfg.Audio.SampleRate,
		TargetLanguage: cfg.Engine.TargetLanguage,
		Timeout:        cfg.Engine.Timeout,
		Gate:           audio.NewGate(cfg.Audio.GateThreshold),
	})
	registry := session.NewRegistry()
	loop := session.NewLoop(registry, p, session.LoopOptions{
		ThresholdBytes: cfg.Audio.ThresholdBytes(),
		RelayAudio:     cfg.Server.RelayAudio,
	})
	srv := server.New(cfg.Server, registry, loop)

	applog.Infof("Relay: transcriber=%s translator=%s target=%s window=%d bytes",
		cfg.Engine.Transcriber, cfg.Engine.Translator, cfg.Engine.TargetLanguage, cfg.Audio.ThresholdBytes())

	ctx, stop := signalContext(ctx)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.Warnf("Relay: shutdown incomplete: %v", err)
	}
	return <-serveErr
}

// runStream captures and streams until a signal, the server closing the
// connection, or the user quitting the TUI.
func runStream(ctx context.Context, cfg *config.Config, pick bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	device := fmt.Sprintf("device %d", cfg.Client.InputDevice)
	if pick {
		sel, err := tui.PickDevice()
		if err != nil {
			return err
		}
		if sel == nil {
			return nil
		}
		cfg.Client.InputDevice = sel.DeviceID
		cfg.Client.CaptureRate = sel.SampleRate
		device = sel.DeviceName
	}

	ctx, stop := signalContext(ctx)
	defer stop()

	if !cfg.Client.TUI {
		err := client.Run(ctx, cfg, client.NewPrinter(os.Stdout))
		if errors.Is(err, client.ErrServerClosed) {
			applog.Infof("Client: server closed the connection")
			return nil
		}
		return err
	}

	// The TUI owns the terminal, so keep log output off it.
	applog.SetLevel(applog.LevelError)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := tui.NewResultsView(cfg.Client.ServerURL, device, cancel)
	streamErr := make(chan error, 1)
	go func() {
		err := client.Run(ctx, cfg, view)
		view.Done(err)
		streamErr <- err
	}()

	if err := view.Run(); err != nil {
		cancel()
		<-streamErr
		return err
	}
	cancel()
	if err := <-streamErr; err != nil && !errors.Is(err, client.ErrServerClosed) {
		return err
	}
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
