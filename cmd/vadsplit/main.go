// Command vadsplit finds speech in audio files and splits them into
// segments. It can also serve segmentation over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/MrWong99/vadsplit/internal/app"
	"github.com/MrWong99/vadsplit/internal/cli"
	"github.com/MrWong99/vadsplit/internal/config"
	"github.com/MrWong99/vadsplit/internal/health"
	"github.com/MrWong99/vadsplit/internal/observe"
	"github.com/MrWong99/vadsplit/internal/server"
	"github.com/MrWong99/vadsplit/pkg/audio"
	"github.com/MrWong99/vadsplit/pkg/audio/mp3"
	"github.com/MrWong99/vadsplit/pkg/audio/wav"
	"github.com/MrWong99/vadsplit/pkg/provider/vad"
	"github.com/MrWong99/vadsplit/pkg/provider/vad/energy"
	"github.com/MrWong99/vadsplit/pkg/provider/vad/webrtc"
)

var version = "0.1.0"

const description = "Voice activity segmentation for WAV and MP3 audio"

// CLI defines the command-line interface.
type CLI struct {
	Config   string `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	LogLevel string `name:"log-level" help:"Override the configured log level (debug, info, warn, error)"`

	Spans   SpansCmd   `cmd:"" help:"Print speech and silence spans of audio files"`
	Split   SplitCmd   `cmd:"" help:"Write every speech span of a file to its own WAV file"`
	Serve   ServeCmd   `cmd:"" help:"Serve segmentation over HTTP"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// SegmenterFlags override the configured segmentation defaults. Unset flags
// keep the configured value.
type SegmenterFlags struct {
	Mode      *int     `short:"m" help:"0-3 for classifier aggressiveness, 4 for the energy and zero crossing path"`
	FrameMs   *int     `name:"frame-ms" help:"Frame duration in ms (10, 20 or 30)"`
	PaddingMs *int     `name:"padding-ms" help:"Hysteresis window in ms"`
	Threshold *float64 `short:"t" help:"Fraction of window frames needed to flip state"`
	RMS       *float64 `name:"threshold-rms" help:"RMS threshold for mode 4"`
	ZCR       *float64 `name:"threshold-zcr" help:"Zero crossing rate threshold for mode 4"`
}

func (f SegmenterFlags) apply(s *config.SegmenterConfig) {
	set(&s.Mode, f.Mode)
	set(&s.FrameDurationMs, f.FrameMs)
	set(&s.PaddingDurationMs, f.PaddingMs)
	set(&s.ThresholdVoiceFrames, f.Threshold)
	set(&s.ThresholdRMS, f.RMS)
	set(&s.ThresholdZCR, f.ZCR)
}

// set copies *v into dst when the flag was given.
func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// env is bound into every command's Run method.
type env struct {
	ctx        context.Context
	cfg        *config.Config
	configPath string
	reg        *config.Registry
	level      *slog.LevelVar
	stdout     io.Writer
}

func main() {
	os.Exit(run())
}

func run() int {
	var c CLI
	parser, err := kong.New(&c,
		kong.Name("vadsplit"),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(description)),
	)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	cfg := config.Default()
	if c.Config != "" {
		if cfg, err = config.Load(c.Config); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				cli.PrintError(fmt.Sprintf("config file %q not found", c.Config))
			} else {
				cli.PrintError(err.Error())
			}
			return 1
		}
	}
	if c.LogLevel != "" {
		lvl := config.LogLevel(c.LogLevel)
		if !lvl.IsValid() {
			cli.PrintError(fmt.Sprintf("unknown log level %q", c.LogLevel))
			return 1
		}
		cfg.LogLevel = lvl
	}

	var level slog.LevelVar
	level.Set(slogLevel(cfg.LogLevel))
	slog.SetDefault(newLogger(&level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	e := &env{
		ctx:        ctx,
		cfg:        cfg,
		configPath: c.Config,
		reg:        reg,
		level:      &level,
		stdout:     os.Stdout,
	}
	if err := kctx.Run(e); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		cli.PrintError(err.Error())
		return 1
	}
	return 0
}

// SpansCmd prints the spans of each file.
type SpansCmd struct {
	SegmenterFlags `embed:""`

	Files  []string `arg:"" name:"files" type:"existingfile" help:"Audio files to segment"`
	Jobs   int      `short:"j" default:"4" help:"Files processed concurrently"`
	Format string   `short:"o" help:"Output format (table, json, yaml)"`
}

func (cmd *SpansCmd) Run(e *env) error {
	cmd.apply(&e.cfg.Segmenter)
	format := e.cfg.Output.Format
	if cmd.Format != "" {
		format = config.OutputFormat(cmd.Format)
	}
	if !format.IsValid() {
		return fmt.Errorf("unknown output format %q", format)
	}
	if err := config.Validate(e.cfg); err != nil {
		return err
	}

	a, err := app.New(e.cfg, e.reg)
	if err != nil {
		return err
	}
	results, err := a.SegmentFiles(e.ctx, cmd.Files, cmd.Jobs)
	if err != nil {
		return err
	}
	return cli.Render(e.stdout, format, results)
}

// SplitCmd writes speech spans to separate files.
type SplitCmd struct {
	SegmenterFlags `embed:""`

	Input        string `arg:"" type:"existingfile" help:"Audio file to split"`
	Output       string `arg:"" help:"Output name; segments are written as <output>_<n>.wav"`
	AnalysisRate bool   `name:"analysis-rate" help:"Write segments at the analysis rate instead of the source rate"`
}

func (cmd *SplitCmd) Run(e *env) error {
	cmd.apply(&e.cfg.Segmenter)
	if cmd.AnalysisRate {
		e.cfg.Output.KeepSourceRate = false
	}
	if err := config.Validate(e.cfg); err != nil {
		return err
	}

	a, err := app.New(e.cfg, e.reg)
	if err != nil {
		return err
	}
	written, err := a.SplitFile(e.ctx, cmd.Input, cmd.Output)
	for _, p := range written {
		cli.PrintSaved(e.stdout, p)
	}
	return err
}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Listen string        `short:"l" help:"Listen address (default from config)"`
	Watch  time.Duration `default:"5s" help:"Config poll interval; 0 disables reloading"`
}

func (cmd *ServeCmd) Run(e *env) error {
	if cmd.Listen != "" {
		e.cfg.Server.ListenAddr = cmd.Listen
	}

	shutdown, err := observe.InitProvider(e.ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	a, err := app.New(e.cfg, e.reg)
	if err != nil {
		return err
	}

	if e.configPath != "" && cmd.Watch > 0 {
		w, err := config.NewWatcher(e.configPath, func(old, new *config.Config) {
			d := config.Diff(old, new)
			if d.LogLevelChanged {
				e.level.Set(slogLevel(new.LogLevel))
			}
			if d.ServerChanged {
				slog.Warn("server settings changed; restart to apply")
			}
			if err := a.Reload(new); err != nil {
				slog.Error("config reload failed", "err", err)
			}
		}, config.WithInterval(cmd.Watch))
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := server.New(a,
		server.WithMaxBodyBytes(e.cfg.Server.MaxBodyBytes),
		server.WithCheckers(engineChecker(a)),
	)
	slog.Info("vadsplit serving",
		"addr", e.cfg.Server.ListenAddr,
		"engine", e.cfg.VAD.Engine,
		"mode", e.cfg.Segmenter.Mode,
	)
	return srv.ListenAndServe(e.ctx, e.cfg.Server.ListenAddr)
}

// engineChecker reports ready when the current engine can open a session.
func engineChecker(a *app.App) health.Checker {
	return health.Checker{
		Name: "vad",
		Check: func(context.Context) error {
			s, err := a.Engine().NewSession(vad.Config{SampleRate: 16000, FrameSizeMs: 10})
			if err != nil {
				return err
			}
			return s.Close()
		},
	}
}

// VersionCmd prints build information.
type VersionCmd struct{}

func (VersionCmd) Run(e *env) error {
	cli.PrintVersion(e.stdout, version,
		[2]string{"WebRTC VAD", strconv.FormatBool(webrtc.Available())},
		[2]string{"Formats", fmt.Sprint(e.reg.Formats())},
	)
	return nil
}

// registerBuiltinProviders wires the built-in engines and decoders into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterVAD("webrtc", func(config.VADConfig) (vad.Engine, error) {
		if !webrtc.Available() {
			return nil, fmt.Errorf("%w; set vad.engine to \"energy\" or rebuild with CGO_ENABLED=1", webrtc.ErrUnavailable)
		}
		return webrtc.New(), nil
	})
	reg.RegisterVAD("energy", func(c config.VADConfig) (vad.Engine, error) {
		var opts []energy.Option
		if floor, ok := config.OptFloat(c.Options, "floor_dbfs"); ok {
			opts = append(opts, energy.WithFloor(floor))
		}
		return energy.New(opts...), nil
	})

	reg.RegisterDecoder("wav", wav.Load)
	reg.RegisterDecoder("mp3", func(r io.ReadSeeker, targetRate int) (audio.Clip, int, error) {
		return mp3.Load(r, targetRate)
	})

	slog.Debug("registered providers", "engines", config.KnownEngines, "formats", reg.Formats())
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
