// Package main provides the CLI entry point for scrubview.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/scrubview/pkg/adapters/filefetch"
	"github.com/user/scrubview/pkg/adapters/filesink"
	"github.com/user/scrubview/pkg/adapters/ggsurface"
	"github.com/user/scrubview/pkg/adapters/httpfetch"
	"github.com/user/scrubview/pkg/adapters/logger"
	"github.com/user/scrubview/pkg/adapters/nullsink"
	"github.com/user/scrubview/pkg/adapters/osfilesystem"
	"github.com/user/scrubview/pkg/config"
	"github.com/user/scrubview/pkg/decodepipe"
	"github.com/user/scrubview/pkg/player"
	"github.com/user/scrubview/pkg/ports"
	"github.com/user/scrubview/pkg/scrub"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:  "scrubview",
		Usage: l10n.T("Frame-accurate video scrubbing from normalized progress"),
		Commands: []*cli.Command{
			scrubCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func scrubCommand() *cli.Command {
	return &cli.Command{
		Name:      "scrub",
		Usage:     l10n.T("Scrub a video through a sequence of progress values"),
		ArgsUsage: "SRC",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file path")},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: l10n.T("Directory for painted frame output")},
			&cli.IntFlag{Name: "steps", Value: 30, Usage: l10n.T("Number of evenly spaced progress steps")},
			&cli.StringFlag{Name: "script", Usage: l10n.T("File with one progress value per line (overrides --steps)")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Paint surface width (default: 640)")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Paint surface height (default: 360)")},
			&cli.BoolFlag{Name: "no-decode", Usage: l10n.T("Disable frame decoding, use direct playback only")},
			&cli.StringFlag{Name: "ffmpeg", Usage: l10n.T("Path to ffmpeg executable")},
			&cli.BoolFlag{Name: "direct-seek-forward", Usage: l10n.T("Seek forward directly instead of rate-modulated play")},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Enable debug output")},
			&cli.StringFlag{Name: "debug-dir", Value: "./debug", Usage: l10n.T("Directory for debug output")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output")},
		},
		Action: runScrub,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Println(l10n.F("scrubview (Go) version %s", version))
			return nil
		},
	}
}

func runScrub(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	if cfg.Src == "" {
		return cli.Exit(l10n.T("SRC argument is required"), 2)
	}

	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn(l10n.T("Interrupted, shutting down..."))
		cancel()
	}()

	fs := osfilesystem.New()

	var sink ports.FrameSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs)
	} else {
		sink = nullsink.New()
	}

	paint := ggsurface.New()
	paint.Resize(cfg.CanvasWidth, cfg.CanvasHeight)

	frameDecode := cfg.FrameDecode
	p, err := player.New(player.Options{
		Src:         cfg.Src,
		PaintTarget: paint,
		FrameDecode: &frameDecode,
		OnReady: func(frameCount int) {
			log.Info(l10n.F("Ready: %d decoded frames", frameCount))
		},
		Tunables: scrub.Tunables{
			TransitionSpeedCap: cfg.TransitionSpeedCap,
			FrameThreshold:     cfg.FrameThreshold,
			RateGain:           cfg.RateGain,
			RateLimit:          cfg.RateLimit,
		},
		Capabilities: scrub.Capabilities{DirectSeekForward: cfg.DirectSeekForward},
		DecodeConfig: decodepipe.Config{
			SettleDelay: time.Duration(cfg.SettleDelayMs) * time.Millisecond,
			DrainPoll:   10 * time.Millisecond,
		},
		FFmpegPath: cfg.FFmpegPath,
		TickFPS:    cfg.TickFPS,
		Fetcher:    pickFetcher(cfg.Src, fs),
		Sink:       sink,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer p.Destroy()

	log.Info(l10n.F("Loading %s...", cfg.Src))
	if err := p.Load(ctx); err != nil {
		return err
	}

	steps, err := progressSteps(c, fs)
	if err != nil {
		return err
	}

	var painted ports.FrameSink = nullsink.New()
	if c.String("out") != "" {
		if err := fs.MkdirAll(c.String("out")); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		painted = filesink.New(c.String("out"), fs)
	}

	for i, progress := range steps {
		p.SetProgress(progress)
		if err := waitSettled(ctx, p); err != nil {
			return err
		}
		log.Debug(l10n.F("Step %d: progress %.3f at %.3fs", i, progress, p.CurrentTime()))
		if img := paint.Image(); img != nil {
			if err := painted.SavePaintedFrame(i, img); err != nil {
				return fmt.Errorf("save painted frame %d: %w", i, err)
			}
		}
	}

	if c.String("out") != "" {
		log.Info(l10n.F("Output saved to %s", c.String("out")))
	}
	return nil
}

// buildConfig layers the optional config file and CLI flags over the
// defaults. Flags win.
func buildConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if src := c.Args().First(); src != "" {
		cfg.Src = src
	}
	if c.IsSet("width") {
		cfg.CanvasWidth = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.CanvasHeight = c.Int("height")
	}
	if c.Bool("no-decode") {
		cfg.FrameDecode = false
	}
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	if c.Bool("direct-seek-forward") {
		cfg.DirectSeekForward = true
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

// pickFetcher picks HTTP streaming for URL sources and chunked file
// reads for local paths.
func pickFetcher(src string, fs ports.FileSystem) ports.Fetcher {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return httpfetch.New(nil)
	}
	return filefetch.New(fs)
}

// progressSteps returns the progress sequence to replay: the script
// file when given, or an even sweep from 0 to 1.
func progressSteps(c *cli.Context, fs ports.FileSystem) ([]float64, error) {
	if path := c.String("script"); path != "" {
		return readScript(path, fs)
	}

	n := c.Int("steps")
	if n < 2 {
		n = 2
	}
	steps := make([]float64, n)
	for i := range steps {
		steps[i] = float64(i) / float64(n-1)
	}
	return steps, nil
}

// readScript parses one progress value per line. Blank lines and
// #-comments are skipped.
func readScript(path string, fs ports.FileSystem) ([]float64, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var steps []float64
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("script line %d: %w", line, err)
		}
		steps = append(steps, v)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("script %s: no progress values", path)
	}
	return steps, nil
}

// waitSettled polls until the in-flight transition finishes.
func waitSettled(ctx context.Context, p *player.Player) error {
	for p.Scrubbing() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
	return nil
}
