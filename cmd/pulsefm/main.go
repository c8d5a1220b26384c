// Command pulsefm composes an FM stereo multiplex with RDS and either
// plays it on the default audio device or renders it to a WAV file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imhsouna/PulseFM/internal/config"
	"github.com/imhsouna/PulseFM/internal/engine"
	"github.com/imhsouna/PulseFM/internal/mpx"
	"github.com/imhsouna/PulseFM/internal/wavio"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to YAML configuration")
		outPath    = flag.String("out", "", "render to a WAV file instead of playing")
		duration   = flag.Duration("duration", 30*time.Second, "length of the rendered file")
		rate       = flag.Int("rate", 0, "override the delivery sample rate")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Error("configuration rejected", "err", err)
			return 1
		}
	}
	if *rate != 0 {
		cfg.Output.SampleRate = *rate
		if err := cfg.Validate(); err != nil {
			log.Error("configuration rejected", "err", err)
			return 1
		}
	}

	var (
		src   mpx.Source = mpx.Silence{}
		track *wavio.Track
	)
	if cfg.Input.File != "" {
		var err error
		if track, err = wavio.Load(cfg.Input.File, cfg.Input.Loop); err != nil {
			log.Error("cannot load programme audio", "file", cfg.Input.File, "err", err)
			return 1
		}
		src = track
		log.Info("programme audio loaded", "file", cfg.Input.File,
			"duration", time.Duration(track.Frames())*time.Second/mpx.SampleRate)
	} else {
		log.Info("no input file, composing pilot and RDS over silence")
	}

	if *outPath != "" {
		return export(log, cfg, src, *outPath, *duration)
	}
	return play(log, cfg, src, track)
}

func export(log *slog.Logger, cfg *config.Config, src mpx.Source, path string, duration time.Duration) int {
	f, err := os.Create(path)
	if err != nil {
		log.Error("cannot create output file", "err", err)
		return 1
	}
	defer f.Close()

	comp := mpx.NewComposer(cfg, src)
	lastPercent := -1
	err = wavio.Export(f, comp, duration, func(done, total int) {
		if percent := done * 100 / total; percent/10 > lastPercent/10 {
			lastPercent = percent
			log.Info("rendering", "percent", percent)
		}
	})
	if err != nil {
		log.Error("render failed", "err", err)
		return 1
	}
	log.Info("render complete", "file", path, "duration", duration)
	return 0
}

func play(log *slog.Logger, cfg *config.Config, src mpx.Source, track *wavio.Track) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := engine.New(cfg, engine.NewOtoSink(cfg.Output.SampleRate), log)
	if err := e.Start(src); err != nil {
		log.Error("cannot start stream", "err", err)
		return 1
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			break loop
		case <-ticker.C:
			if track != nil && track.Done() {
				log.Info("programme audio finished")
				break loop
			}
			m := e.Meters()
			log.Debug("levels",
				"rms", fmt.Sprintf("%.3f", m.RMS),
				"peak", fmt.Sprintf("%.3f", m.Peak),
				"pilot", fmt.Sprintf("%.3f", m.Pilot),
				"rds", fmt.Sprintf("%.3f", m.RDS))
		}
	}

	if err := e.Stop(); err != nil {
		log.Error("stop failed", "err", err)
		return 1
	}
	return 0
}
