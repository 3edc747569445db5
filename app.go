package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	idea "reel-studio/01_idea"
	background "reel-studio/02_background"
	style "reel-studio/03_style"
	compose "reel-studio/04_compose"
	publish "reel-studio/05_publish"
	"reel-studio/config"
	"reel-studio/logging"
	"reel-studio/session"
)

const defaultConfigPath = "config.yaml"

// app is every stage wired from one configuration
type app struct {
	cfg      *config.Config
	creds    config.Credentials
	ideas    *idea.Router
	bg       *background.Source
	composer *compose.Composer
	styles   *style.Catalog
	uploader *publish.Uploader
	logFile  io.Closer
}

// setup loads configuration and builds the stages. logToFile sends logs to
// <paths.logs>/studio.log instead of stderr so they do not draw over the UI.
func setup(configPath string, logToFile bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, creds: config.CredentialsFromEnv()}
	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr}
	if logToFile {
		if err := os.MkdirAll(cfg.Paths.Logs, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", cfg.Paths.Logs, err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Paths.Logs, "studio.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open studio log: %w", err)
		}
		a.logFile = f
		logCfg.Output = f
		logCfg.Format = "json"
	}
	// components capture their logger at construction
	logging.Init(logCfg)

	a.ideas, err = idea.NewRouter(cfg, a.creds, nil)
	if err != nil {
		a.close()
		return nil, err
	}
	a.bg = background.FromConfig(cfg.Background, a.creds.PexelsKey)
	a.composer = compose.New(compose.OptionsFromConfig(cfg.Render))
	a.styles = style.Default()
	a.uploader = publish.New(cfg.Upload, a.creds)
	return a, nil
}

func (a *app) openSession(duration float64) (*session.Session, error) {
	return session.Open(session.Options{
		Root:     a.cfg.Paths.Sessions,
		Persona:  a.cfg.Profile.Persona,
		Tone:     a.cfg.Profile.Tone,
		Keep:     a.cfg.Paths.KeepSessions,
		Duration: duration,
	}, session.Deps{
		Ideas:       a.ideas,
		Backgrounds: a.bg,
		Composer:    a.composer,
		Publisher:   a.uploader,
		Styles:      a.styles,
	})
}

func (a *app) selectProvider(name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	p, err := config.ParseProvider(name)
	if err != nil {
		return err
	}
	return a.ideas.Select(p)
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM so HTTP calls and ffmpeg stop
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	cfg := fs.String("config", defaultConfigPath, "config file path")
	return fs, cfg
}
