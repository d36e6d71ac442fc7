// Package main provides the PlayTabQ daemon. It drives a Chromium browser,
// watches the videos playing in its tabs and, when one ends, moves on to the
// neighbouring tab and starts its video. The toolbar icon and the settings
// popup are shown in the terminal, or logged in headless mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bananameter/playtabq/pkg/config"
	"github.com/bananameter/playtabq/pkg/controller"
	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/host/cdp"
	"github.com/bananameter/playtabq/pkg/host/playwright"
	"github.com/bananameter/playtabq/pkg/logging"
	"github.com/bananameter/playtabq/pkg/match"
	"github.com/bananameter/playtabq/pkg/messaging"
	"github.com/bananameter/playtabq/pkg/settings"
)

const version = "0.1.0" // Version of the PlayTabQ daemon

// CLIConfig holds command-line configuration. Flags override the config
// file.
type CLIConfig struct {
	ConfigFile      string
	Backend         string
	CDPURL          string
	BrowserHeadless bool
	SettingsPath    string
	Verbosity       string
	Headless        bool
	ShowVersion     bool
}

// backend is a connected browser.
type backend interface {
	Start(ctx context.Context) error
	Shutdown()
}

// daemon holds the wired components shared by both toolbar modes.
type daemon struct {
	cfg      *config.Config
	log      *logging.Logger
	browser  *host.Browser
	bus      *messaging.Bus
	settings *settings.Manager
	matcher  *match.Matcher
}

func main() {
	// Parse command line flags
	cliConfig := parseFlags()

	// Show version if requested
	if cliConfig.ShowVersion {
		fmt.Printf("PlayTabQ v%s\n", version)
		return
	}

	cfg, err := loadConfig(cliConfig)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if runErr := run(ctx, cliConfig, cfg); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
	cancel()
}

// parseFlags parses command line flags and environment variables
func parseFlags() *CLIConfig {
	c := &CLIConfig{}

	flag.StringVar(&c.ConfigFile, "config", "", "Path to daemon configuration file (YAML)")
	flag.StringVar(&c.Backend, "backend", "", "Browser backend: playwright or cdp")
	flag.StringVar(&c.CDPURL, "cdp-url", os.Getenv("PLAYTABQ_CDP_URL"), "DevTools URL of a running browser (or set PLAYTABQ_CDP_URL env var)")
	flag.BoolVar(&c.BrowserHeadless, "browser-headless", false, "Run the launched browser without a window")
	flag.StringVar(&c.SettingsPath, "settings", "", "Path to the settings file (default: ~/.playtabq/settings.json)")
	flag.StringVar(&c.Verbosity, "verbosity", "", "Logging verbosity: quiet, normal, verbose or debug")
	flag.BoolVar(&c.Headless, "headless", false, "Log the toolbar instead of drawing it (commands on stdin)")
	flag.BoolVar(&c.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "PlayTabQ - auto-advance video playback across browser tabs\n\n")
		fmt.Fprintf(os.Stderr, "Usage: playtabq [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PLAYTABQ_CDP_URL   DevTools URL of a running browser\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  playtabq                                   # launch Chromium with Playwright\n")
		fmt.Fprintf(os.Stderr, "  playtabq -backend cdp -cdp-url ws://127.0.0.1:9222/devtools/browser/<id>\n")
		fmt.Fprintf(os.Stderr, "  playtabq -config playtabq.yaml -headless\n")
	}

	flag.Parse()
	return c
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(c *CLIConfig) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if c.ConfigFile != "" {
		loaded, err := config.Load(c.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.Backend != "" {
		cfg.Backend = config.Backend(c.Backend)
	}
	if c.CDPURL != "" {
		cfg.CDPURL = c.CDPURL
		if c.Backend == "" {
			cfg.Backend = config.BackendCDP
		}
	}
	if c.BrowserHeadless {
		cfg.BrowserHeadless = true
	}
	if c.SettingsPath != "" {
		cfg.SettingsPath = c.SettingsPath
	}
	if c.Verbosity != "" {
		cfg.Logging.Verbosity = c.Verbosity
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run wires the daemon and hands control to the toolbar until ctx ends.
func run(ctx context.Context, cliConfig *CLIConfig, cfg *config.Config) error {
	logging.SetLevel(logging.ParseLevel(cfg.Logging.Verbosity))
	if cfg.Logging.Directory != "" {
		logging.SetLogDirectory(cfg.Logging.Directory)
	}
	logger, err := logging.NewLogger("playtabq")
	if err != nil && !cliConfig.Headless {
		// stderr fallback would draw over the TUI
		logger = logging.Discard("playtabq")
	}
	defer logger.Close()

	store, err := settings.NewFileStore(cfg.SettingsPath)
	if err != nil {
		return err
	}
	matcher, err := cfg.Matcher()
	if err != nil {
		return err
	}

	d := &daemon{
		cfg:      cfg,
		log:      logger,
		browser:  host.NewBrowser(nil),
		bus:      messaging.NewBus(),
		settings: settings.NewManager(store),
		matcher:  matcher,
	}

	if cliConfig.Headless {
		return runHeadless(ctx, d)
	}
	return runTUI(ctx, d)
}

// newBackend creates the configured browser backend.
func (d *daemon) newBackend() backend {
	switch d.cfg.Backend {
	case config.BackendCDP:
		return cdp.New(cdp.Config{
			URL:         d.cfg.CDPURL,
			UserDataDir: d.cfg.UserDataDir,
			Headless:    d.cfg.BrowserHeadless,
			StartURLs:   d.cfg.StartURLs,
			Browser:     d.browser,
			Channel:     d.bus,
			Settings:    d.settings,
			Logger:      d.log.With("cdp"),
		})
	default:
		return playwright.New(playwright.Config{
			UserDataDir: d.cfg.UserDataDir,
			Headless:    d.cfg.BrowserHeadless,
			StartURLs:   d.cfg.StartURLs,
			Browser:     d.browser,
			Channel:     d.bus,
			Settings:    d.settings,
			Logger:      d.log.With("playwright"),
		})
	}
}

// start wires the controller to toolbar and connects the browser. The
// returned func undoes both.
func (d *daemon) start(ctx context.Context, toolbar controller.Toolbar) (*controller.Controller, func(), error) {
	ctrl := controller.New(controller.Config{
		Tabs:     d.browser,
		Runtime:  d.bus,
		Settings: d.settings,
		Matcher:  d.matcher,
		Toolbar:  toolbar,
		Logger:   d.log.With("controller"),
	})
	stopController := ctrl.Start(ctx)

	b := d.newBackend()
	if err := b.Start(ctx); err != nil {
		stopController()
		return nil, nil, err
	}
	d.log.Infof("PlayTabQ v%s started with the %s backend", version, d.cfg.Backend)

	return ctrl, func() {
		stopController()
		b.Shutdown()
	}, nil
}
