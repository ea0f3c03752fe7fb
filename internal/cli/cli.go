// Package cli implements the gradlab command-line interface.
//
// # Commands
//
//   - upload: send an image to the lab service and print its gradient maps
//   - edit: replay a stroke script on an image, reconstruct and export
//   - analyze: score a single image
//   - compare: score two images side by side
//   - serve: run the local session API for browser frontends
//   - config: show or initialise the configuration file
//   - cache: manage the response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// attached to the command context and retrieved with loggerFromContext.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gradlab/pkg/brush"
	"github.com/matzehuels/gradlab/pkg/buildinfo"
	"github.com/matzehuels/gradlab/pkg/cache"
	"github.com/matzehuels/gradlab/pkg/composite"
	"github.com/matzehuels/gradlab/pkg/config"
	"github.com/matzehuels/gradlab/pkg/integrations/lab"
	"github.com/matzehuels/gradlab/pkg/observability"
	"github.com/matzehuels/gradlab/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	apiURL     string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "gradlab edits images in the gradient domain",
		Long:         `gradlab uploads images to a gradient lab service, paints edits onto their dx/dy derivative maps and asks the service to reconstruct the edited image.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.NewLogHooks(c.Logger).Install()
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/gradlab/config.toml)")
	flags.StringVar(&c.apiURL, "api", "", "lab service base URL (overrides config and "+config.EnvAPIURL+")")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the response cache")

	root.AddCommand(c.uploadCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Service Factory
// =============================================================================

// loadConfig reads the configuration and applies command-line overrides.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if c.noCache {
		cfg.Cache.Backend = cache.BackendNone
	}
	if cfg.Source != "" {
		c.Logger.Debug("config loaded", "path", cfg.Source)
	}
	return cfg, nil
}

// newClient builds a lab client backed by the configured cache. The returned
// close function releases the cache.
func (c *CLI) newClient(ctx context.Context, cfg *config.Config) (*lab.Client, func(), error) {
	backend, err := newCache(ctx, cfg, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	client := lab.NewClient(backend, cfg.API.BaseURL, cfg.Cache.TTL)
	client.SetTimeout(cfg.API.Timeout)
	c.Logger.Debug("lab client", "base", client.BaseURL(), "cache", cfg.Cache.Backend)
	return client, func() { _ = backend.Close() }, nil
}

// newCache opens the configured backend. A remote backend that cannot be
// reached degrades to no caching rather than failing the command.
func newCache(ctx context.Context, cfg *config.Config, logger *log.Logger) (cache.Cache, error) {
	opts, err := cfg.CacheOptions()
	if err != nil {
		logger.Warn("cache directory unavailable, caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	if opts.Backend == cache.BackendFile {
		return cache.Open(ctx, opts)
	}
	openCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	backend, err := cache.Open(openCtx, opts)
	if err != nil {
		logger.Warn("cache backend unavailable, caching disabled", "backend", opts.Backend, "error", err)
		return cache.NewNullCache(), nil
	}
	return backend, nil
}

// sessionConfig derives edit session settings from the configuration.
func (c *CLI) sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Logger:   c.Logger,
		Renderer: composite.NewRenderer(composite.WithBlend(cfg.BlendMode().Func())),
		Brush: brush.Spec{
			Tool:     brush.ToolDX,
			Radius:   cfg.Brush.Radius,
			Strength: cfg.Brush.Strength,
		},
		Mode:    lab.Mode(cfg.API.Mode),
		Spacing: cfg.Brush.Spacing,
	}
}
