package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gradlab/pkg/cache"
	"github.com/matzehuels/gradlab/pkg/config"
	"github.com/matzehuels/gradlab/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached responses and rasters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			count, err := clearCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Location: %s", cacheLocation(cfg))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache lives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(cacheLocation(cfg))
			return nil
		},
	}
}

// clearCache empties the configured backend and returns the number of
// entries removed.
func clearCache(ctx context.Context, cfg *config.Config) (int, error) {
	opts, err := cfg.CacheOptions()
	if err != nil {
		return 0, err
	}
	backend, err := cache.Open(ctx, opts)
	if err != nil {
		return 0, err
	}
	defer backend.Close()

	switch b := backend.(type) {
	case *cache.FileCache:
		return b.Clear()
	case *cache.RedisCache:
		return b.Clear(ctx)
	case *cache.MongoCache:
		return b.Clear(ctx)
	case *cache.NullCache:
		return 0, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidInput, "cache backend %q cannot be cleared", opts.Backend)
	}
}

// cacheLocation describes where the configured backend stores entries.
func cacheLocation(cfg *config.Config) string {
	switch cfg.Cache.Backend {
	case cache.BackendRedis:
		return fmt.Sprintf("redis://%s/%d (prefix %q)", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Prefix)
	case cache.BackendMongo:
		return fmt.Sprintf("%s (%s.%s)", cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	case cache.BackendNone:
		return "disabled"
	}
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir
	}
	dir, err := config.CacheDir()
	if err != nil {
		return "unavailable: " + err.Error()
	}
	return dir
}
