package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/middleware"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:     "cache",
	Short:   "Manage the tracker response cache",
	GroupID: "system",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [issue-key...]",
	Short: "Drop cached tracker responses",
	Long: `Drop every cached tracker response, or only those of the given issues.

Only a cache kept on disk (LG_CACHE_DIR) outlives a single command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.CacheDir == "" {
			return errors.New("no cache directory configured (set LG_CACHE_DIR)")
		}
		cache, err := middleware.NewCache(middleware.CacheConfig{
			Path:   cfg.CacheDir,
			TTL:    time.Duration(cfg.CacheTTL),
			Logger: logger,
		})
		if err != nil {
			return err
		}
		defer cache.Close()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			if err := cache.Purge(); err != nil {
				return fmt.Errorf("purging cache: %w", err)
			}
			fmt.Fprintf(out, "Purged cache at %s\n", cfg.CacheDir)
			return nil
		}
		for _, key := range args {
			if err := cache.Invalidate(key); err != nil {
				return fmt.Errorf("invalidating %s: %w", key, err)
			}
		}
		fmt.Fprintf(out, "Dropped %d cached issues\n", len(args))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
}
