package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/elitetrack/audiogen/internal/cache"
	"github.com/spf13/cobra"
)

var (
	pruneOlderThan time.Duration

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Show the synthesis cache",
		Long:  paragraph(fmt.Sprintf("\n%s the synthesis cache. Use clear or prune to free space.", keyword("Show"))),
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return withDiskCache(func(dir string, dc *cache.DiskCache) error {
				st := dc.Stats()
				fmt.Fprintf(os.Stdout, "%s\n", keyword("Cache"))
				fmt.Fprintf(os.Stdout, "  Dir:     %s\n", dir)
				fmt.Fprintf(os.Stdout, "  Enabled: %t\n", settings.Cache.Enabled)
				fmt.Fprintf(os.Stdout, "  Items:   %d\n", st.ItemCount)
				fmt.Fprintf(os.Stdout, "  Size:    %s of %s\n",
					humanize.Bytes(uint64(st.Size)),     //nolint:gosec
					humanize.Bytes(uint64(st.Capacity))) //nolint:gosec
				return nil
			})
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached clip",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return withDiskCache(func(_ string, dc *cache.DiskCache) error {
				n := dc.Stats().ItemCount
				if err := dc.Clear(); err != nil {
					return fmt.Errorf("unable to clear cache: %w", err)
				}
				fmt.Fprintf(os.Stdout, "%s %d cached clips\n", keyword("Removed"), n)
				return nil
			})
		},
	}

	cachePruneCmd = &cobra.Command{
		Use:     "prune",
		Short:   "Remove cached clips older than a given age",
		Example: paragraph("audiogen cache prune --older-than 720h"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if pruneOlderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", pruneOlderThan)
			}
			return withDiskCache(func(_ string, dc *cache.DiskCache) error {
				n := dc.RemoveOlderThan(time.Now().Add(-pruneOlderThan))
				fmt.Fprintf(os.Stdout, "%s %d cached clips older than %s\n", keyword("Removed"), n, pruneOlderThan)
				return nil
			})
		},
	}
)

func init() {
	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "age of the clips to remove")
	cacheCmd.AddCommand(cacheClearCmd, cachePruneCmd)
}

// withDiskCache opens the configured cache directory, even when caching
// is disabled for generate, and closes it after fn so the index is saved.
func withDiskCache(fn func(dir string, dc *cache.DiskCache) error) error {
	dir := settings.CacheLocation(defaultCacheDir())
	dc, err := cache.NewDiskCache(settings.DiskCacheConfig(dir))
	if err != nil {
		return err
	}
	if err := fn(dir, dc); err != nil {
		_ = dc.Close()
		return err
	}
	return dc.Close()
}
