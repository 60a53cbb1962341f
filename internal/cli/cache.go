package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forcelayout/declutter/pkg/cache"
	"github.com/forcelayout/declutter/pkg/errors"
)

// cacheDir returns the default directory of the file-backed run cache,
// $HOME/.cache/declutter.
func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".cache", "declutter"), nil
}

// cacheFlags selects a cache backend. The same flags are registered on every
// command that touches the cache, so backend selection works identically for
// sweeps and for cache management.
type cacheFlags struct {
	backend   string
	dir       string
	redisAddr string
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backend, "cache", "file", "cache backend: file, redis, or off")
	cmd.Flags().StringVar(&f.dir, "cache-dir", "", "directory for the file backend (default $HOME/.cache/declutter)")
	cmd.Flags().StringVar(&f.redisAddr, "redis-addr", "", "host:port for the redis backend (default $DECLUTTER_REDIS_ADDR)")
}

// open connects the selected backend. Callers own the returned cache and
// must Close it.
func (f *cacheFlags) open(ctx context.Context) (cache.Cache, error) {
	switch f.backend {
	case "off":
		return cache.NewNullCache(), nil

	case "file":
		dir := f.dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return nil, err
			}
		}
		c, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCache, err, "open file cache %s", dir)
		}
		return c, nil

	case "redis":
		addr := f.redisAddr
		if addr == "" {
			addr = os.Getenv("DECLUTTER_REDIS_ADDR")
		}
		if err := errors.ValidateRedisAddr(addr); err != nil {
			return nil, err
		}
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     addr,
			Password: os.Getenv("DECLUTTER_REDIS_PASSWORD"),
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCache, err, "connect redis %s", addr)
		}
		return c, nil

	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown cache backend %q (want file, redis, or off)", f.backend)
	}
}

// newCacheCmd creates the cache management command.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local run cache",
	}

	cmd.AddCommand(newCacheInfoCmd())
	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCachePathCmd())

	return cmd
}

// newCacheInfoCmd creates the "cache info" subcommand.
func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache location and entry count",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return err
			}

			count, size, err := scanCacheDir(dir)
			if err != nil {
				return err
			}

			printKeyValue("Directory", dir)
			printKeyValue("Entries", fmt.Sprintf("%d", count))
			printKeyValue("Size", fmt.Sprintf("%.1f KiB", float64(size)/1024))
			return nil
		},
	}
}

// newCacheClearCmd creates the "cache clear" subcommand.
func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached run results",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return err
			}

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			count := 0
			err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir {
					return nil
				}
				if !info.IsDir() {
					if err := os.Remove(path); err == nil {
						count++
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			// Clean up empty subdirectories
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir {
					return nil
				}
				if info.IsDir() {
					os.Remove(path)
				}
				return nil
			})

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// newCachePathCmd creates the "cache path" subcommand.
func newCachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return err
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// scanCacheDir counts entries and bytes under the file cache directory. A
// missing directory is an empty cache, not an error.
func scanCacheDir(dir string) (count int, size int64, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			count++
			size += info.Size()
		}
		return nil
	})
	if os.IsNotExist(err) {
		err = nil
	}
	return count, size, err
}
