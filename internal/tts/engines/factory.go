package engines

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/cache"
	"github.com/elitetrack/audiogen/internal/tts"
)

// Config gathers the settings of every engine. Only the section matching
// the selected engine is used.
type Config struct {
	GCloud GCloudConfig
	GTTS   GTTSConfig
	Piper  PiperConfig

	// Timeout applies to engines that leave their own timeout unset.
	Timeout time.Duration

	// Cache enables the synthesis cache when Dir is set.
	Cache cache.CacheConfig

	Logger *log.Logger
}

// New builds the engine for engineType, wrapped in a CachedEngine when a
// cache directory is configured.
func New(ctx context.Context, engineType tts.EngineType, cfg Config) (tts.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	var (
		engine tts.Engine
		err    error
	)
	switch engineType {
	case tts.EngineGCloud:
		c := cfg.GCloud
		c.Logger = pick(c.Logger, cfg.Logger)
		c.Timeout = pickDuration(c.Timeout, cfg.Timeout)
		engine, err = NewGCloudEngine(ctx, c)
	case tts.EngineGTTS:
		c := cfg.GTTS
		c.Logger = pick(c.Logger, cfg.Logger)
		c.Timeout = pickDuration(c.Timeout, cfg.Timeout)
		engine, err = NewGTTSEngine(c)
	case tts.EnginePiper:
		c := cfg.Piper
		c.Logger = pick(c.Logger, cfg.Logger)
		c.Timeout = pickDuration(c.Timeout, cfg.Timeout)
		engine, err = NewPiperEngine(c)
	case tts.EngineNone:
		return nil, tts.ErrNoEngineConfigured
	default:
		return nil, fmt.Errorf("%w: %s", tts.ErrInvalidEngine, engineType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s engine: %w", engineType, err)
	}

	if cfg.Cache.Dir == "" {
		return engine, nil
	}
	store, err := cache.NewTieredCache(cfg.Cache, cache.DefaultMemoryCapacity)
	if err != nil {
		// A broken cache never blocks synthesis.
		cfg.Logger.Warn("audio cache disabled", "dir", cfg.Cache.Dir, "err", err)
		return engine, nil
	}
	cfg.Logger.Debug("audio cache enabled", "dir", cfg.Cache.Dir, "items", store.Stats().ItemCount)
	return NewCachedEngine(engine, store, cfg.Logger), nil
}

func pick(l, fallback *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return fallback
}

func pickDuration(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
