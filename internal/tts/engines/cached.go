package engines

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/cache"
	"github.com/elitetrack/audiogen/internal/tts"
)

// CachedEngine wraps an engine with an audio cache keyed on engine, voice,
// language, engine variant, text and rate.
type CachedEngine struct {
	tts.Engine
	cache  cache.Store
	logger *log.Logger
}

// NewCachedEngine wraps engine with store. The store is closed along with
// the engine.
func NewCachedEngine(engine tts.Engine, store cache.Store, logger *log.Logger) *CachedEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedEngine{Engine: engine, cache: store, logger: logger}
}

// Synthesize returns cached audio when available, otherwise synthesizes
// and stores the result. Cache write failures are logged and ignored.
func (c *CachedEngine) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	key := c.key(req)
	if audio, ok := c.cache.Get(key); ok {
		c.logger.Debug("cache hit", "key", key)
		return audio, nil
	}

	audio, err := c.Engine.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(key, audio); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
	return audio, nil
}

func (c *CachedEngine) key(req tts.Request) string {
	info := c.Engine.Info()
	k := cache.Key{
		Engine:   info.Name,
		Voice:    info.Voice,
		Language: info.Language,
		Variant:  info.Variant,
		Text:     req.Text,
		Rate:     req.Rate,
	}
	if req.Voice != "" {
		k.Voice = req.Voice
	}
	if req.Language != "" {
		k.Language = req.Language
	}
	return k.String()
}

// Stats exposes the cache statistics.
func (c *CachedEngine) Stats() cache.CacheStats {
	return c.cache.Stats()
}

// Close closes the cache, then the wrapped engine.
func (c *CachedEngine) Close() error {
	cacheErr := c.cache.Close()
	if err := c.Engine.Close(); err != nil {
		return err
	}
	return cacheErr
}

var _ tts.Engine = (*CachedEngine)(nil)
