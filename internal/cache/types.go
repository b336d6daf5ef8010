package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheClosed is returned when the cache is used after Close
	ErrCacheClosed = errors.New("cache closed")
)

// CacheStats holds cache performance metrics
type CacheStats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	ItemCount int64 // Number of items in cache

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)

	LastAccess time.Time
	LastEvict  time.Time
}

// CacheConfig holds configuration for the disk cache
type CacheConfig struct {
	Dir              string // Directory for cache files
	Capacity         int64  // Bytes
	CompressionLevel int    // Zstd compression level (1-22), 0 disables compression
}

// DefaultCacheConfig returns default cache configuration rooted at dir.
func DefaultCacheConfig(dir string) CacheConfig {
	return CacheConfig{
		Dir:              dir,
		Capacity:         512 * 1024 * 1024, // 512MB
		CompressionLevel: 3,
	}
}

// Key identifies one synthesized clip.
type Key struct {
	Engine   string
	Voice    string
	Language string
	// Variant holds engine settings outside voice and language that still
	// change the audio, such as the gTTS accent or the Piper model.
	Variant string
	Text    string
	Rate    float64
}

// String returns the hashed cache key.
// Surrounding whitespace in Text does not change the key.
func (k Key) String() string {
	rate := k.Rate
	if rate == 0 {
		rate = 1.0
	}
	data := fmt.Sprintf("%s|%s|%s|%.2f|%s", k.Engine, k.Voice, k.Language, rate, strings.TrimSpace(k.Text))
	if k.Variant != "" {
		data += "|" + k.Variant
	}
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// GenerateCacheKey generates a cache key from text and synthesis settings.
func GenerateCacheKey(engine, voice, language, text string, rate float64) string {
	return Key{Engine: engine, Voice: voice, Language: language, Text: text, Rate: rate}.String()
}
