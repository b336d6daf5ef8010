// Package config holds audiogen's settings: the YAML/flag layer read through
// viper and the process environment read through env.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/cache"
	"github.com/elitetrack/audiogen/internal/tts"
	"github.com/elitetrack/audiogen/internal/tts/engines"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Env is read from the process environment.
type Env struct {
	Debug   bool   `env:"AUDIOGEN_DEBUG"`
	LogFile string `env:"AUDIOGEN_LOG_FILE"`

	// ConfigHome overrides the config directory search.
	ConfigHome string `env:"AUDIOGEN_CONFIG_HOME"`
	XDGConfig  string `env:"XDG_CONFIG_HOME"`

	// GoogleCredentials is the service account key used by Cloud TTS.
	GoogleCredentials string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// ParseEnv reads Env from the environment.
func ParseEnv() (Env, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return e, nil
}

// Settings contains every configurable value.
type Settings struct {
	Engine  string        `mapstructure:"engine"`
	OutDir  string        `mapstructure:"outdir"`
	Delay   time.Duration `mapstructure:"delay"`
	Timeout time.Duration `mapstructure:"timeout"`

	Cache  CacheSettings  `mapstructure:"cache"`
	GCloud GCloudSettings `mapstructure:"gcloud"`
	GTTS   GTTSSettings   `mapstructure:"gtts"`
	Piper  PiperSettings  `mapstructure:"piper"`
	FFmpeg FFmpegSettings `mapstructure:"ffmpeg"`
}

// CacheSettings configure the synthesis cache.
type CacheSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	// MaxSize in MB.
	MaxSize int `mapstructure:"max_size"`
}

// GCloudSettings configure Google Cloud Text-to-Speech.
type GCloudSettings struct {
	Voice       string `mapstructure:"voice"`
	Language    string `mapstructure:"language"`
	Credentials string `mapstructure:"credentials"`
}

// GTTSSettings configure gTTS.
type GTTSSettings struct {
	Binary            string `mapstructure:"binary"`
	Language          string `mapstructure:"language"`
	TLD               string `mapstructure:"tld"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// PiperSettings configure Piper.
type PiperSettings struct {
	Binary  string `mapstructure:"binary"`
	Model   string `mapstructure:"model"`
	Config  string `mapstructure:"config"`
	Speaker string `mapstructure:"speaker"`
}

// FFmpegSettings configure the MP3 encoder used by Piper.
type FFmpegSettings struct {
	Binary string `mapstructure:"binary"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine", "")
	v.SetDefault("outdir", filepath.Join("public", "audio"))
	v.SetDefault("delay", 500*time.Millisecond)
	v.SetDefault("timeout", 30*time.Second)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.max_size", 512)

	v.SetDefault("gcloud.voice", "en-US-Neural2-C")
	v.SetDefault("gcloud.language", "")
	v.SetDefault("gcloud.credentials", "")

	v.SetDefault("gtts.binary", "gtts-cli")
	v.SetDefault("gtts.language", "en")
	v.SetDefault("gtts.tld", "com")
	v.SetDefault("gtts.requests_per_minute", 50)

	v.SetDefault("piper.binary", "piper")
	v.SetDefault("piper.model", "")
	v.SetDefault("piper.config", "")
	v.SetDefault("piper.speaker", "")

	v.SetDefault("ffmpeg.binary", "ffmpeg")
}

// Load decodes v into Settings, expands paths and validates the result.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := s.expandPaths(); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) expandPaths() error {
	for _, p := range []*string{&s.OutDir, &s.Cache.Dir, &s.GCloud.Credentials, &s.Piper.Model, &s.Piper.Config} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("unable to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks value ranges. Engine names are checked when an engine is
// selected, since the flag may override the file.
func (s *Settings) Validate() error {
	if s.OutDir == "" {
		return fmt.Errorf("outdir must not be empty")
	}
	if s.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %s", s.Delay)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if s.Cache.MaxSize < 1 || s.Cache.MaxSize > 10000 {
		return fmt.Errorf("cache max_size must be between 1 and 10000 MB, got %d", s.Cache.MaxSize)
	}
	if s.GTTS.RequestsPerMinute < 1 {
		return fmt.Errorf("gtts requests_per_minute must be at least 1, got %d", s.GTTS.RequestsPerMinute)
	}
	if _, err := tts.ParseLanguage(s.GTTS.Language); err != nil {
		return fmt.Errorf("gtts language: %w", err)
	}
	if s.GCloud.Language != "" {
		if _, err := tts.ParseLanguage(s.GCloud.Language); err != nil {
			return fmt.Errorf("gcloud language: %w", err)
		}
	}
	return nil
}

// CacheDir returns the cache directory, or "" when caching is off.
// fallback is used when caching is enabled without an explicit dir.
func (s Settings) CacheDir(fallback string) string {
	if !s.Cache.Enabled {
		return ""
	}
	return s.CacheLocation(fallback)
}

// CacheLocation returns the cache directory whether or not caching is on.
func (s Settings) CacheLocation(fallback string) string {
	if s.Cache.Dir != "" {
		return s.Cache.Dir
	}
	return fallback
}

// DiskCacheConfig returns the disk cache settings rooted at dir.
func (s Settings) DiskCacheConfig(dir string) cache.CacheConfig {
	return cache.CacheConfig{
		Dir:              dir,
		Capacity:         int64(s.Cache.MaxSize) * 1024 * 1024,
		CompressionLevel: 3,
	}
}

// EngineConfig builds the engines.Config for these settings. credentials
// is used when gcloud.credentials is unset.
func (s Settings) EngineConfig(cacheDir, credentials string, logger *log.Logger) engines.Config {
	creds := s.GCloud.Credentials
	if creds == "" {
		creds = credentials
	}

	cfg := engines.Config{
		GCloud: engines.GCloudConfig{
			Voice:           s.GCloud.Voice,
			Language:        s.GCloud.Language,
			CredentialsFile: creds,
		},
		GTTS: engines.GTTSConfig{
			Binary:            s.GTTS.Binary,
			Language:          s.GTTS.Language,
			TLD:               s.GTTS.TLD,
			RequestsPerMinute: s.GTTS.RequestsPerMinute,
		},
		Piper: engines.PiperConfig{
			Binary:       s.Piper.Binary,
			FFmpegBinary: s.FFmpeg.Binary,
			ModelPath:    s.Piper.Model,
			ConfigPath:   s.Piper.Config,
			Speaker:      s.Piper.Speaker,
		},
		Timeout: s.Timeout,
		Logger:  logger,
	}
	if cacheDir != "" {
		cfg.Cache = s.DiskCacheConfig(cacheDir)
	}
	return cfg
}

// Binaries returns the external tools each engine needs, keyed the way
// tts.QuickValidation expects.
func (s Settings) Binaries() map[string]string {
	return map[string]string{
		"gtts-cli": s.GTTS.Binary,
		"piper":    s.Piper.Binary,
		"ffmpeg":   s.FFmpeg.Binary,
	}
}
