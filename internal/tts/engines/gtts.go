package engines

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/tts"
	"golang.org/x/time/rate"
)

const gttsMaxTextSize = 5000

// GTTSEngine implements tts.Engine using gTTS (Google Translate TTS).
// gtts-cli writes MP3 to stdout, so no conversion step is needed.
// It is free and needs no API key, but Google throttles heavy use.
type GTTSEngine struct {
	binary   string
	language string
	tld      string
	timeout  time.Duration

	// Rate limiting to avoid being blocked by Google
	rateLimiter *rate.Limiter

	logger *log.Logger
}

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Binary is the gtts-cli executable (defaults to "gtts-cli" on PATH)
	Binary string

	// Language code (e.g., "en", "es"); region subtags are dropped
	Language string

	// TLD selects the Google Translate host, which changes the accent
	// ("com", "co.uk", "com.au")
	TLD string

	// Rate limit requests per minute to avoid being blocked (defaults to 50)
	RequestsPerMinute int

	// Timeout per request (defaults to 30s)
	Timeout time.Duration

	Logger *log.Logger
}

// NewGTTSEngine creates a new gTTS engine.
func NewGTTSEngine(config GTTSConfig) (*GTTSEngine, error) {
	if config.Binary == "" {
		config.Binary = "gtts-cli"
	}
	if config.Language == "" {
		config.Language = "en"
	}
	lang, err := tts.ParseLanguage(config.Language)
	if err != nil {
		return nil, err
	}
	if config.TLD == "" {
		config.TLD = "com"
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 50
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &GTTSEngine{
		binary:      config.Binary,
		language:    tts.BaseLanguage(lang),
		tld:         config.TLD,
		timeout:     config.Timeout,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
		logger:      config.Logger,
	}, nil
}

// Synthesize converts text to MP3 using gtts-cli.
func (e *GTTSEngine) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "gtts", "empty text", tts.ErrEmptyText)
	}
	if n := utf8.RuneCountInString(text); n > gttsMaxTextSize {
		return nil, tts.NewTTSError(tts.ErrorCodeTextTooLong, "gtts",
			fmt.Sprintf("text too long: %d characters (max %d)", n, gttsMaxTextSize), nil)
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	args := e.buildArgs(req)
	e.logger.Debug("gtts: synthesizing", "textLen", len(text), "args", args[1:])

	// "-" makes gtts-cli read the text from stdin.
	mp3, err := runCommand(ctx, e.timeout, strings.NewReader(text), e.binary, args...)
	if err != nil {
		code := tts.ErrorCodeEngineFailure
		if errors.Is(err, context.DeadlineExceeded) {
			code = tts.ErrorCodeEngineTimeout
		}
		return nil, tts.NewTTSError(code, "gtts", "gtts-cli failed", err)
	}
	return mp3, nil
}

func (e *GTTSEngine) buildArgs(req tts.Request) []string {
	lang := e.language
	if req.Language != "" {
		lang = tts.BaseLanguage(req.Language)
	}
	args := []string{"-", "--lang", lang, "--tld", e.tld}
	if tts.ToGTTSSlow(req.Rate) {
		args = append(args, "--slow")
	}
	return args
}

// Info returns engine capabilities and configuration.
func (e *GTTSEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EngineGTTS),
		Language:    e.language,
		Variant:     "tld=" + e.tld,
		MaxTextSize: gttsMaxTextSize,
		IsOnline:    true,
	}
}

// Validate checks that gtts-cli is installed and runnable.
func (e *GTTSEngine) Validate(ctx context.Context) error {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "gtts", "gtts-cli not found in PATH (pip install gtts)", err)
	}
	if err := exec.CommandContext(ctx, path, "--help").Run(); err != nil { //nolint:gosec
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "gtts", "cannot execute gtts-cli", err)
	}
	return nil
}

// Close releases resources held by the engine.
func (e *GTTSEngine) Close() error {
	return nil
}

var _ tts.Engine = (*GTTSEngine)(nil)
