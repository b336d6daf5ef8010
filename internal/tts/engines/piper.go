package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/tts"
	"github.com/tidwall/gjson"
)

const piperMaxTextSize = 5000

// PiperEngine implements tts.Engine using Piper (offline TTS).
// Piper emits raw 16-bit mono PCM which ffmpeg encodes to MP3.
// Each synthesis runs a fresh process with stdin set before start.
type PiperEngine struct {
	binary       string
	ffmpegBinary string
	modelPath    string
	configPath   string
	speaker      string
	sampleRate   int
	timeout      time.Duration

	logger *log.Logger
}

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary is the piper executable (defaults to "piper")
	Binary string

	// FFmpegBinary is the ffmpeg executable (defaults to "ffmpeg")
	FFmpegBinary string

	// Model file path (required)
	ModelPath string

	// Config file path (optional, defaults to <model>.json)
	ConfigPath string

	// Speaker id for multi-speaker models (optional)
	Speaker string

	// Timeout per subprocess (defaults to 30s)
	Timeout time.Duration

	Logger *log.Logger
}

// NewPiperEngine creates a new Piper engine.
func NewPiperEngine(config PiperConfig) (*PiperEngine, error) {
	if config.ModelPath == "" {
		return nil, errors.New("piper model path is required (set piper.model)")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if config.ConfigPath == "" {
		config.ConfigPath = config.ModelPath + ".json"
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.FFmpegBinary == "" {
		config.FFmpegBinary = "ffmpeg"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &PiperEngine{
		binary:       config.Binary,
		ffmpegBinary: config.FFmpegBinary,
		modelPath:    config.ModelPath,
		configPath:   config.ConfigPath,
		speaker:      config.Speaker,
		sampleRate:   readSampleRate(config.ConfigPath),
		timeout:      config.Timeout,
		logger:       config.Logger,
	}, nil
}

// readSampleRate reads audio.sample_rate from the model's JSON config,
// falling back to 22050 Hz which most Piper voices use.
func readSampleRate(configPath string) int {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return 22050
	}
	if sr := gjson.GetBytes(data, "audio.sample_rate"); sr.Exists() && sr.Int() > 0 {
		return int(sr.Int())
	}
	return 22050
}

// Synthesize converts text to MP3 using Piper and ffmpeg.
func (e *PiperEngine) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "piper", "empty text", tts.ErrEmptyText)
	}
	if n := utf8.RuneCountInString(text); n > piperMaxTextSize {
		return nil, tts.NewTTSError(tts.ErrorCodeTextTooLong, "piper",
			fmt.Sprintf("text too long: %d characters (max %d)", n, piperMaxTextSize), nil)
	}

	pcm, err := runCommand(ctx, e.timeout, strings.NewReader(text), e.binary, e.piperArgs(req)...)
	if err != nil {
		return nil, e.wrap("piper synthesis failed", err)
	}
	e.logger.Debug("piper: synthesized", "pcmBytes", len(pcm), "sampleRate", e.sampleRate)

	mp3, err := runCommand(ctx, e.timeout, bytes.NewReader(pcm), e.ffmpegBinary, e.ffmpegArgs()...)
	if err != nil {
		return nil, e.wrap("MP3 encoding failed", err)
	}
	return mp3, nil
}

func (e *PiperEngine) piperArgs(req tts.Request) []string {
	args := []string{
		"--model", e.modelPath,
		"--config", e.configPath,
		"--output_raw",
		"--length_scale", tts.ToPiperScale(req.Rate),
	}
	speaker := e.speaker
	if req.Voice != "" {
		speaker = req.Voice
	}
	if speaker != "" {
		args = append(args, "--speaker", speaker)
	}
	return args
}

func (e *PiperEngine) ffmpegArgs() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(e.sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-q:a", "4",
		"-f", "mp3",
		"pipe:1",
	}
}

func (e *PiperEngine) wrap(msg string, err error) error {
	code := tts.ErrorCodeEngineFailure
	if errors.Is(err, context.DeadlineExceeded) {
		code = tts.ErrorCodeEngineTimeout
	}
	return tts.NewTTSError(code, "piper", msg, err)
}

// Info returns engine capabilities and configuration.
func (e *PiperEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EnginePiper),
		Voice:       e.speaker,
		Variant:     "model=" + e.modelPath,
		MaxTextSize: piperMaxTextSize,
		IsOnline:    false,
	}
}

// Validate checks that piper, ffmpeg and the model are usable.
func (e *PiperEngine) Validate(ctx context.Context) error {
	piperPath, err := exec.LookPath(e.binary)
	if err != nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "piper", "piper not found in PATH", err)
	}
	if err := exec.CommandContext(ctx, piperPath, "--help").Run(); err != nil { //nolint:gosec
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "piper", "cannot execute piper", err)
	}
	if _, err := exec.LookPath(e.ffmpegBinary); err != nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "piper", "ffmpeg not found in PATH", err)
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "piper", "model file not accessible", err)
	}
	if _, err := os.Stat(e.configPath); err != nil {
		e.logger.Warn("piper: model config not found, using defaults", "path", e.configPath)
	}
	return nil
}

// Close releases resources held by the engine.
func (e *PiperEngine) Close() error {
	return nil
}

var _ tts.Engine = (*PiperEngine)(nil)
