package engines

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/tts"
	"google.golang.org/api/option"
)

const (
	// Cloud TTS limits input to 5000 bytes.
	gcloudMaxTextSize   = 5000
	defaultGCloudVoice  = "en-US-Neural2-C"
	defaultGCloudLocale = "en-US"
)

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

// GCloudEngine implements tts.Engine using Google Cloud Text-to-Speech.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS unless a
// credentials file is configured.
type GCloudEngine struct {
	voice    string
	language string
	timeout  time.Duration

	synthesize synthesizeFunc
	close      func() error

	logger *log.Logger
}

// GCloudConfig holds configuration for the Cloud TTS engine.
type GCloudConfig struct {
	// Voice name (defaults to en-US-Neural2-C)
	Voice string

	// Language code (defaults to the voice's locale)
	Language string

	// CredentialsFile is a service account JSON key (optional)
	CredentialsFile string

	// Timeout per request (defaults to 30s)
	Timeout time.Duration

	Logger *log.Logger
}

// NewGCloudEngine creates a Cloud TTS client.
func NewGCloudEngine(ctx context.Context, config GCloudConfig) (*GCloudEngine, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "gcloud", "cannot create Cloud TTS client", err)
	}

	return newGCloudEngine(config, func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return client.SynthesizeSpeech(ctx, req)
	}, client.Close)
}

func newGCloudEngine(config GCloudConfig, synth synthesizeFunc, closer func() error) (*GCloudEngine, error) {
	if config.Voice == "" {
		config.Voice = defaultGCloudVoice
	}
	if config.Language == "" {
		config.Language = voiceLocale(config.Voice)
	}
	lang, err := tts.ParseLanguage(config.Language)
	if err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if closer == nil {
		closer = func() error { return nil }
	}

	return &GCloudEngine{
		voice:      config.Voice,
		language:   lang,
		timeout:    config.Timeout,
		synthesize: synth,
		close:      closer,
		logger:     config.Logger,
	}, nil
}

// voiceLocale extracts the locale from a Cloud voice name
// ("en-US-Neural2-C" gives "en-US").
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return defaultGCloudLocale
	}
	return parts[0] + "-" + parts[1]
}

// Synthesize converts text to MP3 using Cloud TTS.
func (e *GCloudEngine) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "gcloud", "empty text", tts.ErrEmptyText)
	}
	if len(text) > gcloudMaxTextSize {
		return nil, tts.NewTTSError(tts.ErrorCodeTextTooLong, "gcloud",
			fmt.Sprintf("text too long: %d bytes (max %d)", len(text), gcloudMaxTextSize), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.synthesize(ctx, e.buildRequest(text, req))
	if err != nil {
		code := tts.ErrorCodeEngineFailure
		if errors.Is(err, context.DeadlineExceeded) {
			code = tts.ErrorCodeEngineTimeout
		}
		return nil, tts.NewTTSError(code, "gcloud", "SynthesizeSpeech failed", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, tts.NewTTSError(tts.ErrorCodeAudioFormat, "gcloud", "empty audio content", nil)
	}

	e.logger.Debug("gcloud: synthesized", "bytes", len(resp.GetAudioContent()))
	return resp.GetAudioContent(), nil
}

func (e *GCloudEngine) buildRequest(text string, req tts.Request) *texttospeechpb.SynthesizeSpeechRequest {
	voice := e.voice
	if req.Voice != "" {
		voice = req.Voice
	}
	lang := e.language
	if req.Language != "" {
		lang = req.Language
	} else if req.Voice != "" {
		lang = voiceLocale(req.Voice)
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  tts.ToGoogleRate(req.Rate),
		},
	}
}

// Info returns engine capabilities and configuration.
func (e *GCloudEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EngineGCloud),
		Voice:       e.voice,
		Language:    e.language,
		MaxTextSize: gcloudMaxTextSize,
		IsOnline:    true,
	}
}

// Validate performs a short test synthesis, which checks credentials
// and the voice name in one round trip.
func (e *GCloudEngine) Validate(ctx context.Context) error {
	if _, err := e.Synthesize(ctx, tts.Request{Text: "Test", Rate: 1.0}); err != nil {
		return fmt.Errorf("test synthesis failed: %w\n\nCheck GOOGLE_APPLICATION_CREDENTIALS and gcloud.voice", err)
	}
	return nil
}

// Close releases the Cloud TTS client.
func (e *GCloudEngine) Close() error {
	return e.close()
}

var _ tts.Engine = (*GCloudEngine)(nil)
