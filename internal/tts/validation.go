package tts

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/language"
)

// EngineType represents the TTS engine selection
type EngineType string

const (
	// EngineGCloud represents Google Cloud Text-to-Speech
	EngineGCloud EngineType = "gcloud"

	// EngineGTTS represents the free Google Translate TTS (gTTS)
	EngineGTTS EngineType = "gtts"

	// EnginePiper represents the Piper offline TTS engine
	EnginePiper EngineType = "piper"

	// EngineNone represents no engine selected
	EngineNone EngineType = ""
)

// EngineTypes lists the supported engines in help order.
var EngineTypes = []EngineType{EngineGCloud, EngineGTTS, EnginePiper}

var engineAliases = map[string]EngineType{
	"gcloud":  EngineGCloud,
	"google":  EngineGCloud,
	"gtts":    EngineGTTS,
	"piper":   EnginePiper,
	"offline": EnginePiper,
}

// ValidateEngineSelection validates that a TTS engine has been explicitly chosen.
// The CLI flag takes precedence over the configured value. There is no
// default engine.
func ValidateEngineSelection(flag, configured string) (EngineType, error) {
	name := strings.ToLower(strings.TrimSpace(flag))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(configured))
	}

	if name == "" {
		return EngineNone, fmt.Errorf("%w\n\nPlease specify an engine:\n  audiogen generate --engine gcloud   # Google Cloud TTS (credentials required)\n  audiogen generate --engine gtts     # gTTS (online, free)\n  audiogen generate --engine piper    # Piper (offline)\n\nOr set a default in the config file:\n  engine: gtts", ErrNoEngineConfigured)
	}

	if t, ok := engineAliases[name]; ok {
		return t, nil
	}

	supported := make([]string, len(EngineTypes))
	for i, t := range EngineTypes {
		supported[i] = string(t)
	}
	hint := ""
	if s := suggestEngine(name); s != "" {
		hint = fmt.Sprintf(" (did you mean %q?)", s)
	}
	return EngineNone, fmt.Errorf("%w: %s%s\n\nSupported engines: %s", ErrInvalidEngine, name, hint, strings.Join(supported, ", "))
}

// maxSuggestDistance is the largest edit distance still worth a hint.
const maxSuggestDistance = 2

// suggestEngine returns the engine name closest to name: a fuzzy
// subsequence match first ("pipr"), then the smallest edit distance for
// transposed or doubled letters ("gtss").
func suggestEngine(name string) string {
	names := make([]string, 0, len(engineAliases))
	for alias := range engineAliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	if matches := fuzzy.Find(name, names); len(matches) > 0 {
		return string(engineAliases[matches[0].Str])
	}

	best, bestDist := "", maxSuggestDistance+1
	for _, t := range EngineTypes {
		if d := levenshtein.ComputeDistance(name, string(t)); d < bestDist {
			best, bestDist = string(t), d
		}
	}
	return best
}

// ParseLanguage validates a BCP 47 language tag and returns its
// canonical form ("en-us" becomes "en-US").
func ParseLanguage(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("language code cannot be empty")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// BaseLanguage returns the primary language subtag ("en-US" becomes "en").
// gTTS only understands base languages and uses the TLD for accents.
func BaseLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	return base.String()
}

// QuickValidation performs a fast check that the binaries an engine needs
// are on PATH, without a test synthesis.
func QuickValidation(engineType EngineType, binaries map[string]string) error {
	var need []string
	switch engineType {
	case EngineGTTS:
		need = []string{"gtts-cli"}
	case EnginePiper:
		need = []string{"piper", "ffmpeg"}
	case EngineGCloud:
		return nil
	default:
		return ErrInvalidEngine
	}

	for _, name := range need {
		bin := name
		if override, ok := binaries[name]; ok && override != "" {
			bin = override
		}
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w\n\n%s", name, err, installGuidance(name))
		}
	}
	return nil
}

func installGuidance(binary string) string {
	switch binary {
	case "gtts-cli":
		return `gTTS (Google Text-to-Speech) is not installed. To install:

   pip install gtts     # or: pipx install gtts

No API key required - gTTS uses Google Translate's free TTS service.
Note: gTTS requires an internet connection to function.`
	case "piper":
		return `Piper TTS is not installed. Download a release from
https://github.com/rhasspy/piper/releases and a voice model from
https://github.com/rhasspy/piper/blob/master/VOICES.md, then set piper.model
in the config file.`
	case "ffmpeg":
		return `ffmpeg is required to encode Piper output as MP3:

   sudo apt install ffmpeg    # Debian/Ubuntu
   brew install ffmpeg        # macOS`
	default:
		return ""
	}
}
