package tts

import (
	"errors"
	"fmt"
)

// ErrSpeedOutOfRange is returned when a manifest rate is outside valid range
var ErrSpeedOutOfRange = errors.New("rate must be between 0.25 and 4.0")

const (
	// MinRate and MaxRate bound the speaking rate Google Cloud TTS accepts.
	MinRate = 0.25
	MaxRate = 4.0
)

// NormalizeRate turns a manifest rate into a usable multiplier.
// Zero means "not set" and maps to 1.0.
func NormalizeRate(rate float64) (float64, error) {
	if rate == 0 {
		return 1.0, nil
	}
	if rate < MinRate || rate > MaxRate {
		return 0, fmt.Errorf("%w, got %.2f", ErrSpeedOutOfRange, rate)
	}
	return rate, nil
}

// ToGoogleRate converts a rate to Cloud TTS speaking_rate.
func ToGoogleRate(rate float64) float64 {
	switch {
	case rate == 0:
		return 1.0
	case rate < MinRate:
		return MinRate
	case rate > MaxRate:
		return MaxRate
	default:
		return rate
	}
}

// ToGTTSSlow reports whether gTTS should use its slow mode.
// gTTS only has two speeds, so anything below normal is slow.
func ToGTTSSlow(rate float64) bool {
	return rate != 0 && rate < 1.0
}

// ToPiperScale converts a rate to Piper's --length_scale parameter.
// Rate 0.5 is half speed (scale 2.00), 2.0 is double speed (scale 0.50).
func ToPiperScale(rate float64) string {
	if rate == 0 {
		rate = 1.0
	}
	return fmt.Sprintf("%.2f", 1.0/rate)
}
