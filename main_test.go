package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/elitetrack/audiogen/internal/batch"
	"github.com/elitetrack/audiogen/internal/config"
	"github.com/elitetrack/audiogen/internal/manifest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeeks(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "10-16", want: []int{10, 11, 12, 13, 14, 15, 16}},
		{in: "10", want: []int{10}},
		{in: "10,12, 14", want: []int{10, 12, 14}},
		{in: "10-11,11,15", want: []int{10, 11, 15}},
		{in: "16-10", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "0", wantErr: true},
		{in: ",", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWeeks(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, batch.Result{
		RunID:    "0123456789abcdef",
		Stats:    batch.Stats{Total: 4, Success: 1, Skipped: 2, Failed: 1},
		Missing:  []string{"week1_main.mp3"},
		Bytes:    2048,
		Duration: 1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Total:   4")
	assert.Contains(t, out, "Skipped: 2")
	assert.Contains(t, out, "week1_main.mp3")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "89abcdef")
}

func TestRunGenerate_MissingManifestReportedFirst(t *testing.T) {
	oldPath, oldEngine, oldSettings := manifestPath, engineName, settings
	t.Cleanup(func() { manifestPath, engineName, settings = oldPath, oldEngine, oldSettings })

	// Piper without a model or binaries would fail engine setup.
	manifestPath = filepath.Join(t.TempDir(), "tts-manifest.json")
	engineName = "piper"
	settings = config.Settings{
		OutDir: t.TempDir(),
		Piper:  config.PiperSettings{Binary: "/nonexistent/piper"},
		FFmpeg: config.FFmpegSettings{Binary: "/nonexistent/ffmpeg"},
	}

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	err := runGenerate(cmd, nil)
	require.ErrorIs(t, err, manifest.ErrManifestNotFound)
}
