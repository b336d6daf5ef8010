package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const audioFilesJSON = `{
  "generatedAt": "2025-01-15T09:30:00.000Z",
  "totalAudioFiles": 2,
  "audioFiles": [
    {
      "id": "placement_a2",
      "source": "placement_test",
      "audioPath": "/audio/placement/a2.mp3",
      "script": "Hi, I'm calling about the meeting tomorrow.",
      "difficulty": "A2",
      "speaker": "en-US-Standard-D",
      "speed": 1.0,
      "context": "Placement Test - Question 1"
    },
    {
      "id": "week1_slow",
      "audioPath": "/audio/week1/slow.mp3",
      "script": "Good morning, everyone.",
      "speed": 0.75
    }
  ]
}`

func TestLoad_AudioFilesFormat(t *testing.T) {
	p := writeFile(t, t.TempDir(), "tts-manifest.json", audioFilesJSON)

	m, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, FormatAudioFiles, m.Format)
	assert.Equal(t, 2025, m.GeneratedAt.Year())
	require.Len(t, m.Entries, 2)

	e := m.Entries[0]
	assert.Equal(t, "placement_a2", e.ID)
	assert.Equal(t, "Hi, I'm calling about the meeting tomorrow.", e.Text)
	assert.Equal(t, "/audio/placement/a2.mp3", e.OutFile)
	assert.Equal(t, "en-US-Standard-D", e.Speaker)
	assert.Equal(t, "A2", e.Difficulty)
	assert.InDelta(t, 0.75, m.Entries[1].Rate, 1e-9)

	name, err := m.Filename(e)
	require.NoError(t, err)
	assert.Equal(t, "a2.mp3", name)
}

func TestLoad_ItemsFormat(t *testing.T) {
	p := writeFile(t, t.TempDir(), "items.json", `[
  {"id": "q1", "text": "Please summarize the trend.", "outfile": "listening/q1.mp3", "rate": 0.9},
  {"id": "q2", "text": "What was the median?", "outfile": "q2.mp3"}
]`)

	m, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, FormatItems, m.Format)
	require.Len(t, m.Entries, 2)

	name, err := m.Filename(m.Entries[0])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("listening", "q1.mp3"), name)

	assert.InDelta(t, 0.9, m.Entries[0].Rate, 1e-9)
	assert.Zero(t, m.Entries[1].Rate)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()

	items := writeFile(t, dir, "items.yaml", `
- id: q1
  text: Hello there.
  outfile: q1.mp3
  rate: 0.8
`)
	m, err := Load(items)
	require.NoError(t, err)
	assert.Equal(t, FormatItems, m.Format)
	require.Len(t, m.Entries, 1)
	assert.InDelta(t, 0.8, m.Entries[0].Rate, 1e-9)

	doc := writeFile(t, dir, "manifest.yml", `
totalAudioFiles: 1
audioFiles:
  - id: week2_main
    script: Let's look at the numbers.
    audioPath: /audio/week2/main.mp3
`)
	m, err = Load(doc)
	require.NoError(t, err)
	assert.Equal(t, FormatAudioFiles, m.Format)
	assert.Equal(t, "week2_main", m.Entries[0].ID)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrManifestNotFound))
	})

	t.Run("directory", func(t *testing.T) {
		err := Stat(dir)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrManifestNotFound))
	})

	t.Run("stat missing file", func(t *testing.T) {
		assert.ErrorIs(t, Stat(filepath.Join(dir, "nope.yaml")), ErrManifestNotFound)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "bad.json", `"just a string"`))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrManifestNotFound))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "empty.json", "  \n"))
		assert.Error(t, err)
	})

	t.Run("entry without text", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "notext.json", `[{"id": "q1", "outfile": "q1.mp3"}]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entry 0 (q1): missing text")
	})

	t.Run("entry without id", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "noid.json", `[{"id": "q1", "text": "a", "outfile": "a.mp3"}, {"text": "b", "outfile": "b.mp3"}]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entry 1: missing id")
	})

	t.Run("entry without output path", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "noout.json", `{"audioFiles": [{"id": "x", "script": "Hi"}]}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing output path")
	})
}

func TestEntry_Filename(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		outFile string
		want    string
		wantErr bool
	}{
		{"audio path base name", FormatAudioFiles, "/audio/week10/main.mp3", "main.mp3", false},
		{"audio path already bare", FormatAudioFiles, "main.mp3", "main.mp3", false},
		{"audio path with traversal keeps base", FormatAudioFiles, "../../etc/x.mp3", "x.mp3", false},
		{"audio path is a dir", FormatAudioFiles, "/", "", true},
		{"item relative", FormatItems, "a/b.mp3", filepath.Join("a", "b.mp3"), false},
		{"item cleaned", FormatItems, "a/../b.mp3", "b.mp3", false},
		{"item absolute", FormatItems, "/tmp/x.mp3", "", true},
		{"item escapes", FormatItems, "../x.mp3", "", true},
		{"item dot", FormatItems, ".", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Entry{OutFile: tt.outFile}.Filename(tt.format)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsafePath))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManifest_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src, err := Load(writeFile(t, dir, "in.json", audioFilesJSON))
	require.NoError(t, err)

	out := filepath.Join(dir, "out", "tts-manifest.json")
	require.NoError(t, src.Save(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"totalAudioFiles": 2`)
	assert.Contains(t, string(data), "\n  \"audioFiles\": [")
	assert.Contains(t, string(data), "Hi, I'm calling")

	again, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, src.Entries, again.Entries)
	assert.True(t, src.GeneratedAt.Equal(again.GeneratedAt))
}

func TestManifest_SaveKeepsUnicode(t *testing.T) {
	m := &Manifest{Entries: []Entry{{ID: "k1", Text: "기준선 <baseline> & more", OutFile: "/audio/k1.mp3"}}}
	p := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, m.Save(p))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "기준선 <baseline> & more")
}
