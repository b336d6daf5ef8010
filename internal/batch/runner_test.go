package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/manifest"
	"github.com/elitetrack/audiogen/internal/tts"
	"github.com/elitetrack/audiogen/internal/tts/engines/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(n int) []manifest.Entry {
	out := make([]manifest.Entry, 0, n)
	for i := 1; i <= n; i++ {
		id := "item" + string(rune('0'+i))
		out = append(out, manifest.Entry{
			ID:      id,
			Text:    "Sentence number " + id,
			OutFile: "/audio/" + id + ".mp3",
		})
	}
	return out
}

func newRunner(t *testing.T, engine tts.Engine) *Runner {
	t.Helper()
	return &Runner{
		Engine: engine,
		OutDir: t.TempDir(),
		Delay:  -1,
		Format: manifest.FormatAudioFiles,
		Logger: log.New(io.Discard),
	}
}

func TestRun_GeneratesAll(t *testing.T) {
	engine := mock.New()
	r := newRunner(t, engine)

	stats, err := r.Run(context.Background(), entries(3))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Success: 3}, stats)
	assert.Equal(t, 3, engine.Calls())

	data, err := os.ReadFile(filepath.Join(r.OutDir, "item2.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "MP3:Sentence number item2", string(data))
}

func TestRun_RerunOnlySkips(t *testing.T) {
	engine := mock.New()
	r := newRunner(t, engine)
	list := entries(4)

	_, err := r.Run(context.Background(), list)
	require.NoError(t, err)

	stats, err := r.Run(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Skipped: 4}, stats)
	assert.Equal(t, 4, engine.Calls(), "second run must not call the engine")
}

func TestRun_FailuresContinue(t *testing.T) {
	engine := mock.New()
	list := entries(5)
	engine.FailOn[list[1].Text] = errors.New("quota exceeded")
	engine.FailOn[list[3].Text] = errors.New("quota exceeded")

	r := newRunner(t, engine)
	// Pre-existing output for the first item.
	require.NoError(t, os.WriteFile(filepath.Join(r.OutDir, "item1.mp3"), []byte("old"), 0o644))

	stats, err := r.Run(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, stats.Total, stats.Processed())

	_, err = os.Stat(filepath.Join(r.OutDir, "item2.mp3"))
	assert.True(t, os.IsNotExist(err), "failed item must not leave a file behind")

	old, err := os.ReadFile(filepath.Join(r.OutDir, "item1.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old), "existing files are never overwritten")
}

func TestRun_InvalidEntriesFail(t *testing.T) {
	engine := mock.New()
	r := newRunner(t, engine)
	r.Format = manifest.FormatItems

	list := []manifest.Entry{
		{ID: "escape", Text: "a", OutFile: "../outside.mp3"},
		{ID: "rate", Text: "b", OutFile: "b.mp3", Rate: 9},
		{ID: "ok", Text: "c", OutFile: "nested/c.mp3", Rate: 0.8},
	}
	stats, err := r.Run(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Success: 1, Failed: 2}, stats)
	assert.FileExists(t, filepath.Join(r.OutDir, "nested", "c.mp3"))

	reqs := engine.Requests()
	require.Len(t, reqs, 1)
	assert.InDelta(t, 0.8, reqs[0].Rate, 1e-9)
}

func TestRun_RateAndVoice(t *testing.T) {
	engine := mock.New()
	r := newRunner(t, engine)
	r.Voices = true

	list := []manifest.Entry{
		{ID: "a", Text: "a", OutFile: "a.mp3", Speaker: "en-US-Standard-C"},
		{ID: "b", Text: "b", OutFile: "b.mp3", Rate: 0.75},
	}
	_, err := r.Run(context.Background(), list)
	require.NoError(t, err)

	reqs := engine.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "en-US-Standard-C", reqs[0].Voice)
	assert.InDelta(t, 1.0, reqs[0].Rate, 1e-9)
	assert.InDelta(t, 0.75, reqs[1].Rate, 1e-9)

	r.Voices = false
	require.NoError(t, os.Remove(filepath.Join(r.OutDir, "a.mp3")))
	_, err = r.Run(context.Background(), list[:1])
	require.NoError(t, err)
	assert.Empty(t, engine.Requests()[2].Voice)
}

func TestRun_Cancellation(t *testing.T) {
	engine := mock.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel while the second item is being synthesized.
	engine.OnSynthesize = func(req tts.Request) {
		if strings.HasSuffix(req.Text, "item2") {
			cancel()
		}
	}

	r := newRunner(t, engine)
	stats, err := r.Run(ctx, entries(5))
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 0, stats.Failed, "cancellation is not a failure")
	assert.Less(t, stats.Processed(), stats.Total)
}

func TestRun_DelayBetweenEngineCalls(t *testing.T) {
	engine := mock.New()
	r := newRunner(t, engine)
	r.Delay = 30 * time.Millisecond

	start := time.Now()
	_, err := r.Run(context.Background(), entries(3))
	require.NoError(t, err)
	// Two pauses: none after the last item.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)

	start = time.Now()
	_, err = r.Run(context.Background(), entries(3))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 60*time.Millisecond, "skipped items do not wait")
}

func TestRun_CancelDuringDelay(t *testing.T) {
	engine := mock.New()
	r := newRunner(t, engine)
	r.Delay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	stats, err := r.Run(ctx, entries(3))
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, 1, stats.Success)
}

func writeManifest(t *testing.T, dir string, list []manifest.Entry) string {
	t.Helper()
	p := filepath.Join(dir, "tts-manifest.json")
	require.NoError(t, (&manifest.Manifest{Entries: list}).Save(p))
	return p
}

func TestGenerate_MissingManifestLeavesOutDirAlone(t *testing.T) {
	r := newRunner(t, mock.New())
	r.OutDir = filepath.Join(t.TempDir(), "public", "audio")

	_, err := r.Generate(context.Background(), Options{ManifestPath: filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
	assert.NoDirExists(t, r.OutDir)
}

func TestGenerate_CreatesOutDirAndVerifies(t *testing.T) {
	engine := mock.New()
	list := entries(3)
	engine.FailOn[list[2].Text] = errors.New("boom")

	r := newRunner(t, engine)
	r.OutDir = filepath.Join(t.TempDir(), "public", "audio")
	p := writeManifest(t, t.TempDir(), list)

	res, err := r.Generate(context.Background(), Options{ManifestPath: p, Verify: true})
	require.NoError(t, err)
	assert.DirExists(t, r.OutDir)
	assert.Equal(t, Stats{Total: 3, Success: 2, Failed: 1}, res.Stats)
	assert.Equal(t, []string{"item3.mp3"}, res.Missing)
	assert.False(t, res.OK())
	assert.NotEmpty(t, res.RunID)
	assert.Positive(t, res.Bytes)

	delete(engine.FailOn, list[2].Text)
	res, err = r.Generate(context.Background(), Options{ManifestPath: p, Verify: true})
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Success: 1, Skipped: 2}, res.Stats)
	assert.Empty(t, res.Missing)
	assert.True(t, res.OK())
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	m := &manifest.Manifest{Format: manifest.FormatAudioFiles, Entries: entries(2)}
	assert.Equal(t, []string{"item1.mp3", "item2.mp3"}, Verify(m, dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "item1.mp3"), []byte("x"), 0o644))
	assert.Equal(t, []string{"item2.mp3"}, Verify(m, dir))
}

func TestBarReporter(t *testing.T) {
	var buf bytes.Buffer
	r := newRunner(t, mock.New())
	r.Reporter = NewBarReporter(&buf)

	_, err := r.Run(context.Background(), entries(2))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "1/2")
	assert.Contains(t, lines[1], "2/2")
	assert.Contains(t, lines[1], "item2")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", Preview("short   text\n", 60))

	long := strings.Repeat("abcdefghij", 10)
	got := Preview(long, 60)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 60)

	// Hangul is two columns wide per rune.
	got = Preview(strings.Repeat("기준", 40), 20)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), 12)
}
