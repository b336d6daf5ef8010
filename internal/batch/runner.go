package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/elitetrack/audiogen/internal/manifest"
	"github.com/elitetrack/audiogen/internal/tts"
	"github.com/google/uuid"
)

// DefaultDelay is the pause between engine calls.
const DefaultDelay = 500 * time.Millisecond

// ErrInterrupted is returned when a run is cancelled before every entry
// was processed.
var ErrInterrupted = errors.New("generation interrupted")

// Stats are the counters of a single run.
type Stats struct {
	Total   int
	Success int
	Skipped int
	Failed  int
}

// Processed returns how many entries reached a final state.
func (s Stats) Processed() int {
	return s.Success + s.Skipped + s.Failed
}

// Status is the outcome of one entry.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "ok"
	case StatusSkipped:
		return "skip"
	case StatusFailed:
		return "failed"
	case StatusInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Runner synthesizes manifest entries one at a time into OutDir.
type Runner struct {
	Engine tts.Engine
	OutDir string
	// Delay between engine calls. Zero means DefaultDelay; use a negative
	// value to disable it.
	Delay  time.Duration
	Format manifest.Format
	// Voices passes each entry's speaker to the engine as the voice name.
	Voices bool

	Logger   *log.Logger
	Reporter Reporter
}

// Options select what Generate runs.
type Options struct {
	ManifestPath string
	// Verify checks every output exists after the run.
	Verify bool
}

// Result summarizes a Generate call.
type Result struct {
	RunID    string
	Stats    Stats
	Missing  []string
	Bytes    int64
	Duration time.Duration
}

// OK reports whether the run produced every file.
func (r Result) OK() bool {
	return r.Stats.Failed == 0 && len(r.Missing) == 0
}

// Generate loads the manifest, creates the output directory and runs every
// entry. The output directory is not touched when the manifest cannot be
// loaded.
func (r *Runner) Generate(ctx context.Context, opts Options) (Result, error) {
	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return Result{}, err
	}
	r.Format = m.Format

	if err := os.MkdirAll(r.OutDir, 0o755); err != nil { //nolint:gosec
		return Result{}, fmt.Errorf("unable to create output directory: %w", err)
	}
	r.logger().Info("output directory", "path", r.OutDir, "entries", len(m.Entries), "format", m.Format)

	start := time.Now()
	res, err := r.run(ctx, m.Entries)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	if opts.Verify {
		res.Missing = Verify(m, r.OutDir)
		if len(res.Missing) > 0 {
			r.logger().Warn("files missing after run", "count", len(res.Missing))
		} else {
			r.logger().Info("all files verified", "count", len(m.Entries))
		}
	}
	return res, nil
}

// Run processes entries in order and returns the counters. Per-entry
// failures are logged and counted; only cancellation stops the loop, in
// which case ErrInterrupted is returned with the partial counts.
func (r *Runner) Run(ctx context.Context, entries []manifest.Entry) (Stats, error) {
	res, err := r.run(ctx, entries)
	return res.Stats, err
}

func (r *Runner) run(ctx context.Context, entries []manifest.Entry) (Result, error) {
	res := Result{RunID: uuid.NewString(), Stats: Stats{Total: len(entries)}}
	logger := r.logger().With("run", res.RunID[:8])
	reporter := r.reporter()

	logger.Info("starting", "entries", len(entries), "engine", r.Engine.Info().Name)
	reporter.Start(len(entries))
	defer func() { reporter.Finish(res.Stats) }()

	for i, e := range entries {
		if ctx.Err() != nil {
			logger.Warn("interrupted", "processed", res.Stats.Processed(), "total", res.Stats.Total)
			return res, ErrInterrupted
		}

		status, n := r.process(ctx, logger, i, len(entries), e)
		switch status {
		case StatusSuccess:
			res.Stats.Success++
			res.Bytes += int64(n)
		case StatusSkipped:
			res.Stats.Skipped++
		case StatusFailed:
			res.Stats.Failed++
		case StatusInterrupted:
			logger.Warn("interrupted", "id", e.ID, "processed", res.Stats.Processed(), "total", res.Stats.Total)
			return res, ErrInterrupted
		}
		reporter.Advance(i+1, e, status)

		if status != StatusSkipped && i < len(entries)-1 {
			if err := r.wait(ctx); err != nil {
				logger.Warn("interrupted", "processed", res.Stats.Processed(), "total", res.Stats.Total)
				return res, ErrInterrupted
			}
		}
	}

	logger.Info("finished",
		"total", res.Stats.Total,
		"success", res.Stats.Success,
		"skipped", res.Stats.Skipped,
		"failed", res.Stats.Failed,
		"written", humanize.Bytes(uint64(res.Bytes)), //nolint:gosec
	)
	return res, nil
}

func (r *Runner) process(ctx context.Context, logger *log.Logger, i, total int, e manifest.Entry) (Status, int) {
	logger = logger.With("id", e.ID)

	name, err := e.Filename(r.Format)
	if err != nil {
		logger.Error("invalid output path", "err", err)
		return StatusFailed, 0
	}
	dest := filepath.Join(r.OutDir, name)

	if fileExists(dest) {
		logger.Info("skip", "file", name, "reason", "already exists")
		return StatusSkipped, 0
	}

	rate, err := tts.NormalizeRate(e.Rate)
	if err != nil {
		logger.Error("invalid rate", "err", err)
		return StatusFailed, 0
	}

	logger.Info("generating",
		"item", fmt.Sprintf("%d/%d", i+1, total),
		"file", name,
		"script", Preview(e.Text, previewWidth),
	)

	req := tts.Request{Text: e.Text, Rate: rate}
	if r.Voices {
		req.Voice = e.Speaker
	}
	audio, err := r.Engine.Synthesize(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return StatusInterrupted, 0
		}
		var ttsErr *tts.TTSError
		retryable := errors.As(err, &ttsErr) && ttsErr.IsRetryable()
		logger.Error("failed", "file", name, "err", err, "retryable", retryable)
		return StatusFailed, 0
	}

	if err := writeAtomic(dest, audio); err != nil {
		logger.Error("failed", "file", name, "err", err)
		return StatusFailed, 0
	}
	logger.Info("done", "file", name, "size", humanize.Bytes(uint64(len(audio))))
	return StatusSuccess, len(audio)
}

func (r *Runner) wait(ctx context.Context) error {
	d := r.Delay
	if d == 0 {
		d = DefaultDelay
	}
	if d < 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *Runner) reporter() Reporter {
	if r.Reporter == nil {
		return nopReporter{}
	}
	return r.Reporter
}

// Verify returns the output files of m missing from outDir.
func Verify(m *manifest.Manifest, outDir string) []string {
	var missing []string
	for _, e := range m.Entries {
		name, err := m.Filename(e)
		if err != nil {
			missing = append(missing, e.OutFile)
			continue
		}
		if !fileExists(filepath.Join(outDir, name)) {
			missing = append(missing, name)
		}
	}
	return missing
}
