package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/elitetrack/audiogen/internal/batch"
	"github.com/elitetrack/audiogen/internal/manifest"
	"github.com/elitetrack/audiogen/internal/tts"
	"github.com/elitetrack/audiogen/internal/tts/engines"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const defaultManifest = "tts-manifest.json"

var (
	manifestPath string
	engineName   string
	watch        bool
	noVerify     bool
	checkEngine  bool

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate MP3 files for every manifest entry",
		Long: paragraph(fmt.Sprintf("\n%s an MP3 for each manifest entry whose file does not exist yet. Failed entries are logged and the run continues; run it again to retry them.", keyword("Generate"))),
		Example: paragraph("audiogen generate --engine gtts\naudiogen generate -m tts-manifest.json -o public/audio --engine gcloud\naudiogen generate --engine piper --delay 0 --watch"),
		Args:    cobra.NoArgs,
		RunE:    runGenerate,
	}
)

var errRunFailed = errors.New("run did not produce every file")

func init() {
	generateCmd.Flags().StringVarP(&manifestPath, "manifest", "m", defaultManifest, "manifest file (JSON or YAML)")
	generateCmd.Flags().StringP("outdir", "o", "", "output directory (default public/audio)")
	generateCmd.Flags().StringVarP(&engineName, "engine", "e", "", "TTS engine: gcloud, gtts or piper")
	generateCmd.Flags().Duration("delay", 0, "pause between engine calls (default 500ms, 0 disables it)")
	generateCmd.Flags().BoolVarP(&watch, "watch", "w", false, "regenerate whenever the manifest changes")
	generateCmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip checking that every file exists after the run")
	generateCmd.Flags().BoolVar(&checkEngine, "check", false, "validate the engine (binaries, model, credentials) before the run")

	_ = viper.BindPFlag("outdir", generateCmd.Flags().Lookup("outdir"))
	_ = viper.BindPFlag("delay", generateCmd.Flags().Lookup("delay"))
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	engineType, err := tts.ValidateEngineSelection(engineName, settings.Engine)
	if err != nil {
		return err
	}
	// A missing manifest is reported before any engine setup.
	if err := manifest.Stat(manifestPath); err != nil {
		return err
	}
	if err := tts.QuickValidation(engineType, settings.Binaries()); err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := log.Default()

	engineCfg := settings.EngineConfig(settings.CacheDir(defaultCacheDir()), environ.GoogleCredentials, logger.WithPrefix(string(engineType)))
	engine, err := engines.New(ctx, engineType, engineCfg)
	if err != nil {
		return err
	}
	defer engine.Close() //nolint:errcheck

	if checkEngine {
		if err := engine.Validate(ctx); err != nil {
			return fmt.Errorf("%s engine is not usable: %w", engineType, err)
		}
		info := engine.Info()
		log.Info("engine ready", "engine", engineType, "voice", info.Voice, "variant", info.Variant)
	}

	delay := settings.Delay
	if delay == 0 {
		delay = -1
	}
	runner := &batch.Runner{
		Engine: engine,
		OutDir: settings.OutDir,
		Delay:  delay,
		Voices: engineType == tts.EngineGCloud,
		Logger: logger,
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		runner.Reporter = batch.NewBarReporter(os.Stdout)
	}
	opts := batch.Options{ManifestPath: manifestPath, Verify: !noVerify}

	if watch {
		err := batch.Watch(ctx, manifestPath, logger, func(ctx context.Context) error {
			res, err := runner.Generate(ctx, opts)
			if err != nil && !errors.Is(err, batch.ErrInterrupted) {
				return err
			}
			printSummary(os.Stdout, res)
			return nil
		})
		if errors.Is(err, batch.ErrInterrupted) {
			printInterrupted()
		}
		return err
	}

	res, err := runner.Generate(ctx, opts)
	if errors.Is(err, batch.ErrInterrupted) {
		printSummary(os.Stdout, res)
		printInterrupted()
		return err
	}
	if err != nil {
		return err
	}

	printSummary(os.Stdout, res)
	if !res.OK() {
		return errRunFailed
	}
	return nil
}

func printSummary(w io.Writer, res batch.Result) {
	s := res.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", keyword("Summary"))
	fmt.Fprintf(&b, "  Total:   %d\n", s.Total)
	fmt.Fprintf(&b, "  Success: %d\n", s.Success)
	fmt.Fprintf(&b, "  Skipped: %d\n", s.Skipped)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  Failed:  %s\n", failure(fmt.Sprint(s.Failed)))
	} else {
		fmt.Fprintf(&b, "  Failed:  %d\n", s.Failed)
	}
	if len(res.Missing) > 0 {
		fmt.Fprintf(&b, "  Missing: %s\n", failure(fmt.Sprint(len(res.Missing))))
		for _, m := range res.Missing {
			fmt.Fprintf(&b, "    %s\n", m)
		}
	}
	fmt.Fprintln(&b, faint(fmt.Sprintf("  %s written in %s (run %s)",
		humanize.Bytes(uint64(res.Bytes)), //nolint:gosec
		res.Duration.Round(time.Millisecond),
		shortID(res.RunID),
	)))
	_, _ = fmt.Fprint(w, b.String())
}

func printInterrupted() {
	fmt.Fprintln(os.Stderr, warning("\nInterrupted. Run the same command again to resume; finished files are skipped."))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
