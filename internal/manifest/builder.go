package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/gitcha"
	"github.com/tidwall/gjson"
)

const (
	placementSection = "Listening (Script-based)"
	placementSource  = "placement_test"

	// Voices for the two dialogue roles.
	speakerA     = "en-US-Standard-D"
	speakerOther = "en-US-Standard-C"

	slowRate = 0.75
)

var weekFilePattern = regexp.MustCompile(`^week-(\d+)-listening(-elite)?\.json$`)

// Counts are per-category entry totals.
type Counts struct {
	Placement int
	Weeks     int
	Elite     int
}

// Total returns the number of entries across categories.
func (c Counts) Total() int {
	return c.Placement + c.Weeks + c.Elite
}

// Builder collects listening scripts from curriculum content files into a
// manifest.
type Builder struct {
	manifest Manifest
	counts   Counts
	logger   *log.Logger
}

// NewBuilder returns an empty builder stamped with the current time.
func NewBuilder(logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{
		manifest: Manifest{GeneratedAt: time.Now(), Format: FormatAudioFiles},
		logger:   logger,
	}
}

// AddPlacementTest adds the items of the placement test's listening
// section.
func (b *Builder) AddPlacementTest(p string) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("unable to read placement test: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("placement test %s is not valid JSON", p)
	}

	var section gjson.Result
	for _, s := range gjson.GetBytes(data, "sections").Array() {
		if s.Get("name").String() == placementSection {
			section = s
			break
		}
	}
	if !section.Exists() {
		b.logger.Warn("placement test has no listening section", "path", p, "section", placementSection)
		return nil
	}

	items := section.Get("items").Array()
	for i, it := range items {
		difficulty := it.Get("difficulty").String()
		b.add(Entry{
			ID:         "placement_" + strings.ToLower(difficulty),
			Source:     placementSource,
			OutFile:    it.Get("audio").String(),
			Text:       it.Get("script").String(),
			Difficulty: difficulty,
			Speaker:    speakerA,
			Rate:       1.0,
			Context:    fmt.Sprintf("Placement Test - Question %d", i+1),
		})
	}
	b.counts.Placement += len(items)
	b.logger.Info("placement test", "entries", len(items))
	return nil
}

// AddWeek adds the main, slow and per-segment audio of one week's
// listening file. A missing file is logged and skipped.
func (b *Builder) AddWeek(week int, p string, elite bool) error {
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		b.logger.Warn("week listening file not found", "week", week, "path", p)
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to read week %d: %w", week, err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("week %d listening file %s is not valid JSON", week, p)
	}

	doc := gjson.ParseBytes(data)
	source := fmt.Sprintf("week-%d-listening", week)
	if elite {
		source += "-elite"
	}
	level := doc.Get("level").String()
	paragraphs := doc.Get("content.fullTranscript.paragraphs").Array()
	script := fullScript(paragraphs)

	var added int
	if main := doc.Get("audioFiles.main"); main.Exists() && main.String() != "" {
		b.add(Entry{
			ID:         fmt.Sprintf("week%d_main", week),
			Source:     source,
			OutFile:    main.String(),
			Text:       script,
			Difficulty: level,
			Speaker:    speakerA,
			Rate:       1.0,
			Context:    fmt.Sprintf("Week %d - Main dialogue", week),
		})
		added++
	}
	if slow := doc.Get("audioFiles.slow"); slow.Exists() && slow.String() != "" {
		b.add(Entry{
			ID:         fmt.Sprintf("week%d_slow", week),
			Source:     source,
			OutFile:    slow.String(),
			Text:       script,
			Difficulty: level,
			Speaker:    speakerA,
			Rate:       slowRate,
			Context:    fmt.Sprintf("Week %d - Slow version", week),
		})
		added++
	}

	segments := doc.Get("audioFiles.segments")
	if segments.IsArray() {
		segs := segments.Array()
		for i, para := range paragraphs {
			if i >= len(segs) || segs[i].String() == "" {
				continue
			}
			speaker := para.Get("speaker").String()
			voice := speakerOther
			if speaker == "A" {
				voice = speakerA
			}
			b.add(Entry{
				ID:         fmt.Sprintf("week%d_seg%d", week, i+1),
				Source:     source,
				OutFile:    segs[i].String(),
				Text:       para.Get("text").String(),
				Difficulty: level,
				Speaker:    voice,
				Rate:       1.0,
				Context:    fmt.Sprintf("Week %d - Segment %d (Speaker %s)", week, i+1, speaker),
			})
			added++
		}
	}

	if elite {
		b.counts.Elite += added
	} else {
		b.counts.Weeks += added
	}
	b.logger.Info("week listening", "week", week, "elite", elite, "entries", added)
	return nil
}

// ScanWeeks finds week-N-listening[-elite].json files below dir and adds
// them in week order, regular before elite within a week.
func (b *Builder) ScanWeeks(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("unable to scan %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("unable to scan %s: not a directory", dir)
	}

	ch, err := gitcha.FindAllFilesExcept(dir, []string{"week-*-listening*.json"}, nil)
	if err != nil {
		return fmt.Errorf("unable to scan %s: %w", dir, err)
	}
	if ch == nil {
		return nil
	}

	type weekFile struct {
		week  int
		elite bool
		path  string
	}
	var files []weekFile
	for res := range ch {
		m := weekFilePattern.FindStringSubmatch(filepath.Base(res.Path))
		if m == nil {
			b.logger.Debug("skipping non-listening file", "path", res.Path)
			continue
		}
		week, _ := strconv.Atoi(m[1])
		files = append(files, weekFile{week: week, elite: m[2] != "", path: res.Path})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].week != files[j].week {
			return files[i].week < files[j].week
		}
		if files[i].elite != files[j].elite {
			return !files[i].elite
		}
		return files[i].path < files[j].path
	})

	if len(files) == 0 {
		b.logger.Warn("no week listening files found", "dir", dir)
	}
	for _, f := range files {
		if err := b.AddWeek(f.week, f.path, f.elite); err != nil {
			return err
		}
	}
	return nil
}

// Manifest returns a copy of the collected manifest.
func (b *Builder) Manifest() *Manifest {
	m := b.manifest
	m.Entries = append([]Entry(nil), b.manifest.Entries...)
	return &m
}

// Counts returns per-category totals.
func (b *Builder) Counts() Counts {
	return b.counts
}

func (b *Builder) add(e Entry) {
	b.manifest.Entries = append(b.manifest.Entries, e)
}

func fullScript(paragraphs []gjson.Result) string {
	texts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		texts = append(texts, p.Get("text").String())
	}
	return strings.Join(texts, " ")
}
