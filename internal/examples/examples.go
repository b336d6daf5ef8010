package examples

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

const examplesPath = "content.examples"

//go:embed improvements.json
var defaultImprovements []byte

// ErrNoExamples is returned when a document has no content.examples object.
var ErrNoExamples = errors.New("document has no content.examples object")

// Example is one example sentence for a vocabulary word.
type Example struct {
	Level       string `json:"level"`
	Sentence    string `json:"sentence"`
	Translation string `json:"translation"`
	Notes       string `json:"notes"`
}

// storedExample is the on-disk shape, with the audio generated for it.
type storedExample struct {
	Level       string `json:"level"`
	Sentence    string `json:"sentence"`
	Translation string `json:"translation"`
	Notes       string `json:"notes"`
	AudioURL    string `json:"audioUrl"`
}

// WordSet maps a vocabulary word to its replacement examples.
type WordSet map[string][]Example

// Improvements maps a week number to its replacement word set.
type Improvements map[int]WordSet

// Weeks returns the weeks that have data, in order.
func (im Improvements) Weeks() []int {
	weeks := make([]int, 0, len(im))
	for w := range im {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// LoadImprovements decodes {"<week>": {"<word>": [examples]}}.
func LoadImprovements(r io.Reader) (Improvements, error) {
	var raw map[string]WordSet
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("unable to decode improvements: %w", err)
	}

	im := make(Improvements, len(raw))
	for key, words := range raw {
		week, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid week %q: %w", key, err)
		}
		im[week] = words
	}
	return im, nil
}

var loadDefault = sync.OnceValues(func() (Improvements, error) {
	return LoadImprovements(bytes.NewReader(defaultImprovements))
})

// DefaultImprovements returns the built-in replacement sentences (week 10,
// business analytics vocabulary).
func DefaultImprovements() Improvements {
	im, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("embedded improvements are invalid: %v", err))
	}
	return im
}

// Result describes what PatchDocument changed.
type Result struct {
	// Replaced lists words whose examples were replaced, sorted.
	Replaced []string
	// Missing lists words not present in the document, sorted.
	Missing []string
	// Suggestions maps a missing word to the closest word in the document.
	Suggestions map[string]string
	// Warnings describe length mismatches between old and new lists.
	Warnings []string
}

// Changed reports whether the document was modified.
func (r Result) Changed() bool {
	return len(r.Replaced) > 0
}

// PatchDocument replaces the example lists of the given words inside
// content.examples. Replacement is positional: the new example at index i
// keeps the audioUrl of the old example at index i. Words absent from the
// document are left alone. Everything else in the document is preserved,
// including key order; the result is re-indented with two spaces.
func PatchDocument(doc []byte, words WordSet) ([]byte, Result, error) {
	res := Result{Suggestions: map[string]string{}}

	if !gjson.ValidBytes(doc) {
		return nil, res, errors.New("document is not valid JSON")
	}
	existing := gjson.GetBytes(doc, examplesPath)
	if !existing.IsObject() {
		return nil, res, ErrNoExamples
	}
	var docWords []string
	existing.ForEach(func(key, _ gjson.Result) bool {
		docWords = append(docWords, key.String())
		return true
	})

	names := make([]string, 0, len(words))
	for w := range words {
		names = append(names, w)
	}
	sort.Strings(names)

	out := doc
	for _, word := range names {
		path := examplesPath + "." + gjson.Escape(word)
		old := gjson.GetBytes(out, path)
		if !old.Exists() {
			res.Missing = append(res.Missing, word)
			if matches := fuzzy.Find(word, docWords); len(matches) > 0 {
				res.Suggestions[word] = matches[0].Str
			}
			continue
		}

		oldList := old.Array()
		newList := words[word]
		if len(newList) > len(oldList) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%q: %d new examples but only %d existing; extra examples have no audio",
				word, len(newList), len(oldList)))
		} else if len(newList) < len(oldList) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%q: %d new examples replace %d existing; trailing examples are dropped",
				word, len(newList), len(oldList)))
		}

		stored := make([]storedExample, 0, len(newList))
		for i, ex := range newList {
			var audioURL string
			if i < len(oldList) {
				audioURL = oldList[i].Get("audioUrl").String()
			}
			stored = append(stored, storedExample{
				Level:       ex.Level,
				Sentence:    ex.Sentence,
				Translation: ex.Translation,
				Notes:       ex.Notes,
				AudioURL:    audioURL,
			})
		}

		raw, err := marshalCompact(stored)
		if err != nil {
			return nil, res, fmt.Errorf("unable to encode examples for %q: %w", word, err)
		}
		out, err = sjson.SetRawBytes(out, path, raw)
		if err != nil {
			return nil, res, fmt.Errorf("unable to replace examples for %q: %w", word, err)
		}
		res.Replaced = append(res.Replaced, word)
	}

	if !res.Changed() {
		return doc, res, nil
	}
	return pretty.PrettyOptions(out, &pretty.Options{Indent: "  "}), res, nil
}

// marshalCompact encodes v without escaping <, > and &.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WeekFile returns the vocabulary file name for week.
func WeekFile(week int) string {
	return fmt.Sprintf("week-%d-vocabulary-elite.json", week)
}

// Patcher applies improvements to the week files of a directory.
type Patcher struct {
	Dir          string
	Improvements Improvements
	Logger       *log.Logger
}

// ErrNoData is returned by PatchWeek for a week without improvement data.
var ErrNoData = errors.New("no improvement data")

// PatchWeek patches one week's vocabulary file. The file is written back
// only when at least one word was replaced.
func (p *Patcher) PatchWeek(week int) (Result, error) {
	logger := p.logger().With("week", week)

	words, ok := p.Improvements[week]
	if !ok || len(words) == 0 {
		return Result{}, ErrNoData
	}

	path := filepath.Join(p.Dir, WeekFile(week))
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("week %d: %w", week, err)
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("week %d: %w", week, err)
	}

	out, res, err := PatchDocument(doc, words)
	if err != nil {
		return res, fmt.Errorf("week %d: %s: %w", week, path, err)
	}
	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	for _, word := range res.Missing {
		if s, ok := res.Suggestions[word]; ok {
			logger.Debug("word not in file", "word", word, "closest", s)
		} else {
			logger.Debug("word not in file", "word", word)
		}
	}
	if !res.Changed() {
		logger.Info("nothing to replace", "file", path)
		return res, nil
	}

	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("week %d: unable to write %s: %w", week, path, err)
	}
	logger.Info("examples replaced", "file", filepath.Base(path), "words", len(res.Replaced))
	return res, nil
}

// PatchWeeks patches every week in weeks and returns how many files were
// changed. Weeks without data are skipped; a failing week is logged and
// the others still run. The returned error joins every week failure.
func (p *Patcher) PatchWeeks(weeks []int) (int, error) {
	var (
		changed int
		errs    []error
	)
	for _, week := range weeks {
		res, err := p.PatchWeek(week)
		switch {
		case errors.Is(err, ErrNoData):
			p.logger().Info("skip", "week", week, "reason", "no improvement data")
		case err != nil:
			p.logger().Error("patch failed", "week", week, "err", err)
			errs = append(errs, err)
		case res.Changed():
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

func (p *Patcher) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}
