package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrManifestNotFound is returned by Load when the manifest file does not exist.
var ErrManifestNotFound = errors.New("manifest not found")

// ErrUnsafePath is returned when an entry's output path would land outside
// the output directory.
var ErrUnsafePath = errors.New("output path escapes the output directory")

// Format identifies the on-disk shape of a manifest.
type Format int

const (
	// FormatAudioFiles is {"totalAudioFiles": N, "audioFiles": [{id, script, audioPath, speed, ...}]}.
	FormatAudioFiles Format = iota
	// FormatItems is a bare array of {id, text, outfile, rate}.
	FormatItems
)

func (f Format) String() string {
	switch f {
	case FormatAudioFiles:
		return "audioFiles"
	case FormatItems:
		return "items"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Entry is one text to synthesize and where to put it.
type Entry struct {
	ID      string
	Text    string
	OutFile string
	// Rate is the speaking rate multiplier; zero means 1.0.
	Rate float64

	Source     string
	Difficulty string
	// Speaker is a voice name (e.g. en-US-Standard-D).
	Speaker string
	Context string
}

// Manifest is an ordered list of entries.
type Manifest struct {
	GeneratedAt time.Time
	Entries     []Entry
	Format      Format
}

type audioFile struct {
	ID         string  `json:"id" yaml:"id"`
	Source     string  `json:"source,omitempty" yaml:"source,omitempty"`
	AudioPath  string  `json:"audioPath" yaml:"audioPath"`
	Script     string  `json:"script" yaml:"script"`
	Difficulty string  `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Speaker    string  `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Speed      float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	Context    string  `json:"context,omitempty" yaml:"context,omitempty"`
}

type audioFilesDocument struct {
	GeneratedAt     string      `json:"generatedAt,omitempty" yaml:"generatedAt,omitempty"`
	TotalAudioFiles int         `json:"totalAudioFiles" yaml:"totalAudioFiles"`
	AudioFiles      []audioFile `json:"audioFiles" yaml:"audioFiles"`
}

type item struct {
	ID      string  `json:"id" yaml:"id"`
	Text    string  `json:"text" yaml:"text"`
	OutFile string  `json:"outfile" yaml:"outfile"`
	Rate    float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
}

// Stat reports ErrManifestNotFound when p does not exist and an error when
// it is a directory.
func Stat(p string) error {
	fi, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrManifestNotFound, p)
	}
	if err != nil {
		return fmt.Errorf("unable to read manifest: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("manifest %s is a directory", p)
	}
	return nil
}

// Load reads a manifest in either format. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func Load(p string) (*Manifest, error) {
	if err := Stat(p); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("unable to read manifest: %w", err)
	}

	var m *Manifest
	if isYAML(p) {
		m, err = parseYAML(data)
	} else {
		m, err = parseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse manifest %s: %w", p, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", p, err)
	}
	return m, nil
}

func isYAML(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".yaml" || ext == ".yml"
}

func parseJSON(data []byte) (*Manifest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty manifest")
	}

	switch trimmed[0] {
	case '[':
		var items []item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return fromItems(items), nil
	case '{':
		var doc audioFilesDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		return fromAudioFiles(doc), nil
	default:
		return nil, fmt.Errorf("unexpected top-level token %q", trimmed[0])
	}
}

func parseYAML(data []byte) (*Manifest, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("empty manifest")
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var items []item
		if err := node.Decode(&items); err != nil {
			return nil, err
		}
		return fromItems(items), nil
	case yaml.MappingNode:
		var doc audioFilesDocument
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		return fromAudioFiles(doc), nil
	default:
		return nil, errors.New("manifest must be a list or a mapping")
	}
}

func fromItems(items []item) *Manifest {
	m := &Manifest{Format: FormatItems, Entries: make([]Entry, 0, len(items))}
	for _, it := range items {
		m.Entries = append(m.Entries, Entry{
			ID:      it.ID,
			Text:    it.Text,
			OutFile: it.OutFile,
			Rate:    it.Rate,
		})
	}
	return m
}

func fromAudioFiles(doc audioFilesDocument) *Manifest {
	m := &Manifest{Format: FormatAudioFiles, Entries: make([]Entry, 0, len(doc.AudioFiles))}
	if t, err := time.Parse(time.RFC3339Nano, doc.GeneratedAt); err == nil {
		m.GeneratedAt = t
	}
	for _, af := range doc.AudioFiles {
		m.Entries = append(m.Entries, Entry{
			ID:         af.ID,
			Text:       af.Script,
			OutFile:    af.AudioPath,
			Rate:       af.Speed,
			Source:     af.Source,
			Difficulty: af.Difficulty,
			Speaker:    af.Speaker,
			Context:    af.Context,
		})
	}
	return m
}

func (m *Manifest) validate() error {
	for i, e := range m.Entries {
		switch {
		case strings.TrimSpace(e.ID) == "":
			return fmt.Errorf("entry %d: missing id", i)
		case strings.TrimSpace(e.Text) == "":
			return fmt.Errorf("entry %d (%s): missing text", i, e.ID)
		case strings.TrimSpace(e.OutFile) == "":
			return fmt.Errorf("entry %d (%s): missing output path", i, e.ID)
		}
	}
	return nil
}

// Save writes m in the audio-files format, as JSON unless p ends in .yaml
// or .yml.
func (m *Manifest) Save(p string) error {
	doc := audioFilesDocument{
		TotalAudioFiles: len(m.Entries),
		AudioFiles:      make([]audioFile, 0, len(m.Entries)),
	}
	if !m.GeneratedAt.IsZero() {
		doc.GeneratedAt = m.GeneratedAt.UTC().Format(time.RFC3339Nano)
	}
	for _, e := range m.Entries {
		doc.AudioFiles = append(doc.AudioFiles, audioFile{
			ID:         e.ID,
			Source:     e.Source,
			AudioPath:  e.OutFile,
			Script:     e.Text,
			Difficulty: e.Difficulty,
			Speaker:    e.Speaker,
			Speed:      e.Rate,
			Context:    e.Context,
		})
	}

	var (
		data []byte
		err  error
	)
	if isYAML(p) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = encodeJSON(doc)
	}
	if err != nil {
		return fmt.Errorf("unable to encode manifest: %w", err)
	}

	if dir := filepath.Dir(p); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("unable to create manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(p, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write manifest: %w", err)
	}
	return nil
}

// encodeJSON indents with two spaces and leaves non-ASCII text unescaped.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename returns the path of the entry's audio file relative to the
// output directory. Audio-files manifests keep only the base name of
// audioPath; item manifests keep the relative outfile.
func (e Entry) Filename(format Format) (string, error) {
	if format == FormatAudioFiles {
		name := path.Base(filepath.ToSlash(e.OutFile))
		if name == "." || name == "/" || name == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, e.OutFile)
		}
		return name, nil
	}

	rel := filepath.Clean(filepath.FromSlash(e.OutFile))
	if filepath.IsAbs(rel) || strings.HasPrefix(filepath.ToSlash(rel), "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafePath, e.OutFile)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, e.OutFile)
	}
	return rel, nil
}

// Filename resolves e against the manifest's own format.
func (m *Manifest) Filename(e Entry) (string, error) {
	return e.Filename(m.Format)
}
