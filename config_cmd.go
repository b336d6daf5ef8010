package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# TTS engine: gcloud, gtts or piper. There is no default; pass --engine
# or set it here.
engine: ""
# where MP3 files are written
outdir: "public/audio"
# pause between engine calls
delay: "500ms"
# per-request timeout
timeout: "30s"

# synthesis cache (zstd compressed, keyed by engine, voice, text and rate)
cache:
  enabled: false
  # dir: "~/.cache/audiogen/tts"
  max_size: 512 # MB

# Google Cloud Text-to-Speech
gcloud:
  voice: "en-US-Neural2-C"
  # defaults to the voice's locale
  # language: "en-US"
  # service account key; GOOGLE_APPLICATION_CREDENTIALS is used when unset
  # credentials: "~/keys/tts.json"

# gTTS (pip install gtts)
gtts:
  binary: "gtts-cli"
  language: "en"
  # Google Translate host, changes the accent (com, co.uk, com.au)
  tld: "com"
  requests_per_minute: 50

# Piper (offline)
piper:
  binary: "piper"
  # model: "~/voices/en_US-lessac-medium.onnx"
  # config: "~/voices/en_US-lessac-medium.onnx.json"
  # speaker: "0"

# encodes Piper output as MP3
ffmpeg:
  binary: "ffmpeg"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the audiogen config file",
	Long:    paragraph(fmt.Sprintf("\n%s the audiogen config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("audiogen config\naudiogen config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// A broken config file must still be editable.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("audiogen", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
