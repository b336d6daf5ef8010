// Package batch runs manifest entries through a TTS engine and writes the
// resulting MP3 files. Runs are sequential and idempotent: existing files
// are skipped, failures are counted and never abort the run.
package batch
