// Package examples replaces the example sentences of vocabulary words in
// per-week content files (week-N-vocabulary-elite.json) while keeping the
// audio already generated for each position.
package examples
