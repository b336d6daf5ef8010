package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/examples"
	"github.com/spf13/cobra"
)

var (
	examplesDir  string
	examplesData string
	weeksFlag    string

	examplesCmd = &cobra.Command{
		Use:   "examples",
		Short: "Replace vocabulary example sentences in week files",
		Long: paragraph(fmt.Sprintf("\n%s the example sentences of vocabulary words in week-N-vocabulary-elite.json files. Each new sentence keeps the audio of the sentence it replaces, by position.", keyword("Replace"))),
		Example: paragraph("audiogen examples --dir week-content\naudiogen examples --dir week-content --weeks 10,12 --data improvements.json"),
		Args:    cobra.NoArgs,
		RunE:    runExamples,
	}
)

func init() {
	examplesCmd.Flags().StringVarP(&examplesDir, "dir", "d", ".", "directory with the week vocabulary files")
	examplesCmd.Flags().StringVar(&weeksFlag, "weeks", "10-16", "weeks to patch, as a range (10-16) or a list (10,12)")
	examplesCmd.Flags().StringVar(&examplesData, "data", "", "improvements JSON file (default: built-in week 10 set)")
}

func runExamples(*cobra.Command, []string) error {
	weeks, err := parseWeeks(weeksFlag)
	if err != nil {
		return err
	}

	improvements := examples.DefaultImprovements()
	if examplesData != "" {
		f, err := os.Open(examplesData)
		if err != nil {
			return fmt.Errorf("unable to open improvements: %w", err)
		}
		improvements, err = examples.LoadImprovements(f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}

	p := &examples.Patcher{
		Dir:          examplesDir,
		Improvements: improvements,
		Logger:       log.Default(),
	}
	changed, err := p.PatchWeeks(weeks)
	fmt.Fprintf(os.Stdout, "%s %d of %d week files\n", keyword("Updated"), changed, len(weeks))
	return err
}

// parseWeeks accepts "10-16", "10,12,14" or a mix such as "10-12,15".
func parseWeeks(s string) ([]int, error) {
	var weeks []int
	seen := map[int]bool{}
	add := func(w int) {
		if !seen[w] {
			seen[w] = true
			weeks = append(weeks, w)
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || from < 1 {
			return nil, fmt.Errorf("invalid week %q", part)
		}
		to := from
		if isRange {
			to, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || to < from {
				return nil, fmt.Errorf("invalid week range %q", part)
			}
		}
		for w := from; w <= to; w++ {
			add(w)
		}
	}
	if len(weeks) == 0 {
		return nil, fmt.Errorf("no weeks in %q", s)
	}
	return weeks, nil
}
