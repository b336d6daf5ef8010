package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	placementPath string
	scanDirs      []string
	manifestOut   string

	manifestCmd = &cobra.Command{
		Use:   "manifest",
		Short: "Build a TTS manifest from curriculum content",
		Long: paragraph(fmt.Sprintf("\n%s a manifest from the placement test listening section and every week-N-listening[-elite].json file found in the scanned directories.", keyword("Build"))),
		Example: paragraph("audiogen manifest --placement src/data/placement-test.json --scan src/data/curriculum\naudiogen manifest --scan week-content --out tts-manifest.yaml"),
		Args:    cobra.NoArgs,
		RunE:    runManifest,
	}
)

func init() {
	manifestCmd.Flags().StringVarP(&placementPath, "placement", "p", "", "placement test JSON file")
	manifestCmd.Flags().StringSliceVarP(&scanDirs, "scan", "s", nil, "directory with week listening files (repeatable)")
	manifestCmd.Flags().StringVar(&manifestOut, "out", defaultManifest, "where to write the manifest (.json or .yaml)")
}

func runManifest(*cobra.Command, []string) error {
	if placementPath == "" && len(scanDirs) == 0 {
		return errors.New("nothing to build: pass --placement and/or --scan")
	}

	b := manifest.NewBuilder(log.Default())
	if placementPath != "" {
		if err := b.AddPlacementTest(placementPath); err != nil {
			return err
		}
	}
	for _, dir := range scanDirs {
		if err := b.ScanWeeks(dir); err != nil {
			return err
		}
	}

	counts := b.Counts()
	if counts.Total() == 0 {
		log.Warn("no listening scripts found; writing an empty manifest")
	}
	if err := b.Manifest().Save(manifestOut); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s %s\n", keyword("Wrote"), manifestOut)
	fmt.Fprintf(os.Stdout, "  Placement: %d\n", counts.Placement)
	fmt.Fprintf(os.Stdout, "  Weeks:     %d\n", counts.Weeks)
	fmt.Fprintf(os.Stdout, "  Elite:     %d\n", counts.Elite)
	fmt.Fprintf(os.Stdout, "  Total:     %d\n", counts.Total())
	return nil
}
