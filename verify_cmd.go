package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/elitetrack/audiogen/internal/batch"
	"github.com/elitetrack/audiogen/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	verifyManifest string
	verifyOutDir   string

	verifyCmd = &cobra.Command{
		Use:     "verify",
		Short:   "Check that every manifest entry has its MP3",
		Long:    paragraph(fmt.Sprintf("\n%s that the output directory holds a file for every manifest entry. Exits with status 1 when any file is missing.", keyword("Check"))),
		Example: paragraph("audiogen verify\naudiogen verify -m tts-manifest.json -o public/audio"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := manifest.Load(verifyManifest)
			if err != nil {
				return err
			}
			outDir := verifyOutDir
			if outDir == "" {
				outDir = settings.OutDir
			}

			missing := batch.Verify(m, outDir)
			if len(missing) == 0 {
				log.Info("all files present", "count", len(m.Entries), "dir", outDir)
				return nil
			}

			fmt.Fprintf(os.Stdout, "%s %d of %d files\n", failure("Missing"), len(missing), len(m.Entries))
			for _, name := range missing {
				fmt.Fprintf(os.Stdout, "  %s\n", name)
			}
			return errRunFailed
		},
	}
)

func init() {
	verifyCmd.Flags().StringVarP(&verifyManifest, "manifest", "m", defaultManifest, "manifest file (JSON or YAML)")
	verifyCmd.Flags().StringVarP(&verifyOutDir, "outdir", "o", "", "output directory (default from config)")
}
