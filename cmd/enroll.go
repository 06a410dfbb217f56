package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/andresmejia3/samaritan/internal/engine"
	"github.com/andresmejia3/samaritan/internal/enroll"
	"github.com/andresmejia3/samaritan/internal/types"
	"github.com/andresmejia3/samaritan/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Build the enrollment cache and report who would be recognised",
	Run: func(cmd *cobra.Command, args []string) {
		o := opts
		o.Glyph, o.Window = "samaritan", "Video"
		if err := validateWatchFlags(&o); err != nil {
			utils.Die("Invalid flags", err, nil)
		}

		eng := startEngine(cmd.Context(), o)
		defer eng.Close()

		faces, results := loadEnrollment(o.EnrollRoot, eng)
		printEnrollment(faces, results)
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

// loadEnrollment scans the role folders under root and enrolls every image.
// Missing folders and unusable files are reported and skipped.
func loadEnrollment(root string, eng engine.Engine) ([]types.EnrolledFace, []enroll.Result) {
	sources, missing := enroll.Scan(root, enroll.DefaultFolders)
	for _, err := range missing {
		utils.Warn("Skipping enrollment folder: %v", err)
	}

	bar := progressbar.NewOptions(len(sources),
		progressbar.OptionSetDescription("🧬 Enrolling faces"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)
	b := &enroll.Builder{
		Detector: eng,
		Encoder:  eng,
		OnResult: func(enroll.Result) { bar.Add(1) },
	}
	faces, results := b.Build(sources)
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	for _, r := range enroll.Faults(results) {
		utils.Warn("Skipped %s: %v", r.Path, r.Err)
	}
	return faces, results
}

func printEnrollment(faces []types.EnrolledFace, results []enroll.Result) {
	if len(faces) == 0 {
		fmt.Println("No faces enrolled.")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "#\tNAME\tROLE\tSOURCE")
		fmt.Fprintln(w, "-\t----\t----\t------")
		for i, f := range faces {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, f.DisplayName, f.Role, filepath.ToSlash(f.Source))
		}
		w.Flush()
	}

	if faults := enroll.Faults(results); len(faults) > 0 {
		fmt.Printf("\n%d of %d files skipped.\n", len(faults), len(results))
	}
}
