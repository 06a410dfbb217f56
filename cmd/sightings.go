package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/samaritan/internal/utils"
	"github.com/spf13/cobra"
)

var sightingsLimit int

var sightingsCmd = &cobra.Command{
	Use:         "sightings",
	Short:       "List the latest faces recorded in the sightings journal",
	Annotations: map[string]string{dbAnnotation: dbRequired},
	Run: func(cmd *cobra.Command, args []string) {
		rows, err := DB.ListSightings(cmd.Context(), sightingsLimit)
		if err != nil {
			utils.Die("Failed to list sightings", err, nil)
		}

		if len(rows) == 0 {
			fmt.Println("No sightings found in database.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tRUN\tFRAME\tLABEL\tROLE\tLOCATION\tSEEN")
		fmt.Fprintln(w, "--\t---\t-----\t-----\t----\t--------\t----")

		for _, s := range rows {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%v\t%s\n",
				s.ID, s.RunID.String()[:8], s.Frame, s.Label, roleColumn(s.Role), s.Location, s.SeenAt.Local().Format("2006-01-02 15:04:05"))
		}
		w.Flush()
	},
}

// roleColumn shows unresolved faces, which have no role, as a dash.
func roleColumn(role string) string {
	if role == "" {
		return "-"
	}
	return role
}

func init() {
	sightingsCmd.Flags().IntVarP(&sightingsLimit, "limit", "n", 20, "Number of rows to show")
	rootCmd.AddCommand(sightingsCmd)
}
