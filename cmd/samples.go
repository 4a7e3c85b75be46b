package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guardianbridge/guardianbridge/config"
	"github.com/guardianbridge/guardianbridge/moderation/profile"
	"github.com/guardianbridge/guardianbridge/moderation/store"
)

var samplesLimit int

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Inspect and maintain moderation samples",
	Long:  `Inspect and maintain the moderation sample store of a profile`,
}

var samplesListCmd = &cobra.Command{
	Use:   "list <profile>",
	Short: "List recent samples",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		samples := openSamples(args[0])
		defer store.CloseAll()

		rows, err := samples.List(samplesLimit)
		if err != nil {
			fatal(err)
		}
		for _, row := range rows {
			label := color.GreenString("pass")
			if row.Label == 1 {
				label = color.RedString("block")
			}
			fmt.Printf("%6d  %s  %-8s  %s\n",
				row.ID, row.CreatedAt.Format("2006-01-02 15:04:05"), label, row.Text)
		}
	},
}

var samplesCountCmd = &cobra.Command{
	Use:   "count <profile>",
	Short: "Count samples",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		samples := openSamples(args[0])
		defer store.CloseAll()

		count, err := samples.Count()
		if err != nil {
			fatal(err)
		}
		fmt.Println(count)
	},
}

var samplesFindCmd = &cobra.Command{
	Use:   "find <profile> <text>",
	Short: "Find the most recent sample with the exact text",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		samples := openSamples(args[0])
		defer store.CloseAll()

		row, err := samples.FindByText(args[1])
		if err != nil {
			fatal(err)
		}
		if row == nil {
			fmt.Println(color.YellowString("Not found"))
			return
		}
		fmt.Printf("%d  label=%d  category=%s  %s\n", row.ID, row.Label, row.Category, row.Text)
	},
}

var samplesDeleteCmd = &cobra.Command{
	Use:   "delete <profile> <substring>",
	Short: "Delete every sample containing the substring",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		samples := openSamples(args[0])
		defer store.CloseAll()

		removed, err := samples.DeleteByText(args[1])
		if err != nil {
			fatal(err)
		}
		fmt.Println(color.GreenString("Deleted %d samples", removed))
	},
}

func init() {
	samplesCmd.AddCommand(samplesListCmd, samplesCountCmd, samplesFindCmd, samplesDeleteCmd)
	samplesListCmd.Flags().IntVarP(&samplesLimit, "limit", "n", 20, "Number of samples to show")
}

func openSamples(name string) *store.Store {
	Boot()
	p, err := profile.Load(config.Conf.ProfilesRoot, name)
	if err != nil {
		fatal(err)
	}
	samples, err := store.Open(p.DBPath())
	if err != nil {
		fatal(err)
	}
	return samples
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, color.RedString("Fatal: %s", err.Error()))
	os.Exit(1)
}
