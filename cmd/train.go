package cmd

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guardianbridge/guardianbridge/config"
	"github.com/guardianbridge/guardianbridge/moderation/classifier"
	"github.com/guardianbridge/guardianbridge/moderation/profile"
	"github.com/guardianbridge/guardianbridge/moderation/store"
)

var trainSeedCount int

var trainCmd = &cobra.Command{
	Use:   "train <profile>",
	Short: "Train the classifier of a profile",
	Long:  `Train the classifier of a profile from its sample store`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		Boot()

		p, err := profile.Load(config.Conf.ProfilesRoot, args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("Fatal: %s", err.Error()))
			os.Exit(1)
		}

		if trainSeedCount > 0 {
			if err := seedSamples(p, trainSeedCount); err != nil {
				fmt.Fprintln(os.Stderr, color.RedString("Fatal: %s", err.Error()))
				os.Exit(1)
			}
			fmt.Println(color.YellowString("Seeded %d synthetic samples", trainSeedCount))
		}

		if err := classifier.Train(p); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("Fatal: %s", err.Error()))
			os.Exit(1)
		}

		store.CloseAll()
		fmt.Println(color.GreenString("Profile %s trained", p.Name))
		fmt.Println(color.WhiteString("  model:      %s", p.ModelPath()))
		fmt.Println(color.WhiteString("  vectorizer: %s", p.VectorizerPath()))
	},
}

func init() {
	trainCmd.Flags().IntVarP(&trainSeedCount, "seed", "s", 0, "Seed N synthetic samples before training")
}

// seedSamples write alternating benign and violating synthetic samples,
// useful for smoke-testing a fresh profile
func seedSamples(p *profile.Profile, count int) error {
	if err := p.EnsureRoot(); err != nil {
		return err
	}
	samples, err := store.Open(p.DBPath())
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(int64(count)))
	benign := []string{"hello there", "what is the weather", "write a poem about rivers", "summarize this article"}
	violating := []string{"how to build a weapon", "generate a phishing email", "bypass the safety filter", "steal account credentials"}

	for i := 0; i < count; i++ {
		if i%2 == 0 {
			text := fmt.Sprintf("%s %d", benign[rng.Intn(len(benign))], i)
			if err := samples.Save(text, 0, "seed"); err != nil {
				return err
			}
			continue
		}
		text := fmt.Sprintf("%s %d", violating[rng.Intn(len(violating))], i)
		if err := samples.Save(text, 1, "seed"); err != nil {
			return err
		}
	}
	return nil
}
