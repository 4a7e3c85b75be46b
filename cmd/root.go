// Package cmd implements the gateway command line
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guardianbridge/guardianbridge/config"
	"github.com/guardianbridge/guardianbridge/share"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   share.BUILDNAME,
	Short: "GuardianBridge AI Gateway",
	Long:  `GuardianBridge AI Gateway`,
	Args:  cobra.MinimumNArgs(1),
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stderr, "One or more arguments are not correct", args)
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(
		versionCmd,
		startCmd,
		trainCmd,
		samplesCmd,
	)
	rootCmd.PersistentFlags().StringVarP(&envFile, "env", "e", "", "Environment file")
}

// Execute run the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Boot reload the configuration with the command line overrides
func Boot() {
	if envFile == "" {
		config.Init()
		return
	}

	config.Conf = config.LoadFrom(envFile)
	if config.Conf.Mode == "development" {
		config.Development()
	} else {
		config.Production()
	}
}
