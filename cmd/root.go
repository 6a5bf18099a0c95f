package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "deepj",
	Short: "Style conditioned music generation",
	Long:  `Builds, trains and samples a two axis LSTM that predicts which notes are played and articulated at the next step.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
