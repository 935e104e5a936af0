package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gramophone",
	Short: "Networked OSC-controlled audio playback server",
	Long: `gramophone is a long-running audio playback server for theatrical and
installation sound-cue control. It loads named media files from a config
file, decodes them on demand, and streams them to a realtime audio
backend, all driven remotely over OSC (Open Sound Control) via UDP.

Commands:
  - serve: run the playback server`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
