package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lorebinders",
	Short: "Build a story bible from a manuscript",
	Long: `LoreBinders reads a manuscript, extracts the characters, locations and
other entities of each chapter, profiles them with a language model and
writes the merged binder as JSON. Intermediate results are cached per book,
so an interrupted run resumes where it stopped.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
