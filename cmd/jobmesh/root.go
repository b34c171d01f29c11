package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobmesh",
	Short: "Jobmesh is a multi-agent job search and resume optimization engine",
	Long: `Jobmesh orchestrates LLM agents over job boards and resumes: searching
postings, scoring resumes, mapping skill demand and rewriting resumes through
configurable workflows. Run workflows from the terminal or serve them over HTTP.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file")
}
