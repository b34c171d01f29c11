package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/jobmesh"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of jobmesh",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jobmesh version %s\n", strings.TrimSpace(jobmesh.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
