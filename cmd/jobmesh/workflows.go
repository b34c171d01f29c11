package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/jobmesh/workflow"
)

// workflowsCmd represents the workflows command
var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List the available workflows",
	Run: func(cmd *cobra.Command, args []string) {
		for _, def := range workflow.Catalog() {
			fmt.Printf("%s\n", def.Type)
			fmt.Printf("  %s\n", def.Description)
			fmt.Printf("  agents: %s\n", strings.Join(def.Sequence, " -> "))
		}
	},
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
}
