package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/jobmesh"
	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/engine"
	"github.com/hupe1980/jobmesh/workflow"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Execute a workflow from the terminal and print its report",
	Long: `Executes a workflow with the given input and prints the final report as
JSON. With --events the step events are printed while the run executes.
Ctrl-C cancels the run.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWorkflow(cmd, args); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("workflow", "w", workflow.TypeJobSearch, "Workflow type to execute")
	runCmd.Flags().String("user", "", "User id recorded on the run")
	runCmd.Flags().String("session", "", "Session id to resume")
	runCmd.Flags().Bool("events", false, "Print step events while the run executes")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	workflowType, _ := cmd.Flags().GetString("workflow")
	userID, _ := cmd.Flags().GetString("user")
	sessionID, _ := cmd.Flags().GetString("session")
	printEvents, _ := cmd.Flags().GetBool("events")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mesh, cleanup, err := buildMesh(ctx, cfg, newLogger(cfg.Log), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	req := engine.Request{
		WorkflowType: workflowType,
		UserInput:    strings.Join(args, " "),
		UserID:       userID,
		SessionID:    sessionID,
	}

	var report *core.Report

	if printEvents {
		report, err = runWithEvents(ctx, mesh, req)
	} else {
		report, err = mesh.Execute(ctx, req)
	}

	if report == nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	if !report.Success {
		return fmt.Errorf("run failed: %s", report.Error)
	}

	return nil
}

func runWithEvents(ctx context.Context, mesh *jobmesh.JobMesh, req engine.Request) (*core.Report, error) {
	handle, err := mesh.ExecuteAsync(ctx, req)
	if err != nil {
		return nil, err
	}

	// The async run is detached from ctx; re-attach it so Ctrl-C cancels.
	stop := context.AfterFunc(ctx, func() {
		_ = mesh.Cancel(handle.SessionID)
	})
	defer stop()

	for ev := range handle.Events {
		line := fmt.Sprintf("step %d  %s  %s", ev.Step, ev.Agent, ev.Outcome)
		if ev.Target != "" {
			line += " -> " + ev.Target
		}

		fmt.Println(line)
	}

	report := <-handle.Report

	return report, <-handle.Errors
}
