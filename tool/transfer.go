package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/jobmesh/core"
)

// TransferPrefix is the naming prefix shared by all transfer tools.
// A tool named "transfer_to_resume_critic" hands control to the agent
// "resume_critic".
const TransferPrefix = "transfer_to_"

// TransferTarget extracts the target agent from a transfer tool name.
// The second return value is false when the name is not a transfer tool.
func TransferTarget(toolName string) (string, bool) {
	target, ok := strings.CutPrefix(toolName, TransferPrefix)
	if !ok || target == "" {
		return "", false
	}

	return target, true
}

// NewTransferTool creates a tool that hands control to the named agent.
//
// Each reachable agent gets its own transfer tool so the model selects a
// target by choosing a function, not by spelling an agent name into a
// string argument. Calling the tool records a handoff request on the
// ToolContext; the executor picks it up after the step and routes to the
// target. If several transfer tools fire in one step, the last request
// wins.
//
// The tool itself never fails: an unknown target is a routing concern and
// is rejected by the executor, not here.
func NewTransferTool(target, description string) *FunctionTool {
	if description == "" {
		description = fmt.Sprintf("Transfer the conversation to the %s agent.", target)
	}

	parameters := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{
				"type":        "string",
				"description": "Why control is being transferred",
			},
		},
		"required": []any{},
	}

	return NewFunctionTool(
		TransferPrefix+target,
		description,
		parameters,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			reason, _ := args["reason"].(string)
			toolCtx.RequestHandoff(target, reason)

			return map[string]any{
				"transferred": true,
				"agent":       target,
			}, nil
		},
	)
}
