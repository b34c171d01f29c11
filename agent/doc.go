// Package agent contains the agent implementations that run inside
// workflows. The package focuses on three concerns:
//
//  1. Shared identity plumbing (BaseAgent)
//  2. Deterministic function-backed agents (FuncAgent)
//  3. Model-centric conversational / tool-calling agent (ModelAgent)
//
// Design principles:
//   - Minimal hidden global state – agents receive everything through
//     Process(ctx, state)
//   - Purity at the seam – agents return a Delta describing their effects
//     and never mutate the passed state
//   - Observability – clear logging hooks around model calls and tool use
//   - Extensibility – embed BaseAgent; only implement Process plus any
//     custom API
//
// Execution Model:
//   - An agent's Process receives the current immutable run state
//   - ModelAgent drives a model request / tool execution loop until the
//     model produces a final answer or requests a handoff
//   - Control flow between agents (sequences, handoffs, termination) is
//     owned by the workflow executor, not by the agents themselves
//
// The package intentionally keeps persistence, model specifics and tool
// registry abstractions in their respective packages to avoid cyclic deps.
package agent
