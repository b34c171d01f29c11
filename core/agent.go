package core

import "context"

// Agent defines the core interface that all agents in JobMesh must implement.
//
// Agents are the primary processing units. The workflow executor hands each
// agent a read-only snapshot of the run state; the agent describes its entire
// effect as a Delta which the executor folds in through Apply. Agents never
// mutate the state they receive and hold no routing authority of their own: a
// desired transfer of control travels as Handoff data inside the returned
// Delta.
//
// Implementations must:
//   - Respect context cancellation and deadlines (the executor applies a
//     per-step timeout)
//   - Treat the passed state as immutable
//   - Report failures through the error return; the executor absorbs them
//     into state and continues the run
type Agent interface {
	Name() string
	Description() string
	Capabilities() []string
	Process(ctx context.Context, state *State) (Delta, error)
}
