package workflow

import "github.com/hupe1980/jobmesh/core"

// Decision is the outcome of one routing evaluation: either the next agent
// to execute, or the end of the run.
type Decision struct {
	Next string // Agent to execute next, empty when End is true
	End  bool
}

// Route decides the next hop for a run. It is pure and deterministic: no
// I/O, no clock, no randomness.
//
// Decision order:
//  1. A pending handoff wins, provided its target belongs to the workflow's
//     agent set. An unknown target is a terminal UnknownHandoffError; the
//     run stops rather than guessing.
//  2. Otherwise the first agent of the sequence that has not completed yet.
//     Agents that failed stay uncompleted and are retried until the error
//     budget stops the run.
//  3. With the sequence exhausted, the run ends.
func Route(def Definition, state *core.State, handoff *core.Handoff) (Decision, error) {
	if handoff != nil {
		if !def.HasAgent(handoff.Target) {
			return Decision{}, &core.UnknownHandoffError{Target: handoff.Target}
		}

		return Decision{Next: handoff.Target}, nil
	}

	for _, name := range def.Sequence {
		if !state.HasCompleted(name) {
			return Decision{Next: name}, nil
		}
	}

	return Decision{End: true}, nil
}
