// Package workflow turns registered agents into orchestrated runs.
//
// Three pieces cooperate:
//
//   - Definition describes a workflow: its agent set, the preferred execution
//     Sequence and a completion predicate. The built-in Catalog mirrors the
//     career flows (job search, resume analysis, skill analysis, resume
//     optimization and the comprehensive chain).
//   - Route is the pure routing function. It prefers a valid pending handoff,
//     falls back to the next uncompleted agent of the sequence and otherwise
//     ends the run. It performs no I/O and consults no clock.
//   - Executor drives one run step by step: route, execute the chosen agent
//     against a state snapshot, fold the returned delta in through core.Apply,
//     emit a step event and append the produced messages to the history sink.
//     Agent failures are absorbed into the state; the run only terminates on
//     completion, an exhausted budget, an unknown handoff target or
//     cancellation.
//
// The executor holds the only mutable state of a run and hands agents
// snapshots, keeping every other piece free of shared state.
package workflow
