// Package core provides the foundational domain types, interfaces and execution
// contexts used by JobMesh. It defines the core abstractions for:
//
//   - State (the typed, immutable-by-convention run state)
//   - Delta + Apply (the pure reducer that is the only way state advances)
//   - Agents (units of work scheduled by the workflow executor)
//   - Handoffs (data-carried routing requests between agents)
//   - StepOutcome (the closed set of per-step results)
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//   - Reports (terminal run summaries) and the error taxonomy
//
// The package intentionally keeps implementation concerns (persistence, engine
// orchestration, concrete agents) out of scope, exposing small interfaces to
// enable custom backends and extensions. All exported identifiers include
// concise documentation to aid discoverability and external consumption.
package core
