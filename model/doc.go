// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language / reasoning models inside JobMesh.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, ToolCall)
//   - Surface token usage so runs can account for model spend
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. Anthropic, OpenAI) implement the Model interface from this
// package so higher layers (agents, workflows) remain decoupled from vendor
// SDKs.
package model
