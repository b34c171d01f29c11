package agent

import "fmt"

// BaseAgent bundles the identity surface shared by all agent
// implementations: name, description and advertised capabilities. Embed
// it in a concrete agent and supply a Process method to satisfy the
// core.Agent interface.
//
// Lifecycle and control flow deliberately live elsewhere: the workflow
// executor starts, times out and cancels steps, and the router decides
// which agent runs next. An agent only describes itself and processes
// state.
type BaseAgent struct {
	name         string
	description  string
	capabilities []string
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// Capabilities returns the capability tags advertised by this agent.
func (b *BaseAgent) Capabilities() []string {
	out := make([]string, len(b.capabilities))
	copy(out, b.capabilities)

	return out
}

// SetCapabilities replaces the agent's capability tags.
func (b *BaseAgent) SetCapabilities(capabilities ...string) {
	b.capabilities = capabilities
}
