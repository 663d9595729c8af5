package agent

// Registry holds the agents in selection order: platform specialists
// first, the Universal fallback last. Order is the tiebreaker when two
// agents report equal confidence.
type Registry struct {
	agents []Agent
}

// NewRegistry builds the default agent set.
func NewRegistry(deps Deps) *Registry {
	return &Registry{agents: []Agent{
		NewGhostAgent(deps),
		NewWordPressAgent(deps),
		NewSubstackAgent(deps),
		NewMediumAgent(deps),
		NewLibsynAgent(deps),
		NewPosthavenAgent(deps),
		NewZeroHedgeAgent(deps),
		NewUniversalAgent(deps),
	}}
}

// NewRegistryWith builds a registry from an explicit agent list, in
// the given order. Used by tests and custom assemblies.
func NewRegistryWith(agents ...Agent) *Registry {
	return &Registry{agents: agents}
}

// Agents returns the registration order.
func (r *Registry) Agents() []Agent {
	return r.agents
}

// Fallback returns the last registered agent, by convention the
// Universal collector.
func (r *Registry) Fallback() Agent {
	if len(r.agents) == 0 {
		return nil
	}
	return r.agents[len(r.agents)-1]
}

// ByName returns the agent with the given name, or nil.
func (r *Registry) ByName(name string) Agent {
	for _, a := range r.agents {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
