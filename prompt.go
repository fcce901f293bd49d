package resonance

// Prompt is one deployed record in the catalog. The realtime service always
// sends complete records; there is no partial update on the wire, so every
// field is meaningful on every event.
type Prompt struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	AgentID string `json:"agentId" yaml:"agentId"`
	Version int    `json:"version" yaml:"version"`
	Content string `json:"content" yaml:"content"`
}

// SyncPayload is the body of a transport.EventSync event: the complete,
// authoritative set of records that should exist. Reconciling against it
// replaces the mirror's contents.
type SyncPayload struct {
	Prompts []Prompt `json:"prompts"`
}

// RemovalPayload is the body of a transport.EventPromptUndeployed event.
type RemovalPayload struct {
	ID string `json:"id"`
}

// Filter selects prompts by exact match on any subset of fields.
// A nil field imposes no constraint; the zero value matches every prompt.
// Use Ptr to build constraints inline:
//
//	client.Find(ctx, resonance.Filter{AgentID: resonance.Ptr("support")})
type Filter struct {
	ID      *string
	Name    *string
	AgentID *string
	Version *int
}

// Ptr returns a pointer to v. It keeps Filter literals to one line.
func Ptr[T any](v T) *T { return &v }

// matches reports whether p satisfies every constraint set on f.
func (f Filter) matches(p Prompt) bool {
	if f.ID != nil && p.ID != *f.ID {
		return false
	}
	if f.Name != nil && p.Name != *f.Name {
		return false
	}
	if f.AgentID != nil && p.AgentID != *f.AgentID {
		return false
	}
	if f.Version != nil && p.Version != *f.Version {
		return false
	}
	return true
}
