package rack

// Plan is the immutable routing snapshot the audio side runs from. Nodes
// lists the path from InputNodeID to OutputNodeID; Edges holds every
// per-channel connection along it.
type Plan struct {
	Nodes []NodeID
	Edges []Edge

	stages []stage
}

// stage is one unit call in a plan. faulted is only touched by Process,
// under the processing lock.
type stage struct {
	node    NodeID
	name    string
	unit    Unit
	faulted bool
}

// Passthrough returns a plan connecting input straight to output.
func Passthrough(channels int) *Plan {
	p := &Plan{Nodes: []NodeID{InputNodeID, OutputNodeID}}
	for ch := 0; ch < channels; ch++ {
		p.Edges = append(p.Edges, Edge{From: InputNodeID, To: OutputNodeID, Channel: ch})
	}
	return p
}

// Units returns the names of the units the plan runs, in order.
func (p *Plan) Units() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.stages))
	for i := range p.stages {
		names[i] = p.stages[i].name
	}
	return names
}

// IsPassthrough reports whether the plan runs no units.
func (p *Plan) IsPassthrough() bool {
	return p == nil || len(p.stages) == 0
}

// Equal reports whether p and o route the same nodes over the same edges.
func (p *Plan) Equal(o *Plan) bool {
	if p == nil || o == nil {
		return p == o
	}
	if len(p.Nodes) != len(o.Nodes) || len(p.Edges) != len(o.Edges) {
		return false
	}
	for i := range p.Nodes {
		if p.Nodes[i] != o.Nodes[i] {
			return false
		}
	}
	for i := range p.Edges {
		if p.Edges[i] != o.Edges[i] {
			return false
		}
	}
	return true
}
