package rack

import (
	"fmt"
	"sort"
	"sync"
)

// NodeID identifies a node known to the router.
type NodeID string

const (
	// InputNodeID is the fixed node feeding host input into the rack.
	InputNodeID NodeID = "_input"
	// OutputNodeID is the fixed node delivering rack output to the host.
	OutputNodeID NodeID = "_output"
)

// Edge is one per-channel connection.
type Edge struct {
	From    NodeID
	To      NodeID
	Channel int
}

// Router is the channel-routing layer the graph asks to create nodes and
// connections. The endpoints exist implicitly. A router may refuse any
// request; the graph then skips the unit instead of failing.
type Router interface {
	AddNode(id NodeID) error
	RemoveNode(id NodeID)
	Connect(from, to NodeID, channel int) error
	Disconnect(from, to NodeID, channel int)
}

type defaultRouter struct {
	mu    sync.Mutex
	nodes map[NodeID]struct{}
	edges map[Edge]struct{}
}

// NewRouter returns a router that accepts every request except self-loops,
// negative channels, duplicate nodes and connections to unknown nodes.
func NewRouter() Router {
	return &defaultRouter{
		nodes: make(map[NodeID]struct{}),
		edges: make(map[Edge]struct{}),
	}
}

func (r *defaultRouter) AddNode(id NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" || id == InputNodeID || id == OutputNodeID {
		return fmt.Errorf("router: reserved node id %q", id)
	}
	if _, ok := r.nodes[id]; ok {
		return fmt.Errorf("router: duplicate node %q", id)
	}
	r.nodes[id] = struct{}{}

	return nil
}

func (r *defaultRouter) RemoveNode(id NodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.nodes, id)
	for e := range r.edges {
		if e.From == id || e.To == id {
			delete(r.edges, e)
		}
	}
}

func (r *defaultRouter) Connect(from, to NodeID, channel int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if from == to {
		return fmt.Errorf("router: self-loop on %q", from)
	}
	if channel < 0 {
		return fmt.Errorf("router: negative channel %d", channel)
	}
	if from == OutputNodeID || to == InputNodeID {
		return fmt.Errorf("router: %q -> %q runs against the signal flow", from, to)
	}
	if !r.known(from) {
		return fmt.Errorf("router: unknown node %q", from)
	}
	if !r.known(to) {
		return fmt.Errorf("router: unknown node %q", to)
	}
	r.edges[Edge{From: from, To: to, Channel: channel}] = struct{}{}

	return nil
}

func (r *defaultRouter) Disconnect(from, to NodeID, channel int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.edges, Edge{From: from, To: to, Channel: channel})
}

// Edges returns the router's connections sorted by source, sink and channel.
func (r *defaultRouter) Edges() []Edge {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Edge, 0, len(r.edges))
	for e := range r.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Channel < out[j].Channel
	})

	return out
}

func (r *defaultRouter) known(id NodeID) bool {
	if id == InputNodeID || id == OutputNodeID {
		return true
	}
	_, ok := r.nodes[id]
	return ok
}
