package rack

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/core"
)

var nodeSeq atomic.Uint64

func newNodeID() NodeID {
	return NodeID(fmt.Sprintf("unit-%d", nodeSeq.Add(1)))
}

// errOutputUnreachable marks a rebuild that could not reach the output
// endpoint and fell back to passthrough.
var errOutputUnreachable = errors.New("output endpoint unreachable")

type slot struct {
	id       NodeID
	name     string
	unit     Unit
	active   bool
	position int

	prepared    bool
	preparedFor core.ProcessSpec
	prepareErr  error
	wasActive   bool
	removed     bool
}

func (s *slot) state() UnitState {
	switch {
	case s.removed:
		return StateMarkedForRemoval
	case !s.prepared:
		return StateUninitialized
	case s.active:
		return StateActive
	case s.wasActive:
		return StateInactive
	default:
		return StatePrepared
	}
}

func (s *slot) prepare(spec core.ProcessSpec) error {
	if s.prepared && s.preparedFor == spec {
		return nil
	}

	if err := s.unit.Prepare(spec); err != nil {
		s.prepared = false
		s.prepareErr = err
		return fmt.Errorf("rack: prepare %s: %w", s.name, err)
	}

	s.prepared = true
	s.preparedFor = spec
	s.prepareErr = nil

	return nil
}

// Graph is the ordered slot sequence between the fixed input and output
// endpoints. It is not safe for concurrent use; Rack serializes access.
type Graph struct {
	router   Router
	channels int
	slots    []*slot
	edges    []Edge
}

// NewGraph creates an empty graph routing the given channel count through
// router.
func NewGraph(router Router, channels int) *Graph {
	if router == nil {
		router = NewRouter()
	}
	if channels < 1 {
		channels = 1
	}

	return &Graph{router: router, channels: channels}
}

// Len returns the number of slots.
func (g *Graph) Len() int { return len(g.slots) }

// Add appends u at position Len and marks it active.
func (g *Graph) Add(u Unit) (NodeID, error) {
	return g.insert(u, len(g.slots), true, nil)
}

// Insert adds u at the desired position. Slots are kept stably sorted by
// position, so u goes after any slot already holding that position.
func (g *Graph) Insert(u Unit, position int, active bool) (NodeID, error) {
	if position < 0 {
		return "", fmt.Errorf("%w: position %d", ErrIndexOutOfRange, position)
	}
	return g.insert(u, position, active, nil)
}

// insert adds u as a new slot. With a non-nil spec the unit is prepared
// before the router sees its node.
func (g *Graph) insert(u Unit, position int, active bool, spec *core.ProcessSpec) (NodeID, error) {
	if u == nil {
		return "", errors.New("rack: nil unit")
	}

	s := &slot{
		name:      u.Name(),
		unit:      u,
		active:    active,
		wasActive: active,
		position:  position,
	}
	if spec != nil {
		if err := s.prepare(*spec); err != nil {
			return "", err
		}
	}

	s.id = newNodeID()
	if err := g.router.AddNode(s.id); err != nil {
		return "", fmt.Errorf("%w: add node %s for %s: %v", ErrGraphMutationFailed, s.id, s.name, err)
	}

	g.slots = append(g.slots, s)
	sort.SliceStable(g.slots, func(i, j int) bool {
		return g.slots[i].position < g.slots[j].position
	})

	return s.id, nil
}

// Remove marks slot index for removal, detaches it from the router and
// erases it. Remaining positions are renumbered 0..n-1. The unit is
// returned so the caller can release it once no plan references it.
func (g *Graph) Remove(index int) (Unit, error) {
	if err := g.checkIndex(index); err != nil {
		return nil, err
	}

	s := g.slots[index]
	s.removed = true
	s.active = false
	g.router.RemoveNode(s.id)
	g.forgetEdges(s.id)

	g.slots = slices.Delete(g.slots, index, index+1)
	g.renumber()

	return s.unit, nil
}

// Move relocates slot from to index to and renumbers positions.
func (g *Graph) Move(from, to int) error {
	if err := g.checkIndex(from); err != nil {
		return err
	}
	if err := g.checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	s := g.slots[from]
	g.slots = slices.Delete(g.slots, from, from+1)
	g.slots = slices.Insert(g.slots, to, s)
	g.renumber()

	return nil
}

// SetActive toggles whether slot index takes part in the signal path. When
// enabling with a non-nil spec, a unit not yet prepared for spec is prepared
// first; on failure it stays inactive.
func (g *Graph) SetActive(index int, active bool, spec *core.ProcessSpec) error {
	if err := g.checkIndex(index); err != nil {
		return err
	}

	s := g.slots[index]
	if active && spec != nil {
		if err := s.prepare(*spec); err != nil {
			return err
		}
	}

	s.active = active
	if active {
		s.wasActive = true
	}

	return nil
}

// NeedsPrepare reports whether enabling slot index under spec would
// prepare its unit.
func (g *Graph) NeedsPrepare(index int, spec core.ProcessSpec) bool {
	if index < 0 || index >= len(g.slots) {
		return false
	}
	s := g.slots[index]
	return !s.prepared || s.preparedFor != spec
}

// PrepareAll prepares every slot for spec. A failing unit is remembered and
// left out of subsequent plans until it prepares cleanly.
func (g *Graph) PrepareAll(spec core.ProcessSpec) error {
	var errs []error
	for _, s := range g.slots {
		s.prepared = false
		if err := s.prepare(spec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unprepare forgets every slot's preparation.
func (g *Graph) Unprepare() {
	for _, s := range g.slots {
		s.prepared = false
	}
}

// Rebuild derives a new plan from the active slots in sequence order. A
// slot whose connections the router rejects is skipped and its partial
// connections are dropped; the walk continues from the last connected node.
// Rebuild always returns a usable plan. If the output endpoint cannot be
// reached the plan is Passthrough and the error wraps
// ErrGraphMutationFailed.
func (g *Graph) Rebuild() (*Plan, error) {
	g.detach()

	var errs []error
	plan := &Plan{Nodes: []NodeID{InputNodeID}}
	prev := InputNodeID

	for _, s := range g.slots {
		if !s.active || s.removed || s.prepareErr != nil {
			continue
		}

		edges, err := g.connect(prev, s.id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: skipped %s (%s): %v", ErrGraphMutationFailed, s.name, s.id, err))
			continue
		}

		plan.Nodes = append(plan.Nodes, s.id)
		plan.Edges = append(plan.Edges, edges...)
		plan.stages = append(plan.stages, stage{node: s.id, name: s.name, unit: s.unit})
		prev = s.id
	}

	edges, err := g.connect(prev, OutputNodeID)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %w: %v", ErrGraphMutationFailed, errOutputUnreachable, err))
		g.detach()
		// Best effort: the passthrough plan does not depend on it.
		if edges, perr := g.connect(InputNodeID, OutputNodeID); perr == nil {
			g.edges = append(g.edges[:0], edges...)
		}
		return Passthrough(g.channels), errors.Join(errs...)
	}

	plan.Nodes = append(plan.Nodes, OutputNodeID)
	plan.Edges = append(plan.Edges, edges...)
	g.edges = append(g.edges[:0], plan.Edges...)

	return plan, errors.Join(errs...)
}

// Slot returns a snapshot of slot index.
func (g *Graph) Slot(index int) (SlotInfo, error) {
	if err := g.checkIndex(index); err != nil {
		return SlotInfo{}, err
	}
	s := g.slots[index]
	return SlotInfo{
		Name:     s.name,
		Active:   s.active,
		Position: s.position,
		Node:     s.id,
		State:    s.state(),
	}, nil
}

// indexOf returns the index of the slot with node id, or -1.
func (g *Graph) indexOf(id NodeID) int {
	for i, s := range g.slots {
		if s.id == id {
			return i
		}
	}
	return -1
}

// Find returns the index of the slot named name, preferring an active one,
// or -1.
func (g *Graph) Find(name string) int {
	found := -1
	for i, s := range g.slots {
		if s.name != name {
			continue
		}
		if s.active {
			return i
		}
		if found < 0 {
			found = i
		}
	}
	return found
}

// Unit returns the unit in slot index.
func (g *Graph) Unit(index int) (Unit, error) {
	if err := g.checkIndex(index); err != nil {
		return nil, err
	}
	return g.slots[index].unit, nil
}

func (g *Graph) activeNamed(name string, except int) bool {
	for i, s := range g.slots {
		if i != except && s.active && s.name == name {
			return true
		}
	}
	return false
}

// connect wires every channel from -> to. On failure the channels already
// connected are disconnected again.
func (g *Graph) connect(from, to NodeID) ([]Edge, error) {
	edges := make([]Edge, 0, g.channels)
	for ch := 0; ch < g.channels; ch++ {
		if err := g.router.Connect(from, to, ch); err != nil {
			for _, e := range edges {
				g.router.Disconnect(e.From, e.To, e.Channel)
			}
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		edges = append(edges, Edge{From: from, To: to, Channel: ch})
	}
	return edges, nil
}

// detach disconnects every edge the previous rebuild made.
func (g *Graph) detach() {
	for _, e := range g.edges {
		g.router.Disconnect(e.From, e.To, e.Channel)
	}
	g.edges = g.edges[:0]
}

// reattach restores the router connections recorded by the last rebuild.
func (g *Graph) reattach() {
	for _, e := range g.edges {
		_ = g.router.Connect(e.From, e.To, e.Channel)
	}
}

// teardown detaches the graph and removes its nodes from the router. The
// slots are kept; the graph is unusable afterwards.
func (g *Graph) teardown() {
	g.detach()
	for _, s := range g.slots {
		g.router.RemoveNode(s.id)
	}
}

func (g *Graph) forgetEdges(id NodeID) {
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
}

func (g *Graph) renumber() {
	for i, s := range g.slots {
		s.position = i
	}
}

func (g *Graph) checkIndex(index int) error {
	if index < 0 || index >= len(g.slots) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(g.slots))
	}
	return nil
}
