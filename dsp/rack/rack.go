package rack

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/measure/level"
)

// Tap receives the rack output after every processed block, on the audio
// side. Implementations must not block or allocate.
type Tap interface {
	Push(buf *core.Buffer)
}

// Levels holds normalized per-channel meter readings in [0, 1].
type Levels struct {
	Input  []float64 `json:"input"`
	Output []float64 `json:"output"`
}

type config struct {
	registry *Registry
	router   Router
	channels int
	metering bool
	tap      Tap
}

// Option configures a Rack.
type Option func(*config)

// WithRegistry sets the registry used by name-based construction and state
// loading. Defaults to DefaultRegistry.
func WithRegistry(reg *Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithRouter sets the channel-routing layer. Defaults to NewRouter.
func WithRouter(router Router) Option {
	return func(c *config) { c.router = router }
}

// WithChannels sets the routed channel count. Defaults to 2.
func WithChannels(n int) Option {
	return func(c *config) { c.channels = n }
}

// WithMeter enables input and output level metering.
func WithMeter(enabled bool) Option {
	return func(c *config) { c.metering = enabled }
}

// WithTap sets an output tap, for example a spectrum analyzer.
func WithTap(tap Tap) Option {
	return func(c *config) { c.tap = tap }
}

// Rack is the live effect chain. Mutations and queries are control-side
// and may block; Process is audio-side.
type Rack struct {
	structMu sync.Mutex // graph edits, unit config; control side only
	procMu   sync.Mutex // one processed block, plan commit, unit teardown

	registry *Registry
	router   Router
	channels int
	graph    *Graph
	spec     core.ProcessSpec

	prepared atomic.Bool
	current  atomic.Pointer[Plan]
	pending  atomic.Pointer[Plan]
	dirty    atomic.Bool

	rebuildErr error

	inMeter  *level.Meter
	outMeter *level.Meter
	tap      Tap
}

// New creates an empty, unprepared rack.
func New(opts ...Option) *Rack {
	cfg := config{channels: 2}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.channels < 1 {
		cfg.channels = 1
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	if cfg.router == nil {
		cfg.router = NewRouter()
	}

	r := &Rack{
		registry: cfg.registry,
		router:   cfg.router,
		channels: cfg.channels,
		graph:    NewGraph(cfg.router, cfg.channels),
		tap:      cfg.tap,
	}
	if cfg.metering {
		r.inMeter = level.NewMeter(cfg.channels)
		r.outMeter = level.NewMeter(cfg.channels)
	}
	r.current.Store(Passthrough(cfg.channels))

	return r
}

// Registry returns the registry the rack builds units from.
func (r *Rack) Registry() *Registry { return r.registry }

// Channels returns the routed channel count.
func (r *Rack) Channels() int { return r.channels }

// Prepare configures every unit for spec and rebuilds the plan. A zero
// Channels in spec means the rack's channel count. Prepare may be called
// again at any time; every unit is prepared anew. Units that fail are left
// out of the plan and their errors are returned joined, with the rack still
// prepared.
func (r *Rack) Prepare(spec core.ProcessSpec) error {
	if spec.Channels == 0 {
		spec.Channels = r.channels
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("rack: prepare: %w", err)
	}
	if spec.Channels != r.channels {
		return fmt.Errorf("rack: prepare: %w: %d channels, rack routes %d", ErrInvalidSpec, spec.Channels, r.channels)
	}

	unlock := r.lockAll()
	defer unlock()

	err := r.graph.PrepareAll(spec)
	r.spec = spec

	plan, rerr := r.graph.Rebuild()
	r.rebuildErr = rerr
	r.pending.Store(nil)
	r.dirty.Store(false)
	r.current.Store(plan)

	if r.inMeter != nil {
		r.inMeter.Reset()
		r.outMeter.Reset()
	}
	r.prepared.Store(true)

	return err
}

// Release frees every unit's resources. Process outputs silence until the
// next Prepare.
func (r *Rack) Release() {
	unlock := r.lockAll()
	defer unlock()

	r.prepared.Store(false)
	for _, s := range r.graph.slots {
		release(s.unit)
	}
	r.graph.Unprepare()
}

// Prepared reports whether Process runs the chain.
func (r *Rack) Prepared() bool { return r.prepared.Load() }

// Spec returns the spec of the last successful Prepare.
func (r *Rack) Spec() core.ProcessSpec {
	r.structMu.Lock()
	defer r.structMu.Unlock()
	return r.spec
}

// Process runs one block through the committed plan in place. It never
// panics outward: a unit that panics is skipped for the rest of the plan's
// life. Before Prepare, or after Release, buf is zero-filled.
func (r *Rack) Process(buf *core.Buffer) {
	if buf == nil {
		return
	}
	if !r.prepared.Load() {
		buf.Clear()
		return
	}

	r.procMu.Lock()
	defer r.procMu.Unlock()

	if !r.prepared.Load() {
		buf.Clear()
		return
	}

	if r.dirty.CompareAndSwap(true, false) {
		if p := r.pending.Swap(nil); p != nil {
			r.current.Store(p)
		}
	}

	if r.inMeter != nil {
		r.inMeter.Process(buf)
	}

	plan := r.current.Load()
	for i := range plan.stages {
		runStage(&plan.stages[i], buf)
	}

	if r.outMeter != nil {
		r.outMeter.Process(buf)
	}
	if r.tap != nil {
		r.tap.Push(buf)
	}
}

func runStage(st *stage, buf *core.Buffer) {
	if st.faulted {
		return
	}
	defer func() {
		if recover() != nil {
			st.faulted = true
		}
	}()
	st.unit.Process(buf)
}

// Levels returns the latest normalized meter readings. Both slices are nil
// when metering is off.
func (r *Rack) Levels() Levels {
	if r.inMeter == nil {
		return Levels{}
	}
	return Levels{
		Input:  r.inMeter.Levels(nil),
		Output: r.outMeter.Levels(nil),
	}
}

// lockAll takes the structural lock and then the processing lock. It is the
// only place both are taken together.
func (r *Rack) lockAll() (unlock func()) {
	r.structMu.Lock()
	r.procMu.Lock()
	return func() {
		r.procMu.Unlock()
		r.structMu.Unlock()
	}
}

// mutate runs edit under the structural lock, rebuilds and publishes the
// pending plan. Units returned by edit are released only after the new plan
// is committed, so no block can still be running them.
func (r *Rack) mutate(edit func() (removed []Unit, err error)) error {
	r.structMu.Lock()
	defer r.structMu.Unlock()

	return r.mutateLocked(edit)
}

func (r *Rack) mutateLocked(edit func() ([]Unit, error)) error {
	removed, err := edit()
	if err != nil && len(removed) == 0 {
		return err
	}

	r.publishLocked()

	if len(removed) > 0 {
		r.commitLocked()
		for _, u := range removed {
			release(u)
		}
	}

	return err
}

func (r *Rack) publishLocked() {
	plan, err := r.graph.Rebuild()
	r.rebuildErr = err
	r.pending.Store(plan)
	r.dirty.Store(true)
}

// commitLocked makes the pending plan current under the processing lock.
// The caller holds structMu.
func (r *Rack) commitLocked() {
	r.procMu.Lock()
	defer r.procMu.Unlock()

	if p := r.pending.Swap(nil); p != nil {
		r.current.Store(p)
	}
	r.dirty.Store(false)
}

func (r *Rack) prepareSpecLocked() *core.ProcessSpec {
	if !r.prepared.Load() {
		return nil
	}
	spec := r.spec
	return &spec
}

// AddEffect appends u as an active unit and returns its index. On a
// prepared rack u is prepared before it joins the graph.
func (r *Rack) AddEffect(u Unit) (int, error) {
	if u == nil {
		return -1, errors.New("rack: nil unit")
	}
	index := -1
	err := r.mutate(func() ([]Unit, error) {
		if r.graph.activeNamed(u.Name(), -1) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateActive, u.Name())
		}
		id, err := r.graph.insert(u, r.graph.Len(), true, r.prepareSpecLocked())
		if err != nil {
			return nil, err
		}
		index = r.graph.indexOf(id)
		return nil, nil
	})
	return index, err
}

// AddEffectByName builds a unit from the registry and appends it.
func (r *Rack) AddEffectByName(name string) (int, error) {
	u, err := r.registry.New(name)
	if err != nil {
		return -1, err
	}
	return r.AddEffect(u)
}

// InsertEffect adds u at the desired position, active or not, and returns
// its index. Slots stay sorted by position; ties keep insertion order.
func (r *Rack) InsertEffect(u Unit, position int, active bool) (int, error) {
	if u == nil {
		return -1, errors.New("rack: nil unit")
	}
	index := -1
	err := r.mutate(func() ([]Unit, error) {
		var err error
		index, err = r.insertLocked(u, position, active)
		return nil, err
	})
	return index, err
}

func (r *Rack) insertLocked(u Unit, position int, active bool) (int, error) {
	if position < 0 {
		return -1, fmt.Errorf("%w: position %d", ErrIndexOutOfRange, position)
	}
	if active && r.graph.activeNamed(u.Name(), -1) {
		return -1, fmt.Errorf("%w: %s", ErrDuplicateActive, u.Name())
	}
	var spec *core.ProcessSpec
	if active {
		spec = r.prepareSpecLocked()
	}
	id, err := r.graph.insert(u, position, active, spec)
	if err != nil {
		return -1, err
	}
	return r.graph.indexOf(id), nil
}

// RemoveEffect removes the unit at index and releases it once the audio
// side no longer runs it.
func (r *Rack) RemoveEffect(index int) error {
	return r.mutate(func() ([]Unit, error) {
		u, err := r.graph.Remove(index)
		if err != nil {
			return nil, err
		}
		return []Unit{u}, nil
	})
}

// MoveEffect relocates the unit at from to index to.
func (r *Rack) MoveEffect(from, to int) error {
	return r.mutate(func() ([]Unit, error) {
		return nil, r.graph.Move(from, to)
	})
}

// SetEffectActive enables or disables the unit at index. A unit enabled on
// a prepared rack is prepared first if needed; if that fails it stays
// disabled.
func (r *Rack) SetEffectActive(index int, active bool) error {
	return r.mutate(func() ([]Unit, error) {
		return nil, r.setActiveLocked(index, active)
	})
}

func (r *Rack) setActiveLocked(index int, active bool) error {
	info, err := r.graph.Slot(index)
	if err != nil {
		return err
	}
	if active && !info.Active && r.graph.activeNamed(info.Name, index) {
		return fmt.Errorf("%w: %s", ErrDuplicateActive, info.Name)
	}

	spec := r.prepareSpecLocked()
	if active && spec != nil && r.graph.NeedsPrepare(index, *spec) {
		// The committed plan may still run this unit from before it was
		// disabled; retire that plan before touching the unit.
		r.commitLocked()
	}

	return r.graph.SetActive(index, active, spec)
}

// Clear removes every unit.
func (r *Rack) Clear() {
	_ = r.mutate(func() ([]Unit, error) {
		removed := make([]Unit, 0, r.graph.Len())
		for r.graph.Len() > 0 {
			u, err := r.graph.Remove(r.graph.Len() - 1)
			if err != nil {
				break
			}
			removed = append(removed, u)
		}
		return removed, nil
	})
}

// Rebuild forces a rebuild of the plan and returns the rebuild error, if
// any.
func (r *Rack) Rebuild() error {
	r.structMu.Lock()
	defer r.structMu.Unlock()

	r.publishLocked()
	return r.rebuildErr
}

// RebuildErr returns the error of the most recent rebuild: skipped units
// wrapped in ErrGraphMutationFailed, or nil.
func (r *Rack) RebuildErr() error {
	r.structMu.Lock()
	defer r.structMu.Unlock()
	return r.rebuildErr
}

// Plan returns the newest plan: the pending one if the audio side has not
// picked it up yet, else the committed one.
func (r *Rack) Plan() *Plan {
	if p := r.pending.Load(); p != nil {
		return p
	}
	return r.current.Load()
}

// Len returns the number of units.
func (r *Rack) Len() int {
	r.structMu.Lock()
	defer r.structMu.Unlock()
	return r.graph.Len()
}

// Effects returns a snapshot of every slot in order.
func (r *Rack) Effects() []SlotInfo {
	r.structMu.Lock()
	defer r.structMu.Unlock()

	out := make([]SlotInfo, r.graph.Len())
	for i := range out {
		out[i], _ = r.graph.Slot(i)
	}
	return out
}

// FindEffect returns the index of the unit named name, preferring an
// active one, or -1.
func (r *Rack) FindEffect(name string) int {
	r.structMu.Lock()
	defer r.structMu.Unlock()
	return r.graph.Find(name)
}

// IsEffectActive reports whether the unit at index is active.
func (r *Rack) IsEffectActive(index int) bool {
	r.structMu.Lock()
	defer r.structMu.Unlock()

	info, err := r.graph.Slot(index)
	return err == nil && info.Active
}

// EffectName returns the name of the unit at index.
func (r *Rack) EffectName(index int) (string, error) {
	r.structMu.Lock()
	defer r.structMu.Unlock()

	info, err := r.graph.Slot(index)
	return info.Name, err
}

// Unit returns the unit at index. Callers must not mutate it directly while
// the rack is running; use SetParam.
func (r *Rack) Unit(index int) (Unit, error) {
	r.structMu.Lock()
	defer r.structMu.Unlock()
	return r.graph.Unit(index)
}

// Params lists the parameters of the unit at index.
func (r *Rack) Params(index int) ([]ParamInfo, error) {
	r.structMu.Lock()
	defer r.structMu.Unlock()

	p, err := r.parameterized(index)
	if err != nil {
		return nil, err
	}
	return p.Params(), nil
}

// Param returns one parameter value of the unit at index.
func (r *Rack) Param(index int, id string) (float64, error) {
	r.structMu.Lock()
	defer r.structMu.Unlock()

	p, err := r.parameterized(index)
	if err != nil {
		return 0, err
	}
	v, ok := p.Param(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownParam, id)
	}
	return v, nil
}

// SetParam sets one parameter of the unit at index between two blocks.
func (r *Rack) SetParam(index int, id string, value float64) error {
	unlock := r.lockAll()
	defer unlock()

	p, err := r.parameterized(index)
	if err != nil {
		return err
	}
	return p.SetParam(id, value)
}

func (r *Rack) parameterized(index int) (Parameterized, error) {
	u, err := r.graph.Unit(index)
	if err != nil {
		return nil, err
	}
	p, ok := u.(Parameterized)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no parameters", ErrUnknownParam, u.Name())
	}
	return p, nil
}
