package rack

import "fmt"

// Toolbar slot policy: each effect name has at most one live instance.
// Disabling keeps the instance, its position and its state for the next
// enable; enabling a name with no instance creates one at the smallest
// position no active unit occupies.

// NextFreePosition returns the smallest position not held by an active
// unit.
func (r *Rack) NextFreePosition() int {
	r.structMu.Lock()
	defer r.structMu.Unlock()
	return r.nextFreePositionLocked()
}

func (r *Rack) nextFreePositionLocked() int {
	used := make(map[int]bool, r.graph.Len())
	for _, s := range r.graph.slots {
		if s.active {
			used[s.position] = true
		}
	}
	pos := 0
	for used[pos] {
		pos++
	}
	return pos
}

// EnableEffect activates the instance named name, creating it from the
// registry at NextFreePosition if none exists. It returns the unit's index.
func (r *Rack) EnableEffect(name string) (int, error) {
	index := -1
	err := r.mutate(func() ([]Unit, error) {
		if i := r.graph.Find(name); i >= 0 {
			index = i
			return nil, r.setActiveLocked(i, true)
		}

		u, err := r.registry.New(name)
		if err != nil {
			return nil, err
		}
		index, err = r.insertLocked(u, r.nextFreePositionLocked(), true)
		if err != nil {
			release(u)
		}
		return nil, err
	})
	return index, err
}

// DisableEffect deactivates the instance named name without destroying it.
func (r *Rack) DisableEffect(name string) error {
	return r.mutate(func() ([]Unit, error) {
		i := r.graph.Find(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrEffectNotFound, name)
		}
		return nil, r.setActiveLocked(i, false)
	})
}

// ToggleEffect flips the instance named name and reports whether it is now
// enabled.
func (r *Rack) ToggleEffect(name string) (bool, error) {
	enabled := false
	err := r.mutate(func() ([]Unit, error) {
		i := r.graph.Find(name)
		if i >= 0 && r.graph.slots[i].active {
			return nil, r.setActiveLocked(i, false)
		}
		if i >= 0 {
			if err := r.setActiveLocked(i, true); err != nil {
				return nil, err
			}
			enabled = true
			return nil, nil
		}

		u, err := r.registry.New(name)
		if err != nil {
			return nil, err
		}
		if _, err := r.insertLocked(u, r.nextFreePositionLocked(), true); err != nil {
			release(u)
			return nil, err
		}
		enabled = true
		return nil, nil
	})
	return enabled, err
}

// EffectEnabled reports whether an active instance named name exists.
func (r *Rack) EffectEnabled(name string) bool {
	r.structMu.Lock()
	defer r.structMu.Unlock()
	return r.graph.activeNamed(name, -1)
}
