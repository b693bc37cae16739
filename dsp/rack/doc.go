// Package rack implements a live, reconfigurable chain of effect units.
//
// A [Rack] owns an ordered [Graph] of units between two fixed endpoints,
// [InputNodeID] and [OutputNodeID]. Structural changes (add, insert,
// remove, move, enable, disable, state load) run on the control side: each
// one edits the graph, rebuilds a [Plan] and publishes it as pending. The
// audio side picks the pending plan up at the top of the next
// [Rack.Process] call and runs strictly from the committed plan, so a block
// never sees a half-built chain.
//
// Two locks guard the rack and are always taken in the same order: the
// structural lock (control side only, unbounded) and then the processing
// lock (held by Process for one block and by mutations only to commit a
// plan before tearing units down). A removed unit is released only after
// the plan that excluded it is committed.
//
// Connection failures reported by the [Router] never break the signal
// path: the failing unit is skipped for that plan and, if even the output
// cannot be reached, the rack falls back to a direct input to output plan.
package rack
