package control

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rack/dsp/rack"
)

// Command is one control request. Fields not used by an operation are
// ignored.
type Command struct {
	Op    string  `json:"op"`
	Name  string  `json:"name,omitempty"`
	Index int     `json:"index,omitempty"`
	To    int     `json:"to,omitempty"`
	Param string  `json:"param,omitempty"`
	Value float64 `json:"value,omitempty"`
	State []byte  `json:"state,omitempty"`
}

// EffectView is the JSON shape of one slot.
type EffectView struct {
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Position int    `json:"position"`
	State    string `json:"state"`
}

// Reply answers a Command. Effects always carries the slot list after the
// command ran, so clients stay in sync even when the command failed.
type Reply struct {
	OK      bool             `json:"ok"`
	Error   string           `json:"error,omitempty"`
	Index   *int             `json:"index,omitempty"`
	Enabled *bool            `json:"enabled,omitempty"`
	Value   *float64         `json:"value,omitempty"`
	Params  []rack.ParamInfo `json:"params,omitempty"`
	State   []byte           `json:"state,omitempty"`
	Effects []EffectView     `json:"effects"`
}

var errUnknownOp = errors.New("control: unknown op")

// Handle applies cmd to r and builds the reply.
func Handle(r *rack.Rack, cmd Command) Reply {
	var reply Reply
	err := apply(r, cmd, &reply)
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.OK = true
	}
	reply.Effects = Effects(r)
	return reply
}

func apply(r *rack.Rack, cmd Command, reply *Reply) error {
	switch cmd.Op {
	case "list":
		return nil
	case "add":
		idx, err := r.AddEffectByName(cmd.Name)
		if err != nil {
			return err
		}
		reply.Index = &idx
		return nil
	case "remove":
		return r.RemoveEffect(cmd.Index)
	case "move":
		return r.MoveEffect(cmd.Index, cmd.To)
	case "enable":
		idx, err := r.EnableEffect(cmd.Name)
		if err != nil {
			return err
		}
		reply.Index = &idx
		return nil
	case "disable":
		return r.DisableEffect(cmd.Name)
	case "toggle":
		on, err := r.ToggleEffect(cmd.Name)
		if err != nil {
			return err
		}
		reply.Enabled = &on
		return nil
	case "params":
		params, err := r.Params(cmd.Index)
		if err != nil {
			return err
		}
		reply.Params = params
		return nil
	case "get":
		v, err := r.Param(cmd.Index, cmd.Param)
		if err != nil {
			return err
		}
		reply.Value = &v
		return nil
	case "set":
		return r.SetParam(cmd.Index, cmd.Param, cmd.Value)
	case "state":
		blob, err := r.StateBlob()
		if err != nil {
			return err
		}
		reply.State = blob
		return nil
	case "load":
		return r.SetStateBlob(cmd.State)
	case "clear":
		r.Clear()
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownOp, cmd.Op)
	}
}

// Effects snapshots the slot list of r.
func Effects(r *rack.Rack) []EffectView {
	slots := r.Effects()
	views := make([]EffectView, len(slots))
	for i, s := range slots {
		views[i] = EffectView{
			Name:     s.Name,
			Active:   s.Active,
			Position: s.Position,
			State:    s.State.String(),
		}
	}
	return views
}
