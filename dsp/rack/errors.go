package rack

import (
	"errors"

	"github.com/cwbudde/algo-rack/dsp/core"
)

var (
	// ErrGraphMutationFailed is returned when the router rejects a node or
	// connection.
	ErrGraphMutationFailed = errors.New("rack: graph mutation failed")
	// ErrIndexOutOfRange is returned for slot indices outside [0, Len).
	ErrIndexOutOfRange = errors.New("rack: index out of range")
	// ErrStateDeserialize is returned when a state blob cannot be restored.
	ErrStateDeserialize = errors.New("rack: state deserialize failed")
	// ErrUnprepared is returned by operations that need a prepared rack.
	ErrUnprepared = errors.New("rack: not prepared")
	// ErrUnknownEffect is returned when no factory is registered for a name.
	ErrUnknownEffect = errors.New("rack: unknown effect")
	// ErrDuplicateActive is returned when an active unit with the same
	// name is already in the rack.
	ErrDuplicateActive = errors.New("rack: effect already active")
	// ErrEffectNotFound is returned when no slot carries the given name.
	ErrEffectNotFound = errors.New("rack: effect not found")
	// ErrUnknownParam is returned for parameter IDs a unit does not expose.
	ErrUnknownParam = errors.New("rack: unknown parameter")
	// ErrInvalidSpec is returned by Prepare for unsupported host settings.
	ErrInvalidSpec = core.ErrInvalidSpec
)
