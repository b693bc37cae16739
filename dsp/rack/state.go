package rack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Masterminds/semver/v3"
)

const (
	stateTag = "FXRACK"
	// StateFormatVersion is the blob layout version written by StateBlob.
	StateFormatVersion = "1.0.0"
	stateFormatAccept  = "^1.0.0"

	maxStateUnits = 1 << 10
)

var stateFormatConstraint = mustConstraint(stateFormatAccept)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic("rack: state format constraint: " + err.Error())
	}
	return cs
}

// UnitRecord is one unit entry of a decoded state blob.
type UnitRecord struct {
	Name     string
	Active   bool
	Position int
	State    []byte
}

// StateSnapshot is a decoded state blob.
type StateSnapshot struct {
	Version    string
	SampleRate float64
	BlockSize  int
	Units      []UnitRecord
}

// StateBlob captures every unit's name, active flag, position and opaque
// state, plus the current sample rate and block size.
func (r *Rack) StateBlob() ([]byte, error) {
	r.structMu.Lock()
	defer r.structMu.Unlock()

	snap := StateSnapshot{
		Version:    StateFormatVersion,
		SampleRate: r.spec.SampleRate,
		BlockSize:  r.spec.BlockSize,
		Units:      make([]UnitRecord, 0, r.graph.Len()),
	}
	for _, s := range r.graph.slots {
		st, err := s.unit.State()
		if err != nil {
			return nil, fmt.Errorf("rack: state of %s: %w", s.name, err)
		}
		snap.Units = append(snap.Units, UnitRecord{
			Name:     s.name,
			Active:   s.active,
			Position: s.position,
			State:    st,
		})
	}

	return EncodeState(snap)
}

// SetStateBlob replaces the rack's units with the ones described by data.
// The new topology is built and validated off to the side; on any failure
// the rack keeps its previous units and plan untouched and the error wraps
// ErrStateDeserialize. The blob's sample rate and block size are
// informational; units are prepared for the rack's current spec.
func (r *Rack) SetStateBlob(data []byte) error {
	snap, err := DecodeState(data)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(snap.Units))
	for _, rec := range snap.Units {
		if !rec.Active {
			continue
		}
		if seen[rec.Name] {
			return fmt.Errorf("%w: %w: %s", ErrStateDeserialize, ErrDuplicateActive, rec.Name)
		}
		seen[rec.Name] = true
	}

	r.structMu.Lock()
	defer r.structMu.Unlock()

	next, err := r.buildGraphLocked(snap)
	if err != nil {
		return err
	}

	old := r.graph
	old.teardown()
	r.graph = next
	r.publishLocked()
	r.commitLocked()

	for _, s := range old.slots {
		s.removed = true
		release(s.unit)
	}

	return nil
}

// buildGraphLocked builds a graph for snap next to the live one. On failure
// every node it registered is removed again.
func (r *Rack) buildGraphLocked(snap StateSnapshot) (*Graph, error) {
	next := NewGraph(r.router, r.channels)
	spec := r.prepareSpecLocked()

	// Endpoint edges are shared with the live graph; detaching the
	// candidate must not leave the live one unrouted.
	defer r.graph.reattach()

	fail := func(err error) (*Graph, error) {
		next.teardown()
		for _, s := range next.slots {
			release(s.unit)
		}
		return nil, fmt.Errorf("%w: %w", ErrStateDeserialize, err)
	}

	for _, rec := range snap.Units {
		u, err := r.registry.New(rec.Name)
		if err != nil {
			return fail(err)
		}
		if err := u.SetState(rec.State); err != nil {
			return fail(fmt.Errorf("%s: %w", rec.Name, err))
		}
		unitSpec := spec
		if !rec.Active {
			unitSpec = nil
		}
		if _, err := next.insert(u, rec.Position, rec.Active, unitSpec); err != nil {
			release(u)
			return fail(err)
		}
	}

	if _, err := next.Rebuild(); errors.Is(err, errOutputUnreachable) {
		return fail(err)
	}
	next.detach()

	return next, nil
}

// EncodeState writes snap in the little-endian blob layout:
//
//	"FXRACK" | u16 len + version | u32 count | f64 rate | u32 block |
//	count x (u16 len + name | u8 active | i32 position | u32 len + state)
func EncodeState(snap StateSnapshot) ([]byte, error) {
	if snap.Version == "" {
		snap.Version = StateFormatVersion
	}
	if len(snap.Units) > maxStateUnits {
		return nil, fmt.Errorf("rack: %d units exceed the blob limit of %d", len(snap.Units), maxStateUnits)
	}

	var buf bytes.Buffer
	buf.WriteString(stateTag)
	if err := writeString16(&buf, snap.Version); err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	buf.Write(le.AppendUint32(nil, uint32(len(snap.Units))))
	buf.Write(le.AppendUint64(nil, math.Float64bits(snap.SampleRate)))
	buf.Write(le.AppendUint32(nil, uint32(max(snap.BlockSize, 0))))

	for _, u := range snap.Units {
		if err := writeString16(&buf, u.Name); err != nil {
			return nil, err
		}
		var active byte
		if u.Active {
			active = 1
		}
		buf.WriteByte(active)
		if u.Position < math.MinInt32 || u.Position > math.MaxInt32 {
			return nil, fmt.Errorf("rack: position %d of %s out of range", u.Position, u.Name)
		}
		buf.Write(le.AppendUint32(nil, uint32(int32(u.Position))))
		if uint64(len(u.State)) > math.MaxUint32 {
			return nil, fmt.Errorf("rack: state of %s too large", u.Name)
		}
		buf.Write(le.AppendUint32(nil, uint32(len(u.State))))
		buf.Write(u.State)
	}

	return buf.Bytes(), nil
}

// DecodeState parses a blob written by EncodeState. Errors wrap
// ErrStateDeserialize.
func DecodeState(data []byte) (StateSnapshot, error) {
	snap, err := decodeState(data)
	if err != nil {
		return StateSnapshot{}, fmt.Errorf("%w: %w", ErrStateDeserialize, err)
	}
	return snap, nil
}

func decodeState(data []byte) (StateSnapshot, error) {
	var snap StateSnapshot
	rd := bytes.NewReader(data)

	tag := make([]byte, len(stateTag))
	if _, err := io.ReadFull(rd, tag); err != nil || string(tag) != stateTag {
		return snap, errors.New("missing FXRACK tag")
	}

	version, err := readString16(rd)
	if err != nil {
		return snap, fmt.Errorf("version: %w", err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return snap, fmt.Errorf("version %q: %w", version, err)
	}
	if !stateFormatConstraint.Check(v) {
		return snap, fmt.Errorf("unsupported format version %s (want %s)", version, stateFormatAccept)
	}
	snap.Version = version

	var head struct {
		Count     uint32
		RateBits  uint64
		BlockSize uint32
	}
	if err := binary.Read(rd, binary.LittleEndian, &head); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if head.Count > maxStateUnits {
		return snap, fmt.Errorf("unit count %d exceeds %d", head.Count, maxStateUnits)
	}
	snap.SampleRate = math.Float64frombits(head.RateBits)
	snap.BlockSize = int(head.BlockSize)

	snap.Units = make([]UnitRecord, 0, head.Count)
	for i := uint32(0); i < head.Count; i++ {
		rec, err := readUnitRecord(rd)
		if err != nil {
			return snap, fmt.Errorf("unit %d: %w", i, err)
		}
		snap.Units = append(snap.Units, rec)
	}

	if rd.Len() != 0 {
		return snap, fmt.Errorf("%d trailing bytes", rd.Len())
	}

	return snap, nil
}

func readUnitRecord(rd *bytes.Reader) (UnitRecord, error) {
	var rec UnitRecord

	name, err := readString16(rd)
	if err != nil {
		return rec, fmt.Errorf("name: %w", err)
	}
	rec.Name = name

	var fixed struct {
		Active   uint8
		Position int32
		StateLen uint32
	}
	if err := binary.Read(rd, binary.LittleEndian, &fixed); err != nil {
		return rec, fmt.Errorf("%s: %w", name, err)
	}
	if fixed.Active > 1 {
		return rec, fmt.Errorf("%s: bad active flag %d", name, fixed.Active)
	}
	if fixed.Position < 0 {
		return rec, fmt.Errorf("%s: %w: position %d", name, ErrIndexOutOfRange, fixed.Position)
	}
	if int64(fixed.StateLen) > int64(rd.Len()) {
		return rec, fmt.Errorf("%s: state length %d exceeds remaining %d bytes", name, fixed.StateLen, rd.Len())
	}
	rec.Active = fixed.Active == 1
	rec.Position = int(fixed.Position)

	rec.State = make([]byte, fixed.StateLen)
	if _, err := io.ReadFull(rd, rec.State); err != nil {
		return rec, fmt.Errorf("%s: state: %w", name, err)
	}

	return rec, nil
}

func writeString16(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("rack: string of %d bytes too long", len(s))
	}
	buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(s))))
	buf.WriteString(s)
	return nil
}

func readString16(rd *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int(n) > rd.Len() {
		return "", fmt.Errorf("length %d exceeds remaining %d bytes", n, rd.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rd, b); err != nil {
		return "", err
	}
	return string(b), nil
}
