package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/cwbudde/algo-rack/dsp/rack"
	"gitlab.com/gomidi/rtmididrv"
)

const (
	statusControlChange = 0xB0
	footswitchThreshold = 64
)

// Footswitch turns MIDI control changes into slot toggles. A value of 64 or
// more on a mapped controller enables the effect; anything lower disables
// it.
type Footswitch struct {
	rack *rack.Rack
	log  *log.Logger

	mu      sync.RWMutex
	mapping map[uint8]string
	channel int // -1 listens on every channel
}

// NewFootswitch returns a footswitch with no mapped controllers listening
// on all channels.
func NewFootswitch(r *rack.Rack, l *log.Logger) *Footswitch {
	if l == nil {
		l = log.Default()
	}
	return &Footswitch{rack: r, log: l, mapping: make(map[uint8]string), channel: -1}
}

// Map binds controller cc to the named effect.
func (f *Footswitch) Map(cc uint8, name string) error {
	if cc > 127 {
		return fmt.Errorf("control: controller %d out of range", cc)
	}
	if name == "" {
		return errors.New("control: empty effect name")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mapping[cc] = name
	return nil
}

// SetChannel restricts the footswitch to one MIDI channel in 0..15. A
// negative value listens on every channel.
func (f *Footswitch) SetChannel(ch int) error {
	if ch > 15 {
		return fmt.Errorf("control: midi channel %d out of range", ch)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = max(ch, -1)
	return nil
}

// ParseMapping parses "cc=Name,cc=Name" into the footswitch.
func (f *Footswitch) ParseMapping(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	for _, part := range strings.Split(spec, ",") {
		ccStr, name, ok := strings.Cut(part, "=")
		if !ok {
			return fmt.Errorf("control: bad mapping %q", part)
		}
		cc, err := strconv.ParseUint(strings.TrimSpace(ccStr), 10, 8)
		if err != nil {
			return fmt.Errorf("control: bad controller in %q: %w", part, err)
		}
		if err := f.Map(uint8(cc), strings.TrimSpace(name)); err != nil {
			return err
		}
	}
	return nil
}

// HandleMessage applies one raw MIDI message. It reports whether the
// message matched a mapped controller.
func (f *Footswitch) HandleMessage(data []byte) bool {
	if len(data) < 3 || data[0]&0xF0 != statusControlChange {
		return false
	}

	f.mu.RLock()
	name, ok := f.mapping[data[1]]
	channel := f.channel
	f.mu.RUnlock()

	if !ok || (channel >= 0 && int(data[0]&0x0F) != channel) {
		return false
	}

	if data[2] >= footswitchThreshold {
		if _, err := f.rack.EnableEffect(name); err != nil {
			f.log.Printf("[midi] enable %s: %v", name, err)
		}
	} else {
		if err := f.rack.DisableEffect(name); err != nil && !errors.Is(err, rack.ErrEffectNotFound) {
			f.log.Printf("[midi] disable %s: %v", name, err)
		}
	}
	return true
}

// Listen opens the first MIDI input whose name contains port (or the first
// input when port is empty) and feeds it to the footswitch until ctx is
// cancelled.
func (f *Footswitch) Listen(ctx context.Context, port string) error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("initialize MIDI driver: %w", err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			f.log.Printf("[midi] close driver: %v", err)
		}
	}()

	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("list MIDI inputs: %w", err)
	}

	idx := -1
	for i, in := range ins {
		if port == "" || strings.Contains(strings.ToLower(in.String()), strings.ToLower(port)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("MIDI input %q not found", port)
	}

	in := ins[idx]
	if err := in.Open(); err != nil {
		return fmt.Errorf("open MIDI input: %w", err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			f.log.Printf("[midi] close input: %v", err)
		}
	}()
	f.log.Printf("[midi] listening on %s", in.String())

	if err := in.SetListener(func(data []byte, _ int64) {
		f.HandleMessage(data)
	}); err != nil {
		return fmt.Errorf("set MIDI listener: %w", err)
	}
	defer func() {
		if err := in.StopListening(); err != nil {
			f.log.Printf("[midi] stop listening: %v", err)
		}
	}()

	<-ctx.Done()
	return nil
}
