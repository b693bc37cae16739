package control

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/eiannone/keyboard"
	"golang.org/x/term"
)

// ErrQuit is returned by Hotkeys.Run when the user asked to quit.
var ErrQuit = errors.New("control: quit requested")

// Hotkeys toggles effects from the terminal. Digits 1 to 9 toggle the
// effect bound to them; q, Esc and Ctrl+C quit.
type Hotkeys struct {
	rack  *rack.Rack
	names []string
	log   *log.Logger
}

// NewHotkeys binds digit keys to names in order.
func NewHotkeys(r *rack.Rack, names []string, l *log.Logger) *Hotkeys {
	if l == nil {
		l = log.Default()
	}
	if len(names) > 9 {
		names = names[:9]
	}
	return &Hotkeys{rack: r, names: names, log: l}
}

// Bindings returns the effect names in key order, starting at 1.
func (h *Hotkeys) Bindings() []string { return h.names }

// Interactive reports whether stdin is a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Run reads keys until ctx is cancelled or a quit key is pressed. It
// returns nil immediately when stdin is not a terminal.
func (h *Hotkeys) Run(ctx context.Context) error {
	if !Interactive() {
		return nil
	}
	if err := keyboard.Open(); err != nil {
		h.log.Printf("keyboard input disabled: %v", err)
		return nil
	}

	closeOnce := &sync.Once{}
	closeKeyboard := func() {
		closeOnce.Do(func() { _ = keyboard.Close() })
	}
	defer closeKeyboard()

	done := make(chan error, 1)
	go func() {
		done <- h.readKeys(keyboard.GetKey)
	}()

	select {
	case <-ctx.Done():
		closeKeyboard()
		return nil
	case err := <-done:
		return err
	}
}

// readKeys handles keys from next until a quit key, which yields ErrQuit.
// A read error stops hotkeys without stopping the caller.
func (h *Hotkeys) readKeys(next func() (rune, keyboard.Key, error)) error {
	for {
		char, key, err := next()
		if err != nil {
			h.log.Printf("keyboard input stopped: %v", err)
			return nil
		}
		if h.handleKey(char, key) {
			return ErrQuit
		}
	}
}

// handleKey applies one key press and reports whether it was a quit key.
func (h *Hotkeys) handleKey(char rune, key keyboard.Key) bool {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return true
	case char == 'q' || char == 'Q':
		return true
	case char >= '1' && char <= '9':
		i := int(char - '1')
		if i >= len(h.names) {
			return false
		}
		on, err := h.rack.ToggleEffect(h.names[i])
		if err != nil {
			h.log.Printf("toggle %s: %v", h.names[i], err)
			return false
		}
		state := "off"
		if on {
			state = "on"
		}
		h.log.Printf("%s %s", h.names[i], state)
	}
	return false
}
