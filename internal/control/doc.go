// Package control drives a rack from outside the audio thread. It offers
// a JSON command set served over websockets, a MIDI footswitch that maps
// controller numbers to effect slots, and terminal hotkeys.
package control
