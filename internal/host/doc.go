// Package host connects a rack to real audio devices. Stream drives a
// rack from a PortAudio duplex callback and Player renders a generated
// signal through a rack into an oto output.
package host
