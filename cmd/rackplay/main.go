// Command rackplay runs an effects rack on live audio.
//
// Usage:
//
//	rackplay [flags]
//
// The rack processes the default input device into the default output
// device. With -tone it renders a sine through the rack to the speakers
// instead, which needs no capture device. The rack can be edited over
// websockets (-listen), a MIDI footswitch (-midi-map) and the digit keys.
//
// Examples:
//
//	rackplay -effects "Input Gain,EQ,Delay"
//	rackplay -preset live.rack -listen :8080
//	rackplay -tone 440 -effects Chorus,Reverb
//	rackplay -midi-map "64=Delay,65=Reverb"
//	rackplay -list-devices
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/internal/control"
	"github.com/cwbudde/algo-rack/internal/host"
	"github.com/cwbudde/algo-rack/internal/preset"
	"github.com/cwbudde/algo-rack/measure/spectrum"
	"golang.org/x/sync/errgroup"
)

// defaultRate is used for -tone when -rate is not given. Live streams
// relabel the analyzer with the rate the device runs at.
const defaultRate = 48000

type options struct {
	inDevice    string
	outDevice   string
	sampleRate  float64
	blockSize   int
	channels    int
	effects     string
	presetPath  string
	saveOnExit  bool
	listen      string
	midiPort    string
	midiMap     string
	midiChannel int
	tone        float64
	fftSize     int
	listDevices bool
	lockMemory  bool
}

func main() {
	log.SetFlags(log.Ltime | log.Lshortfile)

	var opts options
	flag.StringVar(&opts.inDevice, "in", "", "input device name (substring match)")
	flag.StringVar(&opts.outDevice, "out", "", "output device name (substring match)")
	flag.Float64Var(&opts.sampleRate, "rate", 0, "sample rate in Hz (0 uses the input device default)")
	flag.IntVar(&opts.blockSize, "block", 256, "frames per block")
	flag.IntVar(&opts.channels, "channels", 2, "rack channel count")
	flag.StringVar(&opts.effects, "effects", "", "comma-separated effects to add at start")
	flag.StringVar(&opts.presetPath, "preset", "", "state file to load and watch for changes")
	flag.BoolVar(&opts.saveOnExit, "save", false, "write the rack state back to -preset on exit")
	flag.StringVar(&opts.listen, "listen", "", "address for the websocket control server, e.g. :8080")
	flag.StringVar(&opts.midiPort, "midi", "", "MIDI input port name (substring match)")
	flag.StringVar(&opts.midiMap, "midi-map", "", "footswitch mapping, e.g. \"64=Delay,65=Reverb\"")
	flag.IntVar(&opts.midiChannel, "midi-channel", -1, "MIDI channel 0-15 for the footswitch (-1 for all)")
	flag.Float64Var(&opts.tone, "tone", 0, "play a sine of this frequency through the rack instead of live input")
	flag.IntVar(&opts.fftSize, "fft", 2048, "spectrum analyzer size for telemetry")
	flag.BoolVar(&opts.listDevices, "list-devices", false, "list audio devices and exit")
	flag.BoolVar(&opts.lockMemory, "mlock", false, "lock process memory to avoid paging during playback")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rackplay [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Runs an effects rack on live audio.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEffects: %s\n", strings.Join(rack.DefaultRegistry().Names(), ", "))
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil && !errors.Is(err, control.ErrQuit) {
		log.Fatalf("error: %v", err)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.listDevices {
		return printDevices()
	}

	if opts.lockMemory {
		if err := lockMemory(); err != nil {
			log.Printf("mlock: %v", err)
		}
	}

	rate := opts.sampleRate
	if rate <= 0 {
		rate = defaultRate
	}
	analyzer, err := spectrum.NewAnalyzer(rate, opts.fftSize)
	if err != nil {
		return err
	}

	r := rack.New(
		rack.WithChannels(opts.channels),
		rack.WithMeter(true),
		rack.WithTap(analyzer),
	)
	if err := setupRack(r, opts); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if opts.tone > 0 {
		p, err := host.OpenPlayer(r, &host.Tone{Freq: opts.tone, Amp: 0.25, Rate: rate}, host.PlayerConfig{
			SampleRate: int(rate),
			BlockSize:  opts.blockSize,
			Channels:   opts.channels,
		})
		if err != nil {
			return err
		}
		defer p.Close()
		g.Go(func() error { return p.Run(ctx) })
	} else {
		if err := host.Initialize(); err != nil {
			return fmt.Errorf("initialize portaudio: %w", err)
		}
		defer host.Terminate()

		s, err := host.OpenStream(r, host.StreamConfig{
			InputDevice:  opts.inDevice,
			OutputDevice: opts.outDevice,
			SampleRate:   opts.sampleRate,
			BlockSize:    opts.blockSize,
			Channels:     opts.channels,
		})
		if err != nil {
			return err
		}
		defer s.Close()
		spec := s.Spec()
		if err := analyzer.SetSampleRate(spec.SampleRate); err != nil {
			return err
		}
		log.Printf("streaming %s -> %s at %.0f Hz, %d frames", s.InputDevice().Name, s.OutputDevice().Name, spec.SampleRate, spec.BlockSize)
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
	}

	if err := r.RebuildErr(); err != nil {
		log.Printf("rack: %v", err)
	}

	if opts.presetPath != "" {
		w, err := preset.NewWatcher(r, opts.presetPath)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}

	if opts.listen != "" {
		srv := control.NewServer(r, control.WithAnalyzer(analyzer))
		g.Go(func() error { return srv.Run(ctx, opts.listen) })
	}

	if opts.midiMap != "" {
		fs := control.NewFootswitch(r, nil)
		if err := fs.ParseMapping(opts.midiMap); err != nil {
			return err
		}
		if err := fs.SetChannel(opts.midiChannel); err != nil {
			return err
		}
		g.Go(func() error { return fs.Listen(ctx, opts.midiPort) })
	}

	keys := control.NewHotkeys(r, r.Registry().Names(), nil)
	if control.Interactive() {
		for i, name := range keys.Bindings() {
			log.Printf("key %d toggles %s", i+1, name)
		}
		g.Go(func() error { return keys.Run(ctx) })
	}

	err = g.Wait()

	if opts.saveOnExit && opts.presetPath != "" {
		if serr := preset.Save(r, opts.presetPath); serr != nil {
			log.Printf("save preset: %v", serr)
		} else {
			log.Printf("saved %s", opts.presetPath)
		}
	}
	return err
}

// setupRack loads the preset, if any, and then adds the -effects list.
func setupRack(r *rack.Rack, opts options) error {
	if opts.presetPath != "" {
		if err := preset.Load(r, opts.presetPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	for _, name := range strings.Split(opts.effects, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := r.EnableEffect(name); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
	}
	return nil
}

func printDevices() error {
	if err := host.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	defer host.Terminate()

	devices, err := host.ListDevices()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Host\tDevice\tIn\tOut\tRate\tDefault\n")
	fmt.Fprintf(tw, "----\t------\t--\t---\t----\t-------\n")
	for _, d := range devices {
		def := ""
		switch {
		case d.IsDefaultInput && d.IsDefaultOutput:
			def = "in/out"
		case d.IsDefaultInput:
			def = "in"
		case d.IsDefaultOutput:
			def = "out"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.0f\t%s\n", d.HostAPI, d.Name, d.MaxInput, d.MaxOutput, d.DefaultSampleHz, def)
	}
	return tw.Flush()
}
