package host

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/gordonklaus/portaudio"
)

var (
	initOnce sync.Once
	termOnce sync.Once
	initErr  error
)

// Initialize wraps portaudio.Initialize with sync.Once so multiple callers are safe.
func Initialize() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	return initErr
}

// Terminate balances Initialize.
func Terminate() {
	if initErr != nil {
		return
	}
	termOnce.Do(func() {
		_ = portaudio.Terminate()
	})
}

const defaultBlockSize = 256

// StreamConfig selects the devices and block size of a duplex stream.
type StreamConfig struct {
	InputDevice  string
	OutputDevice string
	SampleRate   float64
	BlockSize    int
	Channels     int
}

// Stream runs a rack inside a PortAudio duplex callback.
type Stream struct {
	rack     *rack.Rack
	stream   *portaudio.Stream
	spec     core.ProcessSpec
	channels int
	buf      *core.Buffer
	input    *portaudio.DeviceInfo
	output   *portaudio.DeviceInfo
}

// OpenStream prepares r for the device format and starts a duplex stream
// that feeds every captured block through it. Initialize must be called first.
func OpenStream(r *rack.Rack, cfg StreamConfig) (*Stream, error) {
	if r == nil {
		return nil, errors.New("host: nil rack")
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = defaultBlockSize
	}
	if cfg.Channels <= 0 {
		cfg.Channels = r.Channels()
	}

	in, err := findDevice(cfg.InputDevice, true)
	if err != nil {
		return nil, err
	}
	out, err := findDevice(cfg.OutputDevice, false)
	if err != nil {
		return nil, err
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = in.DefaultSampleRate
	}

	spec := core.ProcessSpec{SampleRate: sampleRate, BlockSize: cfg.BlockSize, Channels: r.Channels()}
	if err := r.Prepare(spec); err != nil {
		// Units that failed to prepare are skipped; the stream still runs.
		if errors.Is(err, rack.ErrInvalidSpec) {
			return nil, fmt.Errorf("prepare rack: %w", err)
		}
	}

	s := &Stream{
		rack:     r,
		spec:     spec,
		channels: cfg.Channels,
		buf:      core.NewBuffer(r.Channels(), cfg.BlockSize),
		input:    in,
		output:   out,
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   in,
			Channels: min(cfg.Channels, in.MaxInputChannels),
			Latency:  in.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   out,
			Channels: min(cfg.Channels, out.MaxOutputChannels),
			Latency:  out.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: cfg.BlockSize,
	}, s.process)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		_ = s.stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}

	return s, nil
}

// Close stops and closes the underlying PortAudio stream.
func (s *Stream) Close() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil && !isInvalidStreamState(err) {
		return err
	}
	return s.stream.Close()
}

// Spec returns the format the rack was prepared with.
func (s *Stream) Spec() core.ProcessSpec { return s.spec }

// InputDevice returns the capture device.
func (s *Stream) InputDevice() *portaudio.DeviceInfo { return s.input }

// OutputDevice returns the playback device.
func (s *Stream) OutputDevice() *portaudio.DeviceInfo { return s.output }

func (s *Stream) process(in, out []float32) {
	inCh := min(s.channels, s.input.MaxInputChannels)
	outCh := min(s.channels, s.output.MaxOutputChannels)

	Deinterleave(s.buf, in, inCh)
	if inCh == 1 {
		for ch := 1; ch < s.buf.NumChannels(); ch++ {
			copy(s.buf.Channels[ch], s.buf.Channels[0])
		}
	}
	s.rack.Process(s.buf)
	Interleave(out, s.buf, outCh)
}

// isInvalidStreamState reports whether err stems from stopping an already
// stopped stream.
func isInvalidStreamState(err error) bool {
	return errors.Is(err, portaudio.StreamIsStopped)
}

// Device describes a PortAudio device.
type Device struct {
	Name            string
	MaxInput        int
	MaxOutput       int
	DefaultSampleHz float64
	HostAPI         string
	IsDefaultInput  bool
	IsDefaultOutput bool
}

// ListDevices returns all available devices across host APIs sorted by host and name.
func ListDevices() ([]Device, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("host apis: %w", err)
	}

	defaultInput := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultInput = def.Index
	}
	defaultOutput := -1
	if def, err := portaudio.DefaultOutputDevice(); err == nil && def != nil {
		defaultOutput = def.Index
	}

	devices := make([]Device, 0, len(hosts)*4)
	for _, host := range hosts {
		for _, d := range host.Devices {
			devices = append(devices, Device{
				Name:            d.Name,
				MaxInput:        d.MaxInputChannels,
				MaxOutput:       d.MaxOutputChannels,
				DefaultSampleHz: d.DefaultSampleRate,
				HostAPI:         host.Name,
				IsDefaultInput:  d.Index == defaultInput,
				IsDefaultOutput: d.Index == defaultOutput,
			})
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].HostAPI == devices[j].HostAPI {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].HostAPI < devices[j].HostAPI
	})

	return devices, nil
}

func findDevice(name string, input bool) (*portaudio.DeviceInfo, error) {
	if name == "" {
		var (
			dev *portaudio.DeviceInfo
			err error
		)
		if input {
			dev, err = portaudio.DefaultInputDevice()
		} else {
			dev, err = portaudio.DefaultOutputDevice()
		}
		if err != nil {
			return nil, fmt.Errorf("default device: %w", err)
		}
		if dev == nil || !hasChannels(dev, input) {
			return nil, errors.New("no suitable default audio device found")
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if !hasChannels(device, input) {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}

	return nil, fmt.Errorf("audio device %q not found", name)
}

func hasChannels(d *portaudio.DeviceInfo, input bool) bool {
	if input {
		return d.MaxInputChannels > 0
	}
	return d.MaxOutputChannels > 0
}
