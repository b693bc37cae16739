package host

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/hajimehoshi/oto"
)

const (
	bitDepthInBytes = 2
	// playerBlocksBuffered is how many blocks the oto context buffers ahead.
	playerBlocksBuffered = 4
)

// PlayerConfig describes the output format of a Player.
type PlayerConfig struct {
	SampleRate int
	BlockSize  int
	Channels   int
}

// Player renders a Source through a rack and plays the result with oto.
// It is the output-only path for machines without a capture device.
type Player struct {
	rack     *rack.Rack
	src      Source
	channels int
	buf      *core.Buffer
	pcm      []byte

	otoCtx *oto.Context
	out    io.WriteCloser
}

// OpenPlayer prepares r for cfg and opens an oto output.
func OpenPlayer(r *rack.Rack, src Source, cfg PlayerConfig) (*Player, error) {
	p, err := newPlayer(r, src, cfg)
	if err != nil {
		return nil, err
	}

	bufferSize := cfg.BlockSize * p.channels * bitDepthInBytes * playerBlocksBuffered
	otoCtx, err := oto.NewContext(cfg.SampleRate, p.channels, bitDepthInBytes, bufferSize)
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	p.otoCtx = otoCtx
	p.out = otoCtx.NewPlayer()

	return p, nil
}

func newPlayer(r *rack.Rack, src Source, cfg PlayerConfig) (*Player, error) {
	if r == nil || src == nil {
		return nil, errors.New("host: player needs a rack and a source")
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = defaultBlockSize
	}
	if cfg.Channels <= 0 {
		cfg.Channels = r.Channels()
	}

	spec := core.ProcessSpec{SampleRate: float64(cfg.SampleRate), BlockSize: cfg.BlockSize, Channels: r.Channels()}
	if err := r.Prepare(spec); err != nil && errors.Is(err, rack.ErrInvalidSpec) {
		return nil, fmt.Errorf("prepare rack: %w", err)
	}

	return &Player{
		rack:     r,
		src:      src,
		channels: cfg.Channels,
		buf:      core.NewBuffer(r.Channels(), cfg.BlockSize),
		pcm:      make([]byte, cfg.BlockSize*cfg.Channels*bitDepthInBytes),
	}, nil
}

// Run renders blocks until ctx is cancelled or the output fails.
func (p *Player) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := p.renderBlock(p.out); err != nil {
			return err
		}
	}
}

// renderBlock fills one block from the source, runs it through the rack and
// writes it to w as 16-bit PCM.
func (p *Player) renderBlock(w io.Writer) error {
	p.src.Fill(p.buf)
	p.rack.Process(p.buf)
	n := PutInt16LE(p.pcm, p.buf, p.channels)
	if _, err := w.Write(p.pcm[:n]); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

// Close releases the oto player and context.
func (p *Player) Close() error {
	var errs []error
	if p.out != nil {
		errs = append(errs, p.out.Close())
	}
	if p.otoCtx != nil {
		errs = append(errs, p.otoCtx.Close())
	}
	return errors.Join(errs...)
}
