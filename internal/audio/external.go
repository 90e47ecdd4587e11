package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/oshokin/device-core/internal/logger"
)

// Codec is the speaker side of the board codec.
type Codec interface {
	// OutputSampleRate returns the current playback rate in Hz.
	OutputSampleRate() int
	// SetOutputSampleRate tries to switch the playback rate.
	SetOutputSampleRate(rate int) bool
	// OutputEnabled reports whether the speaker path is on.
	OutputEnabled() bool
	// EnableOutput turns the speaker path on or off.
	EnableOutput(enable bool)
	// OutputData plays mono 16-bit samples.
	OutputData(samples []int16)
}

// Outcome tells how an external packet reached the codec.
type Outcome int

// Absorb outcomes.
const (
	// OutcomePassthrough means the rates matched.
	OutcomePassthrough Outcome = iota + 1
	// OutcomeSwitched means the codec was switched to the packet rate.
	OutcomeSwitched
	// OutcomeResampled means the packet was converted to the codec rate.
	OutcomeResampled
)

// String returns a log friendly name.
func (o Outcome) String() string {
	switch o {
	case OutcomePassthrough:
		return "passthrough"
	case OutcomeSwitched:
		return "switched"
	case OutcomeResampled:
		return "resampled"
	default:
		return "dropped"
	}
}

var (
	// ErrMisalignedPCM is returned for a payload that is not whole 16-bit samples.
	ErrMisalignedPCM = errors.New("pcm payload is not aligned to 16-bit samples")
	// ErrInvalidSampleRate is returned when either side has no usable rate.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
)

// Resampler converts normalized mono samples between two fixed rates.
type Resampler interface {
	Process(input []float64) ([]float64, error)
}

// ResamplerFactory builds a Resampler for a rate pair.
type ResamplerFactory func(inputRate, outputRate int) (Resampler, error)

// NewLibraryResampler builds a high quality mono resampler.
func NewLibraryResampler(inputRate, outputRate int) (Resampler, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(inputRate),
		OutputRate: float64(outputRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler %d->%d: %w", inputRate, outputRate, err)
	}

	return r, nil
}

// AbsorberOption customizes an Absorber.
type AbsorberOption func(*Absorber)

// WithResamplerFactory replaces the resampler constructor.
func WithResamplerFactory(factory ResamplerFactory) AbsorberOption {
	return func(a *Absorber) {
		if factory != nil {
			a.factory = factory
		}
	}
}

// Absorber plays externally supplied PCM on the codec, adapting the rate.
type Absorber struct {
	// codec receives the samples.
	codec Codec
	// factory builds resamplers on demand.
	factory ResamplerFactory
	// mu guards the cached resampler.
	mu sync.Mutex
	// resampler is reused while the rate pair stays the same.
	resampler Resampler
	// inputRate and outputRate identify the cached resampler.
	inputRate, outputRate int
}

// NewAbsorber returns an absorber playing on codec.
func NewAbsorber(codec Codec, opts ...AbsorberOption) *Absorber {
	a := &Absorber{
		codec:   codec,
		factory: NewLibraryResampler,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Absorb plays one little-endian 16-bit mono packet.
// Equal rates pass through; otherwise the codec is switched to the packet
// rate when it allows it, and the packet is resampled when it does not.
func (a *Absorber) Absorb(ctx context.Context, packet Packet) (Outcome, error) {
	size := len(packet.Payload)
	if size < 2 || size%2 != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrMisalignedPCM, size)
	}

	in := packet.SampleRate
	out := a.codec.OutputSampleRate()

	if in <= 0 || out <= 0 {
		return 0, fmt.Errorf("%w: in=%d out=%d", ErrInvalidSampleRate, in, out)
	}

	if !a.codec.OutputEnabled() {
		a.codec.EnableOutput(true)
	}

	samples := DecodePCM(packet.Payload)

	if in == out {
		a.codec.OutputData(samples)

		return OutcomePassthrough, nil
	}

	if a.codec.SetOutputSampleRate(in) {
		logger.InfoKV(ctx, "switched codec sample rate", "from", out, "to", in)
		a.codec.OutputData(samples)

		return OutcomeSwitched, nil
	}

	converted, err := a.resample(samples, in, out)
	if err != nil {
		return 0, err
	}

	if len(converted) > 0 {
		a.codec.OutputData(converted)
	}

	logger.DebugKV(ctx, "resampled external pcm", "in_rate", in, "out_rate", out,
		"in_samples", len(samples), "out_samples", len(converted))

	return OutcomeResampled, nil
}

func (a *Absorber) resample(samples []int16, in, out int) ([]int16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resampler == nil || a.inputRate != in || a.outputRate != out {
		r, err := a.factory(in, out)
		if err != nil {
			return nil, err
		}

		a.resampler, a.inputRate, a.outputRate = r, in, out
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	output, err := a.resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	result := make([]int16, len(output))
	for i, v := range output {
		result[i] = toSample(v)
	}

	return result, nil
}

// DecodePCM converts little-endian 16-bit bytes into samples.
// A trailing odd byte is ignored.
func DecodePCM(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:])) //nolint:gosec // Two's complement reinterpretation.
	}

	return samples
}

// EncodePCM converts samples into little-endian bytes.
func EncodePCM(samples []int16) []byte {
	data := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s)) //nolint:gosec // Two's complement reinterpretation.
	}

	return data
}

func toSample(v float64) int16 {
	v = math.Round(v * 32768.0)

	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
