package loop

import (
	"context"
	"strings"
	"sync/atomic"
)

// Bit is one wake condition of the control loop.
type Bit uint32

// Wake bits.
const (
	// BitTaskReady is raised by Submit.
	BitTaskReady Bit = 1 << iota
	// BitAudioReadyToSend is raised when encoded audio waits in the send queue.
	BitAudioReadyToSend
	// BitWakeWordDetected is raised by the wake word detector.
	BitWakeWordDetected
	// BitVoiceActivityChanged is raised when VAD flips.
	BitVoiceActivityChanged
	// BitTransportError is raised when the transport reports a network error.
	BitTransportError

	// AllBits is every wake bit.
	AllBits = BitTaskReady | BitAudioReadyToSend | BitWakeWordDetected |
		BitVoiceActivityChanged | BitTransportError
)

// String lists the names of the raised bits.
func (b Bit) String() string {
	names := make([]string, 0, 5)

	for _, item := range []struct {
		bit  Bit
		name string
	}{
		{BitTaskReady, "task_ready"},
		{BitAudioReadyToSend, "audio_ready_to_send"},
		{BitWakeWordDetected, "wake_word_detected"},
		{BitVoiceActivityChanged, "voice_activity_changed"},
		{BitTransportError, "transport_error"},
	} {
		if b&item.bit != 0 {
			names = append(names, item.name)
		}
	}

	return strings.Join(names, "|")
}

// Signal is a set of wake bits with a blocking wait.
type Signal struct {
	// bits holds raised bits not yet consumed.
	bits atomic.Uint32
	// notify wakes a waiter; buffered so Set never blocks.
	notify chan struct{}
}

// NewSignal returns an empty signal.
func NewSignal() *Signal {
	return &Signal{notify: make(chan struct{}, 1)}
}

// Set raises bits and wakes the waiter.
func (s *Signal) Set(bits Bit) {
	s.bits.Or(uint32(bits))

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Clear lowers bits without waking anyone.
func (s *Signal) Clear(bits Bit) {
	s.bits.And(^uint32(bits))
}

// Peek returns the raised bits without consuming them.
func (s *Signal) Peek() Bit {
	return Bit(s.bits.Load())
}

// Wait blocks until any bit in mask is raised, then consumes and returns
// the raised bits of mask. Bits outside mask stay raised.
func (s *Signal) Wait(ctx context.Context, mask Bit) (Bit, error) {
	for {
		old := s.bits.Load()
		if got := old & uint32(mask); got != 0 {
			if s.bits.CompareAndSwap(old, old&^uint32(mask)) {
				return Bit(got), nil
			}

			continue
		}

		select {
		case <-s.notify:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}
