package loop

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/oshokin/device-core/internal/logger"
)

var (
	// ErrNotRunning is returned by Call when the loop stops before running the task.
	ErrNotRunning = errors.New("control loop is not running")
	// ErrAlreadyRunning is returned by a second Run call.
	ErrAlreadyRunning = errors.New("control loop is already running")
)

// Handlers are the per-bit callbacks of the loop.
// A nil handler leaves its bit ignored.
type Handlers struct {
	// OnTransportError runs first.
	OnTransportError func(ctx context.Context)
	// OnAudioReadyToSend drains outbound audio.
	OnAudioReadyToSend func(ctx context.Context)
	// OnWakeWordDetected handles a wake word.
	OnWakeWordDetected func(ctx context.Context)
	// OnVoiceActivityChanged refreshes VAD feedback.
	OnVoiceActivityChanged func(ctx context.Context)
}

// Loop is the control loop. Run must be called from exactly one goroutine.
type Loop struct {
	// queue holds submitted tasks.
	queue Queue
	// signal holds raised wake bits.
	signal *Signal
	// handlers are invoked for raised bits.
	handlers Handlers
	// running is set while Run is active.
	running atomic.Bool
	// done is closed when Run returns.
	done chan struct{}
}

// New creates a loop with the given bit handlers.
func New(handlers Handlers) *Loop {
	return &Loop{
		signal:   NewSignal(),
		handlers: handlers,
		done:     make(chan struct{}),
	}
}

// Submit enqueues task and raises BitTaskReady. Safe from any goroutine.
func (l *Loop) Submit(task Task) {
	l.queue.Push(task)
	l.signal.Set(BitTaskReady)
}

// Raise sets wake bits. Safe from any goroutine.
func (l *Loop) Raise(bits Bit) {
	l.signal.Set(bits)
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// Done is closed after Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Call submits fn and waits until the loop has run it.
func (l *Loop) Call(ctx context.Context, fn Task) error {
	finished := make(chan struct{})

	l.Submit(func(ctx context.Context) {
		defer close(finished)

		fn(ctx)
	})

	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrNotRunning
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run services wake bits until ctx is cancelled.
// Order per wake: transport error, outbound audio, wake word, voice activity, tasks.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	defer close(l.done)

	ctx = logger.WithName(ctx, "loop")

	for {
		bits, err := l.signal.Wait(ctx, AllBits)
		if err != nil {
			return nil //nolint:nilerr // Cancellation is the normal way to stop the loop.
		}

		l.service(ctx, bits)
	}
}

// RunOnce services the currently raised bits without blocking.
// It lets tests step the loop deterministically.
func (l *Loop) RunOnce(ctx context.Context) Bit {
	bits := l.signal.Peek() & AllBits
	if bits == 0 {
		return 0
	}

	l.signal.Clear(bits)
	l.service(ctx, bits)

	return bits
}

func (l *Loop) service(ctx context.Context, bits Bit) {
	if bits&BitTransportError != 0 && l.handlers.OnTransportError != nil {
		runSafely(ctx, "transport_error", l.handlers.OnTransportError)
	}

	if bits&BitAudioReadyToSend != 0 && l.handlers.OnAudioReadyToSend != nil {
		runSafely(ctx, "audio_ready_to_send", l.handlers.OnAudioReadyToSend)
	}

	if bits&BitWakeWordDetected != 0 && l.handlers.OnWakeWordDetected != nil {
		runSafely(ctx, "wake_word_detected", l.handlers.OnWakeWordDetected)
	}

	if bits&BitVoiceActivityChanged != 0 && l.handlers.OnVoiceActivityChanged != nil {
		runSafely(ctx, "voice_activity_changed", l.handlers.OnVoiceActivityChanged)
	}

	if bits&BitTaskReady != 0 {
		l.queue.Drain(ctx)
	}
}
