package core

import (
	"context"
	"errors"

	"github.com/oshokin/device-core/internal/audio"
	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
)

var (
	// ErrPreempted is returned when external audio arrives during a conversation.
	// The stream is stopped and the device returns to Idle.
	ErrPreempted = errors.New("external audio preempted by a conversation")
	// ErrNotIdle is returned when external audio arrives outside Idle.
	ErrNotIdle = errors.New("external audio plays only in idle")
)

// AddAudioData plays one packet of an external PCM stream such as music.
// It is safe from any goroutine.
func (a *Application) AddAudioData(ctx context.Context, packet audio.Packet) (audio.Outcome, error) {
	switch a.machine.State() {
	case device.StateIdle:
		return a.absorber.Absorb(ctx, packet)
	case device.StateListening, device.StateSpeaking:
		logger.Info(ctx, "stopping external audio, a conversation is active")

		if music := a.deps.Board.Music; music != nil {
			music.StopStreaming()
		}

		a.loop.Submit(func(ctx context.Context) {
			a.deps.Audio.Stop()

			if a.deps.Transport.IsChannelOpen() {
				a.deps.Transport.CloseChannel(ctx)
			}

			a.machine.Set(ctx, device.StateIdle)
		})

		return 0, ErrPreempted
	default:
		return 0, ErrNotIdle
	}
}
