package audio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHeadlessCaptureGate only queues capture while voice processing runs.
func TestHeadlessCaptureGate(t *testing.T) {
	t.Parallel()

	var ready int

	h := NewHeadless(Notifier{OnSendReady: func() { ready++ }})

	require.False(t, h.Capture(Packet{Payload: []byte{1}}))

	h.EnableVoiceProcessing(true)
	require.True(t, h.Capture(Packet{Payload: []byte{1}}))
	require.True(t, h.Capture(Packet{Payload: []byte{2}}))
	require.Equal(t, 1, ready)
	require.False(t, h.IsIdle())

	p, ok := h.PopSendPacket()
	require.True(t, ok)
	require.Equal(t, []byte{1}, p.Payload)

	h.EnableVoiceProcessing(false)

	_, ok = h.PopSendPacket()
	require.False(t, ok)
	require.True(t, h.IsIdle())
}

// TestHeadlessWakeWord disarms after a detection and keeps its audio.
func TestHeadlessWakeWord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var detected int

	h := NewHeadless(Notifier{OnWakeWord: func() { detected++ }})

	require.False(t, h.DetectWakeWord(ctx, "hi"))

	h.EnableWakeWordDetection(true)
	require.True(t, h.DetectWakeWord(ctx, "hi", Packet{Payload: []byte{9}}))
	require.False(t, h.IsWakeWordArmed())
	require.Equal(t, "hi", h.LastWakeWord())
	require.Equal(t, 1, detected)

	_, ok := h.PopWakeWordPacket()
	require.False(t, ok)

	h.EncodeWakeWord()

	p, ok := h.PopWakeWordPacket()
	require.True(t, ok)
	require.Equal(t, []byte{9}, p.Payload)
}

// TestHeadlessVoiceActivity notifies only on changes while capturing.
func TestHeadlessVoiceActivity(t *testing.T) {
	t.Parallel()

	var changes []bool

	h := NewHeadless(Notifier{OnVoiceActivity: func(v bool) { changes = append(changes, v) }})

	h.SetVoiceDetected(true)
	h.EnableVoiceProcessing(true)
	h.SetVoiceDetected(true)
	h.SetVoiceDetected(true)
	h.SetVoiceDetected(false)

	require.Equal(t, []bool{true, false}, changes)
}

// TestHeadlessDecodeQueueBounded drops the oldest playback packet when full.
func TestHeadlessDecodeQueueBounded(t *testing.T) {
	t.Parallel()

	h := NewHeadless(Notifier{})
	for i := range maxQueuedPackets + 1 {
		h.PushDecodePacket(Packet{Timestamp: uint32(i)})
	}

	p, ok := h.PopDecodePacket()
	require.True(t, ok)
	require.Equal(t, uint32(1), p.Timestamp)

	h.ResetDecoder()

	_, ok = h.PopDecodePacket()
	require.False(t, ok)
}
