package audio

import (
	"context"
	"sync"

	"github.com/oshokin/device-core/internal/logger"
)

// maxQueuedPackets bounds each queue; older packets are dropped first.
const maxQueuedPackets = 64

// Headless is a Pipeline without capture hardware. Frames and wake words
// are injected by the caller, which makes it suitable for hosts and tests.
type Headless struct {
	// mu guards every field below.
	mu sync.Mutex
	// notifier receives pipeline events.
	notifier Notifier
	// processing is true while capture is enabled.
	processing bool
	// wakeWord is true while the detector is armed.
	wakeWord bool
	// deviceAec is the on-device echo cancellation switch.
	deviceAec bool
	// voice is the last voice activity decision.
	voice bool
	// lastWakeWord is the last detected wake word.
	lastWakeWord string
	// wakePackets holds encoded wake word audio.
	wakePackets []Packet
	// pendingWake holds wake word audio captured before EncodeWakeWord.
	pendingWake []Packet
	// sendQueue holds encoded capture.
	sendQueue []Packet
	// decodeQueue holds playback.
	decodeQueue []Packet
}

// NewHeadless returns a pipeline reporting events to notifier.
func NewHeadless(notifier Notifier) *Headless {
	return &Headless{notifier: notifier}
}

// SetNotifier replaces the event receiver.
func (h *Headless) SetNotifier(notifier Notifier) {
	h.mu.Lock()
	h.notifier = notifier
	h.mu.Unlock()
}

// EnableVoiceProcessing implements Pipeline.
func (h *Headless) EnableVoiceProcessing(enable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.processing = enable
	if !enable {
		h.sendQueue = nil
		h.voice = false
	}
}

// EnableWakeWordDetection implements Pipeline.
func (h *Headless) EnableWakeWordDetection(enable bool) {
	h.mu.Lock()
	h.wakeWord = enable
	h.mu.Unlock()
}

// EnableDeviceAec implements Pipeline.
func (h *Headless) EnableDeviceAec(enable bool) {
	h.mu.Lock()
	h.deviceAec = enable
	h.mu.Unlock()
}

// DeviceAec reports the on-device echo cancellation switch.
func (h *Headless) DeviceAec() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.deviceAec
}

// IsVoiceProcessingRunning implements Pipeline.
func (h *Headless) IsVoiceProcessingRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.processing
}

// IsWakeWordArmed reports whether the detector is armed.
func (h *Headless) IsWakeWordArmed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.wakeWord
}

// IsVoiceDetected implements Pipeline.
func (h *Headless) IsVoiceDetected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.voice
}

// IsIdle implements Pipeline.
func (h *Headless) IsIdle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.sendQueue) == 0 && len(h.decodeQueue) == 0
}

// ResetDecoder implements Pipeline.
func (h *Headless) ResetDecoder() {
	h.mu.Lock()
	h.decodeQueue = nil
	h.mu.Unlock()
}

// Stop implements Pipeline.
func (h *Headless) Stop() {
	h.mu.Lock()
	h.decodeQueue = nil
	h.sendQueue = nil
	h.mu.Unlock()
}

// EncodeWakeWord implements Pipeline.
func (h *Headless) EncodeWakeWord() {
	h.mu.Lock()
	h.wakePackets = append(h.wakePackets, h.pendingWake...)
	h.pendingWake = nil
	h.mu.Unlock()
}

// LastWakeWord implements Pipeline.
func (h *Headless) LastWakeWord() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lastWakeWord
}

// PopWakeWordPacket implements Pipeline.
func (h *Headless) PopWakeWordPacket() (Packet, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return pop(&h.wakePackets)
}

// PopSendPacket implements Pipeline.
func (h *Headless) PopSendPacket() (Packet, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return pop(&h.sendQueue)
}

// PushDecodePacket implements Pipeline.
func (h *Headless) PushDecodePacket(packet Packet) {
	h.mu.Lock()
	h.decodeQueue = push(h.decodeQueue, packet)
	h.mu.Unlock()
}

// PopDecodePacket returns the next queued playback packet.
func (h *Headless) PopDecodePacket() (Packet, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return pop(&h.decodeQueue)
}

// Capture feeds one encoded microphone frame. It is dropped unless voice
// processing is enabled.
func (h *Headless) Capture(packet Packet) bool {
	h.mu.Lock()

	if !h.processing {
		h.mu.Unlock()

		return false
	}

	wasEmpty := len(h.sendQueue) == 0
	h.sendQueue = push(h.sendQueue, packet)
	notify := h.notifier.OnSendReady
	h.mu.Unlock()

	if wasEmpty && notify != nil {
		notify()
	}

	return true
}

// DetectWakeWord reports a detection of word with its captured audio.
// It is ignored while the detector is disarmed.
func (h *Headless) DetectWakeWord(ctx context.Context, word string, audio ...Packet) bool {
	h.mu.Lock()

	if !h.wakeWord {
		h.mu.Unlock()
		logger.DebugKV(ctx, "wake word ignored, detector disarmed", "word", word)

		return false
	}

	// The detector disarms itself until the loop re-enables it.
	h.wakeWord = false
	h.lastWakeWord = word
	h.pendingWake = append(h.pendingWake[:0], audio...)
	notify := h.notifier.OnWakeWord
	h.mu.Unlock()

	if notify != nil {
		notify()
	}

	return true
}

// SetVoiceDetected records a voice activity decision and notifies on change.
func (h *Headless) SetVoiceDetected(speaking bool) {
	h.mu.Lock()

	if h.voice == speaking || !h.processing {
		h.mu.Unlock()

		return
	}

	h.voice = speaking
	notify := h.notifier.OnVoiceActivity
	h.mu.Unlock()

	if notify != nil {
		notify(speaking)
	}
}

func push(queue []Packet, packet Packet) []Packet {
	if len(queue) >= maxQueuedPackets {
		queue = queue[1:]
	}

	return append(queue, packet)
}

func pop(queue *[]Packet) (Packet, bool) {
	if len(*queue) == 0 {
		return Packet{}, false
	}

	packet := (*queue)[0]
	*queue = (*queue)[1:]

	return packet, true
}
