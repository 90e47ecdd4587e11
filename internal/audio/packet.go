package audio

// Packet is one encoded or raw audio frame.
type Packet struct {
	// SampleRate is the rate of the payload in Hz.
	SampleRate int
	// FrameDuration is the frame length in milliseconds.
	FrameDuration int
	// Timestamp is the server-side playback timestamp, zero when unknown.
	Timestamp uint32
	// Payload is the frame data.
	Payload []byte
}

// Pipeline is the capture and playback pipeline driven by the control loop.
// Every method except the notifier callbacks is called from the loop only.
type Pipeline interface {
	// EnableVoiceProcessing starts or stops the capture and encode path.
	EnableVoiceProcessing(enable bool)
	// EnableWakeWordDetection arms or disarms the wake word detector.
	EnableWakeWordDetection(enable bool)
	// EnableDeviceAec switches on-device echo cancellation.
	EnableDeviceAec(enable bool)
	// IsVoiceProcessingRunning reports whether capture is active.
	IsVoiceProcessingRunning() bool
	// IsVoiceDetected reports the last voice activity decision.
	IsVoiceDetected() bool
	// IsIdle reports whether both queues are empty and nothing is playing.
	IsIdle() bool
	// ResetDecoder drops queued playback and resets the decoder.
	ResetDecoder()
	// Stop halts playback and capture.
	Stop()
	// EncodeWakeWord prepares the captured wake word audio for sending.
	EncodeWakeWord()
	// LastWakeWord returns the last detected wake word.
	LastWakeWord() string
	// PopWakeWordPacket returns the next encoded wake word packet.
	PopWakeWordPacket() (Packet, bool)
	// PopSendPacket returns the next encoded capture packet.
	PopSendPacket() (Packet, bool)
	// PushDecodePacket queues a packet for playback.
	PushDecodePacket(packet Packet)
}

// Notifier receives pipeline events. Implementations must not block.
type Notifier struct {
	// OnSendReady fires when the send queue becomes non-empty.
	OnSendReady func()
	// OnWakeWord fires when the wake word is detected.
	OnWakeWord func()
	// OnVoiceActivity fires when voice activity flips.
	OnVoiceActivity func(speaking bool)
}
