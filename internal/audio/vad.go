package audio

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech detection
	SilenceFrames   int     // Consecutive silent frames that end speech
	FrameSize       int     // Samples per frame, 20ms at the stream's sample rate
}

// DefaultVADConfig returns the configuration for 16kHz dictation audio
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   10,  // 200ms
		FrameSize:       320, // 20ms at 16kHz
	}
}

// VADDetector performs energy based Voice Activity Detection
type VADDetector struct {
	config         *VADConfig
	silenceCounter int
	isSpeaking     bool
	pending        []byte
}

// NewVADDetector creates a new VAD detector
func NewVADDetector(config *VADConfig) *VADDetector {
	if config == nil {
		config = DefaultVADConfig()
	}
	return &VADDetector{config: config}
}

// ProcessFrame processes one frame of samples.
// Returns: (isSpeaking, speechStarted, speechEnded)
func (v *VADDetector) ProcessFrame(samples []int16) (bool, bool, bool) {
	frameHasSpeech := !DetectSilence(samples, v.config.EnergyThreshold)

	var speechStarted, speechEnded bool

	if frameHasSpeech {
		v.silenceCounter = 0
		if !v.isSpeaking {
			speechStarted = true
			v.isSpeaking = true
		}
	} else {
		v.silenceCounter++
		if v.isSpeaking && v.silenceCounter >= v.config.SilenceFrames {
			speechEnded = true
			v.isSpeaking = false
			v.silenceCounter = 0
		}
	}

	return v.isSpeaking, speechStarted, speechEnded
}

// Feed splits a linear16 chunk into frames, carrying incomplete frames over
// to the next call. It returns the speaking state after each edge, in order.
func (v *VADDetector) Feed(pcm []byte) []bool {
	frameBytes := v.config.FrameSize * BytesPerSample
	if frameBytes <= 0 {
		return nil
	}

	data := append(v.pending, pcm...)
	var edges []bool
	for len(data) >= frameBytes {
		_, started, ended := v.ProcessFrame(DecodeLinear16(data[:frameBytes]))
		if started {
			edges = append(edges, true)
		}
		if ended {
			edges = append(edges, false)
		}
		data = data[frameBytes:]
	}
	v.pending = append(v.pending[:0:0], data...)

	return edges
}

// Reset resets the VAD detector state
func (v *VADDetector) Reset() {
	v.silenceCounter = 0
	v.isSpeaking = false
	v.pending = nil
}

// IsSpeaking returns whether speech is currently detected
func (v *VADDetector) IsSpeaking() bool {
	return v.isSpeaking
}

// DetectSilence reports whether samples do not exceed the energy threshold
func DetectSilence(samples []int16, threshold float64) bool {
	return CalculateRMS(samples) <= threshold
}
