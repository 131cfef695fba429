package audio

import (
	"encoding/binary"
	"math"
)

// BytesPerSample of linear16 audio
const BytesPerSample = 2

// DecodeLinear16 converts little-endian 16-bit PCM to samples. A trailing odd
// byte is ignored.
func DecodeLinear16(data []byte) []int16 {
	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
	}
	return samples
}

// EncodeLinear16 converts samples to little-endian 16-bit PCM
func EncodeLinear16(samples []int16) []byte {
	data := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*BytesPerSample:], uint16(s))
	}
	return data
}

// CalculateRMS returns the root mean square energy of samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// FrameSamples returns the number of samples in a 20ms frame
func FrameSamples(sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return sampleRate / 50
}
