package voice

import (
	"math"
)

// Detector classifies one audio frame as speech or silence. Implementations
// must be stateless per call and cheap enough for real-time frame rates.
type Detector interface {
	Classify(frame []byte) bool
}

// EnergyDetector classifies frames by RMS energy against a fixed threshold
type EnergyDetector struct {
	threshold float64
}

// NewEnergyDetector creates a detector. A non-positive threshold falls back
// to the default.
func NewEnergyDetector(threshold float64) *EnergyDetector {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &EnergyDetector{threshold: threshold}
}

// Classify reports whether the frame carries speech-level energy
func (d *EnergyDetector) Classify(frame []byte) bool {
	return RMSEnergy(frame) >= d.threshold
}

// RMSEnergy computes the root-mean-square energy of 16-bit signed
// little-endian PCM, normalized to [0, 1].
func RMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(samples))
}
