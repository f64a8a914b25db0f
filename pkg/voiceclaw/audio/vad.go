package audio

import (
	"encoding/binary"
	"math"
)

// Detector classifies a single PCM frame as speech or non-speech.
type Detector interface {
	IsSpeech(frame []byte) bool
}

// speechThresholds maps aggressiveness 0..3 to a normalized RMS level.
// Higher aggressiveness demands more energy before a frame counts as
// speech, mirroring how webrtcvad modes behave for command audio.
var speechThresholds = [4]float64{0.006, 0.010, 0.016, 0.025}

// EnergyDetector is a pure-Go voice activity detector based on the RMS
// energy of each frame. Stateless per frame: hysteresis is handled by
// the segmenter's silence accounting, not the classifier.
type EnergyDetector struct {
	threshold float64
}

// NewEnergyDetector creates a detector for the given aggressiveness,
// clamped to [0, 3].
func NewEnergyDetector(aggressiveness int) *EnergyDetector {
	if aggressiveness < 0 {
		aggressiveness = 0
	}
	if aggressiveness > 3 {
		aggressiveness = 3
	}
	return &EnergyDetector{threshold: speechThresholds[aggressiveness]}
}

// IsSpeech reports whether the frame's RMS energy exceeds the threshold.
// Frames with an odd byte count have the trailing byte ignored.
func (d *EnergyDetector) IsSpeech(frame []byte) bool {
	return rms(frame) >= d.threshold
}

// rms computes the root-mean-square level of little-endian 16-bit mono
// samples, normalized to [0, 1].
func rms(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(frame[2*i:]))
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
