package model

import (
	"encoding/binary"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// AudioFormat describes the PCM stream the capture pipeline operates on
type AudioFormat struct {
	SampleRateHz  int `json:"sample_rate_hz"`
	Channels      int `json:"channels"`
	BitsPerSample int `json:"bits_per_sample"`
}

// DefaultAudioFormat returns 16kHz mono 16-bit little-endian PCM
func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRateHz:  16000,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// Validate checks the format is usable for frame math
func (f AudioFormat) Validate() error {
	if f.SampleRateHz <= 0 {
		return goerr.New("sample rate must be positive", goerr.V("sample_rate_hz", f.SampleRateHz))
	}
	if f.Channels <= 0 {
		return goerr.New("channel count must be positive", goerr.V("channels", f.Channels))
	}
	if f.BitsPerSample != 8 && f.BitsPerSample != 16 {
		return goerr.New("bits per sample must be 8 or 16", goerr.V("bits_per_sample", f.BitsPerSample))
	}
	return nil
}

// BytesPerSecond returns the raw PCM byte rate
func (f AudioFormat) BytesPerSecond() int {
	return f.SampleRateHz * f.Channels * (f.BitsPerSample / 8)
}

// BytesForDuration returns the PCM byte count covering d
func (f AudioFormat) BytesForDuration(d time.Duration) int {
	return int(int64(f.BytesPerSecond()) * d.Nanoseconds() / int64(time.Second))
}

// Duration returns the play time of n PCM bytes
func (f AudioFormat) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

// EncodeWAV wraps raw PCM bytes in a RIFF/WAVE header
func (f AudioFormat) EncodeWAV(pcm []byte) []byte {
	byteRate := f.BytesPerSecond()
	blockAlign := f.Channels * (f.BitsPerSample / 8)

	buf := make([]byte, 44+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(buf[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(f.SampleRateHz))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(f.BitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}

// AudioFrame is a fixed-duration slice of PCM samples with its speech label.
// Transient, never persisted.
type AudioFrame struct {
	PCM      []byte
	IsSpeech bool
}

// Utterance is one continuous span of captured speech, bounded by the
// silence threshold or the max duration cap. Immutable once emitted.
type Utterance struct {
	Frames    []AudioFrame
	Format    AudioFormat
	StartedAt time.Time
	EndReason types.EndReason
}

// PCM concatenates all buffered frames into one contiguous byte slice
func (u *Utterance) PCM() []byte {
	size := 0
	for _, f := range u.Frames {
		size += len(f.PCM)
	}
	out := make([]byte, 0, size)
	for _, f := range u.Frames {
		out = append(out, f.PCM...)
	}
	return out
}

// Duration returns the total play time of the buffered frames
func (u *Utterance) Duration() time.Duration {
	size := 0
	for _, f := range u.Frames {
		size += len(f.PCM)
	}
	return u.Format.Duration(size)
}

// SpeechFrames counts frames classified as speech
func (u *Utterance) SpeechFrames() int {
	n := 0
	for _, f := range u.Frames {
		if f.IsSpeech {
			n++
		}
	}
	return n
}

// Synthesis is the audio result of the text-to-speech collaborator
type Synthesis struct {
	Audio  []byte
	Format string // container format, e.g. "wav"
}
