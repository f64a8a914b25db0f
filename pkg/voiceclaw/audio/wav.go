package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// EncodeWAV wraps raw 16-bit mono PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// WriteTempWAV writes PCM to a temporary WAV file and returns its path.
// The caller owns the file and should remove it when done.
func WriteTempWAV(pcm []byte, sampleRate int) (string, error) {
	f, err := os.CreateTemp("", "voiceclaw_*.wav")
	if err != nil {
		return "", fmt.Errorf("audio: creating temp wav: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(EncodeWAV(pcm, sampleRate)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("audio: writing temp wav: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("audio: closing temp wav: %w", err)
	}
	return path, nil
}

// RemoveQuiet deletes a file, ignoring any error. Used for temp audio
// artifacts that must be discarded regardless of transcription outcome.
func RemoveQuiet(path string) {
	_ = os.Remove(path)
}
