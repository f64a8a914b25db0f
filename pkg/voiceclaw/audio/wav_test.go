package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
)

func TestEncodeWAV_Header(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 3200)
	wav := EncodeWAV(pcm, 16000)

	if want := 44 + len(pcm); len(wav) != want {
		t.Fatalf("EncodeWAV() length = %d, want %d", len(wav), want)
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) {
		t.Errorf("missing RIFF marker, got %q", wav[0:4])
	}
	if !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Errorf("missing WAVE marker, got %q", wav[8:12])
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); int(size) != len(pcm) {
		t.Errorf("data chunk size = %d, want %d", size, len(pcm))
	}
}

func TestWriteTempWAV_RoundTrip(t *testing.T) {
	t.Parallel()

	pcm := []byte{1, 2, 3, 4, 5, 6}
	path, err := WriteTempWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("WriteTempWAV() error = %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading temp wav: %v", err)
	}
	if !bytes.Equal(data, EncodeWAV(pcm, 16000)) {
		t.Error("temp wav content differs from EncodeWAV output")
	}
}

func TestRemoveQuiet_MissingFile(t *testing.T) {
	t.Parallel()

	// Must not panic or report anything for a path that never existed.
	RemoveQuiet("/nonexistent/voiceclaw_test.wav")
}
