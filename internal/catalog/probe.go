package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupported is returned by Probe for formats it cannot measure.
var ErrUnsupported = errors.New("unsupported audio format")

// transcodedExts are the companion formats looked for next to a bundled
// file, in preference order.
var transcodedExts = []string{".wav", ".mp3"}

type format int

const (
	formatUnknown format = iota
	formatWAV
	formatMP3
)

// sniff identifies the container from the first bytes of a file. The
// bundled assets carry .m4a and .aac names whatever they hold.
func sniff(head []byte) format {
	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return formatWAV
	case len(head) >= 3 && bytes.Equal(head[:3], []byte("ID3")):
		return formatMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return formatMP3
	}
	return formatUnknown
}

// Probe reports the playing time of the file at path. Only WAV and MP3
// content can be measured; anything else returns ErrUnsupported.
func Probe(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}

	switch sniff(head[:n]) {
	case formatWAV:
		return probeWAV(f, path)
	case formatMP3:
		return probeMP3(f, path)
	}
	return 0, fmt.Errorf("probe %s: %w", filepath.Base(path), ErrUnsupported)
}

func probeMP3(r io.Reader, path string) (time.Duration, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return 0, fmt.Errorf("decode mp3 %s: %w", filepath.Base(path), err)
	}
	// Decoded output is 16-bit stereo: four bytes per sample frame.
	frames := d.Length() / 4
	if frames <= 0 || d.SampleRate() <= 0 {
		return 0, fmt.Errorf("probe mp3 %s: unknown length", filepath.Base(path))
	}
	return time.Duration(frames) * time.Second / time.Duration(d.SampleRate()), nil
}

func probeWAV(r io.ReadSeeker, path string) (time.Duration, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("probe wav %s: invalid file", filepath.Base(path))
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, fmt.Errorf("probe wav %s: %w", filepath.Base(path), err)
	}
	return dur, nil
}

// measure finds the length of a bundled asset. A transcoded copy with the
// same base name wins over the file itself. Zero means unknown.
func measure(path string) time.Duration {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range transcodedExts {
		if dur, err := Probe(base + ext); err == nil && dur > 0 {
			return dur
		}
	}
	if dur, err := Probe(path); err == nil && dur > 0 {
		return dur
	}
	return 0
}

// ClampOffset keeps a preview start offset inside the track. When the
// length is unknown the offset is returned unchanged.
func ClampOffset(src Source, offset, window time.Duration) time.Duration {
	dur := src.Length
	if dur <= 0 {
		return offset
	}
	if offset+window <= dur {
		return offset
	}
	if dur <= window {
		return 0
	}
	return dur - window
}
