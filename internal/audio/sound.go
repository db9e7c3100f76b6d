package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

// Sound is a fully decoded in-memory asset. Each playback streams its own
// cursor over the shared buffer, so one Sound can play concurrently.
type Sound struct {
	Path   string
	Format beep.Format

	buf *beep.Buffer
}

func (s *Sound) Streamer() beep.StreamSeeker {
	return s.buf.Streamer(0, s.buf.Len())
}

// LoadSound reads and decodes the whole asset up front, so dispatch-time
// playback starts without touching the disk or the decoder.
func LoadSound(path string) (*Sound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAsset, path, err)
	}
	streamer, format, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAsset, path, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: empty audio stream", ErrAsset, path)
	}
	return &Sound{Path: path, Format: format, buf: buf}, nil
}

// decode picks a decoder by file extension. Unknown extensions are tried as
// WAV, the original product's primary format.
func decode(path string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := io.NopCloser(bytes.NewReader(data))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(r)
	case ".flac":
		return flac.Decode(r)
	case ".ogg", ".oga":
		return vorbis.Decode(r)
	default:
		return wav.Decode(r)
	}
}
