package opus

import (
	"io"
)

// FrameReader reads fixed-size PCM frames from an io.Reader.
type FrameReader struct {
	r   io.Reader
	buf []byte
}

// NewFrameReader returns a new FrameReader that reads from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, buf: make([]byte, FrameBytes)}
}

// ReadFrame returns the next complete frame. The returned slice is
// reused by the next call.
// Returns io.EOF when the source ends on a frame boundary and
// io.ErrUnexpectedEOF when it ends mid-frame.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		return nil, err
	}
	return f.buf, nil
}
