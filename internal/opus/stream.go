package opus

import (
	"errors"
	"fmt"
	"io"
)

// Stream reads PCM frames from source, encodes them, and passes each packet
// to emit. It blocks until the source ends or fails.
// Returns nil on clean EOF.
func Stream(source *FrameReader, enc FrameEncoder, emit func(packet []byte)) error {
	for {
		frame, err := source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		packet, err := enc.Encode(frame)
		if err != nil {
			return fmt.Errorf("failed to encode frame: %w", err)
		}
		emit(packet)
	}
}
