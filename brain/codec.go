package brain

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Encoding selects the message framing on the wire.
type Encoding string

const (
	// EncodingLines frames each JSON message with a trailing newline.
	// This is the encoding the original decision service speaks.
	EncodingLines Encoding = "lines"
	// EncodingFrames prefixes each JSON payload with a 4-byte big-endian
	// byte length.
	EncodingFrames Encoding = "frames"
)

// maxFrameLen bounds a declared frame length. Evaluate batches scale with
// population, so this is generous but finite.
const maxFrameLen = 64 << 20

// codec frames whole messages on a stream. Implementations return the raw
// payload bytes; the caller handles JSON.
type codec interface {
	writeMessage(payload []byte) error
	readMessage() ([]byte, error)
}

// newCodec builds the codec for an encoding. Unknown encodings fall back to
// lines; config validation rejects them before this point.
func newCodec(enc Encoding, rw io.ReadWriter) codec {
	if enc == EncodingFrames {
		return &frameCodec{r: bufio.NewReader(rw), w: rw}
	}
	return &lineCodec{r: bufio.NewReader(rw), w: rw}
}

// lineCodec speaks newline-delimited messages.
type lineCodec struct {
	r *bufio.Reader
	w io.Writer
}

func (c *lineCodec) writeMessage(payload []byte) error {
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, '\n')
	_, err := c.w.Write(buf)
	return err
}

func (c *lineCodec) readMessage() ([]byte, error) {
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		if len(line) > 0 && errors.Is(err, io.EOF) {
			// Connection closed mid-line: the message is incomplete.
			return nil, fmt.Errorf("connection closed mid-message: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// frameCodec speaks length-prefixed messages: 4 bytes big-endian payload
// length, then exactly that many payload bytes. Reads loop until the
// declared length is fully consumed and fail explicitly on early close.
type frameCodec struct {
	r io.Reader
	w io.Writer
}

func (c *frameCodec) writeMessage(payload []byte) error {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := c.w.Write(buf)
	return err
}

func (c *frameCodec) readMessage() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("connection closed mid-header: %w", err)
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length == 0 || length > maxFrameLen {
		return nil, fmt.Errorf("invalid frame length %d", length)
	}

	// io.ReadFull loops over partial reads until length bytes arrive.
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return nil, fmt.Errorf("connection closed after partial frame: %w", err)
	}
	return payload, nil
}
