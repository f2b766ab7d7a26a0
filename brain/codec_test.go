package brain

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// chunkedReader yields at most n bytes per Read call to force partial reads.
type chunkedReader struct {
	r io.Reader
	n int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(p) > c.n {
		p = p[:c.n]
	}
	return c.r.Read(p)
}

func TestFrameCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := &frameCodec{r: &buf, w: &buf}

	payload := []byte(`{"type":"evaluate","sensors":[]}`)
	if err := c.writeMessage(payload); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	got, err := c.readMessage()
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestFrameCodecReassemblesPartialReads(t *testing.T) {
	payload := []byte(`{"type":"train","training":[{"id":7,"reward":1.25}]}`)

	var wire bytes.Buffer
	w := &frameCodec{r: nil, w: &wire}
	if err := w.writeMessage(payload); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	for _, chunk := range []int{1, 2, 3, 7} {
		r := &frameCodec{r: &chunkedReader{r: bytes.NewReader(wire.Bytes()), n: chunk}}
		got, err := r.readMessage()
		if err != nil {
			t.Fatalf("chunk size %d: readMessage: %v", chunk, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("chunk size %d: payload = %q, want %q", chunk, got, payload)
		}
	}
}

func TestFrameCodecFailsOnEarlyClose(t *testing.T) {
	payload := []byte(`{"type":"init","brains":[]}`)

	var wire bytes.Buffer
	w := &frameCodec{w: &wire}
	if err := w.writeMessage(payload); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	// Truncate mid-payload: the read must fail, not return a short message.
	truncated := wire.Bytes()[:len(wire.Bytes())-5]
	r := &frameCodec{r: iotest.OneByteReader(bytes.NewReader(truncated))}
	if _, err := r.readMessage(); err == nil {
		t.Fatal("readMessage succeeded on truncated frame")
	}
}

func TestFrameCodecRejectsInvalidLength(t *testing.T) {
	// Zero-length frame.
	r := &frameCodec{r: bytes.NewReader([]byte{0, 0, 0, 0})}
	if _, err := r.readMessage(); err == nil {
		t.Error("zero-length frame accepted")
	}

	// Absurdly large declared length.
	r = &frameCodec{r: bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF})}
	if _, err := r.readMessage(); err == nil {
		t.Error("oversized frame length accepted")
	}
}

func TestLineCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := newCodec(EncodingLines, &struct {
		io.Reader
		io.Writer
	}{&buf, &buf})

	payload := []byte(`{"type":"init","brains":[]}`)
	if err := c.writeMessage(payload); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}
	got, err := c.readMessage()
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestLineCodecIncompleteLine(t *testing.T) {
	c := &lineCodec{r: bufio.NewReader(strings.NewReader(`{"status":"eval`)), w: io.Discard}
	if _, err := c.readMessage(); err == nil {
		t.Fatal("incomplete line accepted")
	}
}
