package llmclient

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"gochat/internal/core"
)

// doneMarker terminates OpenAI-compatible streams.
var doneMarker = []byte("[DONE]")

// StreamReader decodes an OpenAI-compatible chat completion SSE stream into
// content fragments.
type StreamReader struct {
	body     io.ReadCloser
	r        *bufio.Reader
	provider string
	done     bool
}

// NewStreamReader wraps a raw SSE body. The reader owns the body and closes it on Close.
func NewStreamReader(body io.ReadCloser, provider string) *StreamReader {
	return &StreamReader{
		body:     body,
		r:        bufio.NewReaderSize(body, 64*1024),
		provider: provider,
	}
}

// Next returns the content delta of the next chunk. The delta may be empty
// (role-only or terminal chunks). It returns io.EOF after [DONE] or at the end
// of the body. Error events embedded in the stream are returned as *core.GatewayError.
func (s *StreamReader) Next() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		data, err := s.nextEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.done = true
				return "", io.EOF
			}
			return "", fmt.Errorf("read stream: %w", err)
		}

		if bytes.Equal(data, doneMarker) {
			s.done = true
			return "", io.EOF
		}

		if !gjson.ValidBytes(data) {
			return "", fmt.Errorf("malformed stream chunk: %q", truncate(data, 120))
		}

		if errResult := gjson.GetBytes(data, "error"); errResult.Exists() {
			return "", s.streamError(errResult)
		}

		content := gjson.GetBytes(data, "choices.0.delta.content")
		if !content.Exists() {
			continue
		}
		return content.String(), nil
	}
}

// Close closes the underlying body.
func (s *StreamReader) Close() error {
	s.done = true
	return s.body.Close()
}

// nextEvent returns the next SSE event's concatenated data payload.
// Multiple data lines are joined with "\n"; comment lines are skipped.
func (s *StreamReader) nextEvent() ([]byte, error) {
	var dataLines [][]byte
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			line = bytes.TrimRight(line, "\r\n")
			if len(line) > 0 {
				dataLines = appendDataLine(dataLines, line)
			}
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(dataLines) == 0 {
				continue
			}
			return bytes.Join(dataLines, []byte("\n")), nil
		}
		if line[0] == ':' {
			continue
		}
		dataLines = appendDataLine(dataLines, line)
	}
}

// streamError maps an in-band {"error":{...}} event to a GatewayError.
func (s *StreamReader) streamError(errResult gjson.Result) error {
	status := http.StatusBadGateway
	if code := errResult.Get("code"); code.Type == gjson.Number {
		status = int(code.Int())
	} else if errResult.Get("type").String() == "rate_limit_exceeded" || code.String() == "rate_limit_exceeded" {
		status = http.StatusTooManyRequests
	}
	return core.ParseProviderError(s.provider, status, []byte(`{"error":`+errResult.Raw+`}`), nil)
}

func appendDataLine(dst [][]byte, line []byte) [][]byte {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return dst
	}
	val := line[len("data:"):]
	if len(val) > 0 && val[0] == ' ' {
		val = val[1:]
	}
	return append(dst, append([]byte(nil), val...))
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
