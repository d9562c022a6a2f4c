package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
	"github.com/brightpath-ai/tutoring-platform/pkg/metrics"
)

// doneSentinel terminates an SSE stream explicitly, distinct from
// transport-level close.
const doneSentinel = "[DONE]"

// maxLineSize caps a single stream line (64KB).
const maxLineSize = 64 * 1024

// lineBuffer is a rolling byte buffer. Chunks are appended as raw bytes and
// split on newline; the trailing partial line stays buffered until the next
// chunk arrives. Splitting is byte-wise on '\n' only, so multi-byte UTF-8
// sequences crossing chunk edges are never broken.
type lineBuffer struct {
	buf []byte
}

// feed appends a chunk and returns all newly completed lines, with trailing
// CR stripped.
func (b *lineBuffer) feed(chunk []byte) ([][]byte, error) {
	b.buf = append(b.buf, chunk...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			if len(b.buf) > maxLineSize {
				return lines, fmt.Errorf("stream line exceeds %d bytes", maxLineSize)
			}
			return lines, nil
		}
		line := bytes.TrimRight(b.buf[:i], "\r")
		out := make([]byte, len(line))
		copy(out, line)
		lines = append(lines, out)
		b.buf = b.buf[i+1:]
	}
}

// rest returns the buffered partial line.
func (b *lineBuffer) rest() []byte {
	return b.buf
}

// DeltaExtractor interprets one complete line of a vendor stream.
// It returns the extracted text fragment (possibly empty), whether the line
// was the end-of-stream sentinel, and an error for lines that were
// recognized but failed to parse. Unrecognized lines return ("", false, nil).
type DeltaExtractor func(line []byte) (delta string, done bool, err error)

// StreamError wraps a mid-stream transport error, preserving any content
// decoded before the failure.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// StreamDecoder converts a chunked vendor response body into an ordered
// sequence of text fragments. The line-buffering logic is vendor-agnostic;
// the per-line interpretation is supplied by the extractor. Lines the
// extractor rejects are logged and skipped; a single malformed line never
// terminates an otherwise-good stream.
type StreamDecoder struct {
	provider string
	extract  DeltaExtractor
	log      *logger.Logger
	lines    lineBuffer
	done     bool
	index    int
}

// NewStreamDecoder creates a decoder for one response body.
func NewStreamDecoder(provider string, extract DeltaExtractor, log *logger.Logger) *StreamDecoder {
	if log == nil {
		log = logger.Global()
	}
	return &StreamDecoder{
		provider: provider,
		extract:  extract,
		log:      log,
	}
}

// Feed accepts the next raw chunk and invokes onDelta for each fragment
// decoded from it, in order. After the sentinel has been observed further
// chunks are ignored.
func (d *StreamDecoder) Feed(chunk []byte, onDelta func(delta string, index int) error) error {
	if d.done {
		return nil
	}

	lines, err := d.lines.feed(chunk)
	if err != nil {
		return err
	}
	return d.processLines(lines, onDelta)
}

// Finish flushes a trailing line that arrived without a final newline.
func (d *StreamDecoder) Finish(onDelta func(delta string, index int) error) error {
	if d.done {
		return nil
	}
	rest := d.lines.rest()
	if len(bytes.TrimSpace(rest)) == 0 {
		return nil
	}
	d.lines.buf = nil
	return d.processLines([][]byte{rest}, onDelta)
}

// Done reports whether the sentinel has been observed.
func (d *StreamDecoder) Done() bool {
	return d.done
}

func (d *StreamDecoder) processLines(lines [][]byte, onDelta func(delta string, index int) error) error {
	for _, line := range lines {
		delta, done, err := d.extract(line)
		if err != nil {
			// Tolerant-parser policy: log and keep going.
			d.log.Warn("skipping malformed stream line",
				zap.String("provider", d.provider),
				zap.Error(err),
			)
			metrics.LLMStreamLinesSkipped.WithLabelValues(d.provider).Inc()
			continue
		}
		if done {
			d.done = true
			return nil
		}
		if delta == "" {
			continue
		}
		if err := onDelta(delta, d.index); err != nil {
			return err
		}
		d.index++
	}
	return nil
}

// DecodeStream drains a response body through the decoder. The accumulated
// content is returned; mid-stream read errors are wrapped in a StreamError
// carrying the fragments already decoded.
func DecodeStream(ctx context.Context, body io.Reader, d *StreamDecoder, callback StreamCallback) (string, error) {
	var content strings.Builder

	onDelta := func(delta string, index int) error {
		content.WriteString(delta)
		if callback != nil {
			return callback(delta, index)
		}
		return nil
	}

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return content.String(), ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			if ferr := d.Feed(buf[:n], onDelta); ferr != nil {
				return content.String(), ferr
			}
			if d.Done() {
				return content.String(), nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if ferr := d.Finish(onDelta); ferr != nil {
					return content.String(), ferr
				}
				return content.String(), nil
			}
			return content.String(), &StreamError{Partial: content.String(), Err: err}
		}
	}
}

// SSEExtractor interprets the Server-Sent-Events-like framing used by
// OpenAI-compatible vendors: only lines prefixed "data:" are recognized,
// "[DONE]" is the sentinel, and the fragment lives at
// choices[0].delta.content.
func SSEExtractor(line []byte) (string, bool, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || !bytes.HasPrefix(trimmed, []byte("data:")) {
		return "", false, nil
	}

	data := bytes.TrimSpace(trimmed[len("data:"):])
	if string(data) == doneSentinel {
		return "", true, nil
	}

	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", false, fmt.Errorf("parse SSE chunk: %w", err)
	}
	if len(chunk.Choices) == 0 {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, false, nil
}

// GeminiExtractor interprets the newline-delimited partial-JSON framing used
// by the Gemini family: each line holds one JSON object with the fragment at
// candidates[0].content.parts[*].text. Array punctuation emitted between
// objects is tolerated. There is no sentinel; the transport close ends the
// sequence.
func GeminiExtractor(line []byte) (string, bool, error) {
	trimmed := bytes.TrimSpace(line)
	trimmed = bytes.Trim(trimmed, ",")
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[")) || bytes.Equal(trimmed, []byte("]")) {
		return "", false, nil
	}
	if trimmed[0] == '[' {
		trimmed = bytes.TrimSpace(trimmed[1:])
	}

	var chunk struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(trimmed, &chunk); err != nil {
		return "", false, fmt.Errorf("parse Gemini chunk: %w", err)
	}
	if len(chunk.Candidates) == 0 {
		return "", false, nil
	}

	var sb strings.Builder
	for _, part := range chunk.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), false, nil
}
