package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

func sseBody(deltas ...string) string {
	var sb strings.Builder
	for _, d := range deltas {
		fmt.Fprintf(&sb, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n", d)
	}
	sb.WriteString("data: [DONE]\n")
	return sb.String()
}

// chunkReader yields a fixed body in chunks of the given sizes, cycling
// through the sizes until the body is drained.
type chunkReader struct {
	data  []byte
	sizes []int
	i     int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	size := r.sizes[r.i%len(r.sizes)]
	r.i++
	if size > len(r.data) {
		size = len(r.data)
	}
	if size > len(p) {
		size = len(p)
	}
	n := copy(p, r.data[:size])
	r.data = r.data[n:]
	return n, nil
}

// failingReader returns some data and then a transport error.
type failingReader struct {
	data []byte
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, r.err
}

func decode(t *testing.T, body io.Reader) (string, []string, error) {
	t.Helper()
	d := NewStreamDecoder("test", SSEExtractor, logger.NewNop())
	var tokens []string
	content, err := DecodeStream(context.Background(), body, d, func(token string, index int) error {
		assert.Equal(t, len(tokens), index)
		tokens = append(tokens, token)
		return nil
	})
	return content, tokens, err
}

func TestDecodeStreamReassemblesAcrossChunks(t *testing.T) {
	body := sseBody("The answe", "r is 42.")

	// Every chunk size must yield the identical result, including sizes
	// that split lines and multi-byte sequences mid-chunk.
	for _, size := range []int{1, 2, 3, 5, 7, 16, 64, 4096} {
		r := &chunkReader{data: []byte(body), sizes: []int{size}}
		content, tokens, err := decode(t, r)
		require.NoError(t, err, "chunk size %d", size)
		assert.Equal(t, "The answer is 42.", content, "chunk size %d", size)
		assert.Equal(t, []string{"The answe", "r is 42."}, tokens, "chunk size %d", size)
	}
}

func TestDecodeStreamSplitsMultiByteRunes(t *testing.T) {
	body := sseBody("héllo ", "wörld 日本語")

	r := &chunkReader{data: []byte(body), sizes: []int{1}}
	content, _, err := decode(t, r)
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld 日本語", content)
}

func TestDecodeStreamSkipsMalformedLines(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"keep \"}}]}\n" +
		"data: {not json at all\n" +
		"event: ping\n" +
		"\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"going\"}}]}\n" +
		"data: [DONE]\n"

	content, tokens, err := decode(t, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "keep going", content)
	// Token indices stay contiguous even when lines were skipped between
	// them.
	assert.Equal(t, []string{"keep ", "going"}, tokens)
}

func TestDecodeStreamStopsAtSentinel(t *testing.T) {
	body := sseBody("before") +
		"data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n"

	content, _, err := decode(t, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "before", content, "content after the sentinel must be ignored")
}

func TestDecodeStreamFlushesUnterminatedTail(t *testing.T) {
	// No trailing newline and no sentinel: transport close ends the
	// stream and the buffered tail is still decoded.
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"tail\"}}]}"

	content, _, err := decode(t, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "tail", content)
}

func TestDecodeStreamPreservesPartialOnTransportError(t *testing.T) {
	r := &failingReader{
		data: []byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial \"}}]}\n"),
		err:  errors.New("connection reset"),
	}

	d := NewStreamDecoder("test", SSEExtractor, logger.NewNop())
	content, err := DecodeStream(context.Background(), r, d, nil)

	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "partial ", se.Partial)
	assert.Equal(t, "partial ", content)
}

func TestDecodeStreamEmptyDeltasProduceNoTokens(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n" +
		"data: [DONE]\n"

	content, tokens, err := decode(t, strings.NewReader(body))
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Empty(t, tokens)
}

func TestDecodeStreamLineSizeCap(t *testing.T) {
	huge := strings.Repeat("x", maxLineSize+1)
	d := NewStreamDecoder("test", SSEExtractor, logger.NewNop())
	_, err := DecodeStream(context.Background(), strings.NewReader("data: "+huge), d, nil)
	require.Error(t, err)
}

func TestSSEExtractor(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delta string
		done  bool
		isErr bool
	}{
		{"delta", `data: {"choices":[{"delta":{"content":"hi"}}]}`, "hi", false, false},
		{"sentinel", "data: [DONE]", "", true, false},
		{"sentinel with surrounding space", "data:  [DONE] ", "", true, false},
		{"non-data line ignored", "event: message", "", false, false},
		{"empty line ignored", "", "", false, false},
		{"comment ignored", ": keep-alive", "", false, false},
		{"malformed json errors", "data: {oops", "", false, true},
		{"empty choices tolerated", `data: {"choices":[]}`, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, done, err := SSEExtractor([]byte(tt.line))
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.delta, delta)
			assert.Equal(t, tt.done, done)
		})
	}
}

func TestGeminiExtractor(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delta string
		isErr bool
	}{
		{"single part", `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`, "hello", false},
		{"multiple parts concatenated", `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`, "ab", false},
		{"array open punctuation", "[", "", false},
		{"array close punctuation", "]", "", false},
		{"leading bracket before object", `[{"candidates":[{"content":{"parts":[{"text":"x"}]}}]}`, "x", false},
		{"trailing comma", `{"candidates":[{"content":{"parts":[{"text":"y"}]}}]},`, "y", false},
		{"empty candidates tolerated", `{"candidates":[]}`, "", false},
		{"malformed errors", `{"candidates": nope`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, done, err := GeminiExtractor([]byte(tt.line))
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, done, "Gemini framing has no sentinel")
			assert.Equal(t, tt.delta, delta)
		})
	}
}

func TestGeminiStreamEndToEnd(t *testing.T) {
	body := "[\n" +
		`{"candidates":[{"content":{"parts":[{"text":"first "}]}}]},` + "\n" +
		`{"candidates":[{"content":{"parts":[{"text":"second"}]}}]}` + "\n" +
		"]\n"

	d := NewStreamDecoder("gemini", GeminiExtractor, logger.NewNop())
	content, err := DecodeStream(context.Background(), strings.NewReader(body), d, nil)
	require.NoError(t, err)
	assert.Equal(t, "first second", content)
}

func TestDecodeStreamCallbackErrorStops(t *testing.T) {
	body := sseBody("one", "two", "three")

	d := NewStreamDecoder("test", SSEExtractor, logger.NewNop())
	calls := 0
	_, err := DecodeStream(context.Background(), strings.NewReader(body), d, func(token string, index int) error {
		calls++
		if calls == 2 {
			return errors.New("client gone")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
