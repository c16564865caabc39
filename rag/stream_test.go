package rag

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceStream replays fragments and then fails with err, if set.
type sliceStream struct {
	fragments []string
	err       error
	pos       int
	closed    bool
}

func (s *sliceStream) Next() bool {
	if s.pos >= len(s.fragments) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Current() string { return s.fragments[s.pos-1] }
func (s *sliceStream) Err() error {
	if s.pos >= len(s.fragments) {
		return s.err
	}
	return nil
}
func (s *sliceStream) Close() error { s.closed = true; return nil }

type countingFlusher struct{ n int }

func (f *countingFlusher) Flush() { f.n++ }

// parseFrames splits wire output into (event, data) pairs.
func parseFrames(t *testing.T, raw string) [][2]string {
	t.Helper()
	require.True(t, strings.HasSuffix(raw, "\n\n"), "stream must end with a blank line")
	var frames [][2]string
	for _, block := range strings.Split(strings.TrimSuffix(raw, "\n\n"), "\n\n") {
		var event, data string
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
		frames = append(frames, [2]string{event, data})
	}
	return frames
}

func TestEncodeFrame_WireFormat(t *testing.T) {
	assert.Equal(t, "event: start\ndata: {}\n\n", string(EncodeFrame(Frame{Kind: FrameStart})))
	assert.Equal(t, "data: {\"token\": \"Hi \\\"there\\\"\"}\n\n", string(EncodeFrame(Frame{Kind: FrameToken, Token: `Hi "there"`})))
	assert.Equal(t, "event: error\ndata: {\"message\": \"boom\"}\n\n", string(EncodeFrame(Frame{Kind: FrameError, Message: "boom"})))
	assert.Equal(t, "event: end\ndata: {}\n\n", string(EncodeFrame(Frame{Kind: FrameEnd})))
}

func TestEncodeFrame_TokenWithNewlineStaysOneDataLine(t *testing.T) {
	raw := string(EncodeFrame(Frame{Kind: FrameToken, Token: "line1\n\nline2"}))
	frames := parseFrames(t, raw)
	require.Len(t, frames, 1)

	var payload struct{ Token string }
	require.NoError(t, json.Unmarshal([]byte(frames[0][1]), &payload))
	assert.Equal(t, "line1\n\nline2", payload.Token)
}

func TestRespond_Success(t *testing.T) {
	var buf bytes.Buffer
	flusher := &countingFlusher{}
	stream := &sliceStream{fragments: []string{"Hel", "", "lo", " world"}}

	res := Respond(&buf, flusher, stream)

	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Tokens)
	assert.True(t, stream.closed)

	frames := parseFrames(t, buf.String())
	require.Len(t, frames, 5)
	assert.Equal(t, [2]string{"start", "{}"}, frames[0])
	assert.Equal(t, [2]string{"", `{"token": "Hel"}`}, frames[1])
	assert.Equal(t, [2]string{"", `{"token": "lo"}`}, frames[2])
	assert.Equal(t, [2]string{"", `{"token": " world"}`}, frames[3])
	assert.Equal(t, [2]string{"end", "{}"}, frames[4])
	assert.Equal(t, 5, flusher.n, "every frame is flushed as it is written")
}

func TestRespond_ZeroTokens(t *testing.T) {
	var buf bytes.Buffer
	res := Respond(&buf, nil, &sliceStream{})

	require.NoError(t, res.Err)
	assert.Equal(t, "event: start\ndata: {}\n\nevent: end\ndata: {}\n\n", buf.String())
}

func TestRespond_MidStreamFailure(t *testing.T) {
	var buf bytes.Buffer
	stream := &sliceStream{fragments: []string{"par", "tial"}, err: errors.New("connection reset")}

	res := Respond(&buf, nil, stream)

	require.ErrorIs(t, res.Err, ErrUpstreamStream)
	assert.Equal(t, 2, res.Tokens)

	frames := parseFrames(t, buf.String())
	require.Len(t, frames, 5)
	assert.Equal(t, "start", frames[0][0])
	assert.Equal(t, [2]string{"error", `{"message": "Streaming error: connection reset"}`}, frames[3])
	assert.Equal(t, "end", frames[4][0])

	errFrames := 0
	for _, f := range frames {
		if f[0] == "error" {
			errFrames++
		}
	}
	assert.Equal(t, 1, errFrames)
}

type failingWriter struct{ writes int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("client gone")
}

func TestRespond_DrainsUpstreamWhenClientIsGone(t *testing.T) {
	w := &failingWriter{}
	stream := &sliceStream{fragments: []string{"a", "b"}}

	res := Respond(w, nil, stream)

	assert.NoError(t, res.Err)
	assert.True(t, stream.closed)
	assert.Equal(t, 4, w.writes)
}
