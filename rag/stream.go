package rag

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// FragmentStream iterates the text deltas of an upstream completion.
// Next blocks until a delta is available and returns false once the stream
// is exhausted or failed; Err then tells the two apart.
type FragmentStream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

type FrameKind int

const (
	FrameStart FrameKind = iota
	FrameToken
	FrameError
	FrameEnd
)

// Frame is one unit of the outbound event stream.
type Frame struct {
	Kind    FrameKind
	Token   string
	Message string
}

// EncodeFrame renders f in the event-stream wire format, blank-line terminated.
func EncodeFrame(f Frame) []byte {
	switch f.Kind {
	case FrameStart:
		return []byte("event: start\ndata: {}\n\n")
	case FrameToken:
		return []byte(fmt.Sprintf("data: {\"token\": %s}\n\n", quoteJSON(f.Token)))
	case FrameError:
		return []byte(fmt.Sprintf("event: error\ndata: {\"message\": %s}\n\n", quoteJSON(f.Message)))
	default:
		return []byte("event: end\ndata: {}\n\n")
	}
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Flusher pushes buffered bytes to the client.
type Flusher interface {
	Flush()
}

// StreamResult summarizes one relayed completion.
type StreamResult struct {
	Tokens int
	// Err is the upstream failure, wrapped in ErrUpstreamStream, or nil.
	Err error
}

// Respond relays stream to w as start, token*, [error], end frames, flushing
// after every frame. The end frame is always written. Write failures (a gone
// client) are logged and do not stop the relay from draining its upstream.
func Respond(w io.Writer, flusher Flusher, stream FragmentStream) StreamResult {
	emit := func(f Frame) {
		if _, err := w.Write(EncodeFrame(f)); err != nil {
			slog.Debug("writing frame", "kind", f.Kind, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	var res StreamResult
	emit(Frame{Kind: FrameStart})
	defer emit(Frame{Kind: FrameEnd})

	if stream == nil {
		res.Err = fmt.Errorf("%w: no stream", ErrUpstreamStream)
		emit(Frame{Kind: FrameError, Message: "Streaming error: no stream"})
		return res
	}
	defer stream.Close()

	for stream.Next() {
		token := stream.Current()
		if token == "" {
			continue
		}
		res.Tokens++
		emit(Frame{Kind: FrameToken, Token: token})
		slog.Debug("streamed token", "token", token)
	}
	if err := stream.Err(); err != nil {
		slog.Error("error during streaming response", "error", err)
		res.Err = fmt.Errorf("%w: %w", ErrUpstreamStream, err)
		emit(Frame{Kind: FrameError, Message: "Streaming error: " + err.Error()})
	}
	return res
}
