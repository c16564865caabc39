package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the chunk storage the pipeline reads and writes. *ChunkStore
// implements it.
type Store interface {
	Put(fileID string, chunk Chunk)
	Get(fileID string) []Chunk
	Delete(fileID string)
}

// Extractor turns an uploaded document into raw text.
type Extractor interface {
	Supports(mimeType string) bool
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// CompletionParams are passed through to the completion service.
type CompletionParams struct {
	Temperature float64
	MaxTokens   int
}

// Completer starts a streamed completion over messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message, params CompletionParams) (FragmentStream, error)
}

type Options struct {
	WindowWords     int
	OverlapWords    int
	Budget          Budget
	ConsumeAfterUse bool
	Completion      CompletionParams
	// Timeout bounds one upstream completion; zero means no deadline.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		WindowWords:     DefaultWindowWords,
		OverlapWords:    DefaultOverlapWords,
		Budget:          DefaultBudget,
		ConsumeAfterUse: true,
		Completion:      CompletionParams{Temperature: 0.7, MaxTokens: 500},
		Timeout:         2 * time.Minute,
	}
}

// Pipeline wires upload ingestion and chat-turn context assembly around a
// Store, an Extractor and a Completer.
type Pipeline struct {
	store     Store
	extractor Extractor
	completer Completer
	opts      Options
	newID     func() string
}

// NewPipeline builds a pipeline. A nil completer leaves it unready: uploads
// work, chat turns fail with ErrUnreadyService.
func NewPipeline(store Store, extractor Extractor, completer Completer, opts Options) *Pipeline {
	return &Pipeline{
		store:     store,
		extractor: extractor,
		completer: completer,
		opts:      opts,
		newID:     uuid.NewString,
	}
}

func (p *Pipeline) Ready() bool {
	return p.completer != nil
}

// Upload ingests a batch. Every MIME type is checked before anything is
// extracted, so an unsupported file rejects the batch with nothing stored.
// Files are then ingested in order; on an extraction failure the refs of
// the files already stored are returned alongside the error.
func (p *Pipeline) Upload(ctx context.Context, uploads []Upload) ([]FileRef, error) {
	for _, u := range uploads {
		if !p.extractor.Supports(u.MIMEType) {
			slog.Warn("unsupported file type", "file", u.Name, "type", u.MIMEType)
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, u.MIMEType)
		}
	}

	refs := make([]FileRef, 0, len(uploads))
	for _, u := range uploads {
		ref, err := p.Ingest(ctx, u)
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Ingest extracts, chunks and stores a single document under a fresh id.
func (p *Pipeline) Ingest(ctx context.Context, u Upload) (FileRef, error) {
	fileID := p.newID()
	slog.Info("processing file", "file", u.Name, "type", u.MIMEType, "file_id", fileID)

	text, err := p.extractor.Extract(ctx, u.Data, u.MIMEType)
	if err != nil {
		slog.Error("text extraction failed", "file", u.Name, "error", err)
		return FileRef{}, fmt.Errorf("%w: processing file %s: %v", ErrExtraction, u.Name, err)
	}

	pieces := ChunkText(text, p.opts.WindowWords, p.opts.OverlapWords)
	stored := 0
	for _, content := range pieces {
		if strings.TrimSpace(content) == "" {
			continue
		}
		p.store.Put(fileID, Chunk{
			ID:         p.newID(),
			Content:    content,
			FileName:   u.Name,
			FileID:     fileID,
			ChunkIndex: stored,
		})
		stored++
	}
	slog.Info("stored chunks", "file", u.Name, "file_id", fileID, "extracted", len(pieces), "stored", stored)

	return FileRef{ID: fileID, Name: u.Name, NumChunks: stored}, nil
}

// Turn is a chat request with its document context resolved.
type Turn struct {
	Messages []Message
	Context  string
	Selected []ScoredChunk
	FileIDs  []string
}

// PrepareTurn cleans the latest user message, retrieves and ranks chunks of
// the referenced files, and prepends the assembled context as a system
// message. The request's conversation is not modified.
func (p *Pipeline) PrepareTurn(req ChatRequest) (Turn, error) {
	if err := req.Validate(); err != nil {
		return Turn{}, err
	}

	messages := make([]Message, len(req.Conversation))
	copy(messages, req.Conversation)
	query, keywords := AnalyzeQuery(messages)

	turn := Turn{Messages: messages}
	if len(req.FileRefs) == 0 {
		return turn, nil
	}
	slog.Info("extracted query keywords", "query", query, "keywords", len(keywords))

	var chunks []Chunk
	for _, ref := range req.FileRefs {
		turn.FileIDs = append(turn.FileIDs, ref.ID)
		found := p.store.Get(ref.ID)
		if len(found) == 0 {
			slog.Warn("file not found in chunk store, context will be missing", "file_id", ref.ID, "file", ref.Name)
			continue
		}
		slog.Info("found chunks", "file_id", ref.ID, "file", ref.Name, "chunks", len(found))
		chunks = append(chunks, found...)
	}

	ranked := RankChunks(ScoreChunks(chunks, keywords))
	turn.Selected = SelectChunks(ranked, p.opts.Budget)
	turn.Context = RenderContext(turn.Selected)
	slog.Info("assembled document context",
		"candidates", len(ranked), "selected", len(turn.Selected), "chars", len(turn.Context))

	if turn.Context != "" {
		turn.Messages = append([]Message{{Role: RoleSystem, Content: systemPrompt(turn.Context)}}, turn.Messages...)
	}
	return turn, nil
}

func systemPrompt(docContext string) string {
	return "The user has provided the following *relevant document context* related to their query. " +
		"Use this information to answer precisely:\n" + docContext +
		"\n\nBased on this context and our conversation history, provide a helpful and concise response."
}

// StreamTurn runs the completion for turn and relays it to w. When the
// stream finished cleanly and ConsumeAfterUse is set, the referenced files
// are deleted from the store.
func (p *Pipeline) StreamTurn(ctx context.Context, turn Turn, w io.Writer, flusher Flusher) (StreamResult, error) {
	if !p.Ready() {
		return StreamResult{}, ErrUnreadyService
	}
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	slog.Info("starting completion stream", "messages", len(turn.Messages))
	stream, err := p.completer.Complete(ctx, turn.Messages, p.opts.Completion)
	if err != nil {
		stream = failedStream{err: err}
	}
	res := Respond(w, flusher, stream)
	slog.Info("completion stream finished", "tokens", res.Tokens, "failed", res.Err != nil)

	if res.Err == nil && p.opts.ConsumeAfterUse {
		for _, id := range turn.FileIDs {
			slog.Info("deleting consumed file from chunk store", "file_id", id)
			p.store.Delete(id)
		}
	}
	return res, nil
}

// failedStream stands in for a completion that could not be started.
type failedStream struct{ err error }

func (s failedStream) Next() bool      { return false }
func (s failedStream) Current() string { return "" }
func (s failedStream) Err() error      { return s.err }
func (s failedStream) Close() error    { return nil }
