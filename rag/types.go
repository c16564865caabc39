package rag

import (
	"encoding/json"
	"fmt"
)

// Chunk of an uploaded document
type Chunk struct {
	ID         string `json:"chunk_id"`
	Content    string `json:"content"`
	FileName   string `json:"file_name"`
	FileID     string `json:"file_id"`
	ChunkIndex int    `json:"chunk_index"`
}

// FileRef is handed back after upload and echoed by the caller on chat turns.
type FileRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NumChunks int    `json:"num_chunks"`
}

// ScoredChunk only lives for the duration of one chat request.
type ScoredChunk struct {
	Score int
	Chunk Chunk
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one turn of the conversation sent to the completion service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON rejects unknown roles and entries missing role or content.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    *string `json:"role"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if raw.Role == nil || raw.Content == nil {
		return fmt.Errorf("%w: message needs both role and content", ErrMalformedInput)
	}
	role := Role(*raw.Role)
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrMalformedInput, *raw.Role)
	}
	m.Role = role
	m.Content = *raw.Content
	return nil
}

// ChatRequest is the inbound body of a chat turn.
type ChatRequest struct {
	Conversation []Message `json:"conversation"`
	FileRefs     []FileRef `json:"fileRefs"`
}

// Validate checks the parts json decoding cannot.
func (r *ChatRequest) Validate() error {
	if r.Conversation == nil {
		return fmt.Errorf("%w: conversation is required", ErrMalformedInput)
	}
	return nil
}

// UploadResponse is the outbound body of an upload.
type UploadResponse struct {
	Message  string    `json:"message"`
	FileRefs []FileRef `json:"fileRefs"`
}

// Upload is one named payload of an upload request.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}
