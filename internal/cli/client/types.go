package client

// Document is a stored file as returned by the API.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

type DocumentList struct {
	Documents []Document `json:"documents"`
	Cursor    string     `json:"cursor,omitempty"`
	HasMore   bool       `json:"has_more"`
}

// Job is an index build job.
type Job struct {
	ID          string `json:"id"`
	FileID      string `json:"file_id"`
	Status      string `json:"status"`
	ChunkCount  int    `json:"chunk_count,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	CreatedAt   string `json:"created_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

// Done reports whether the job reached a final state.
func (j Job) Done() bool {
	return j.Status == "completed" || j.Status == "failed"
}

type Chunk struct {
	Index      int    `json:"index"`
	DocumentID string `json:"document_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type Answer struct {
	Answer  string  `json:"answer"`
	Sources []Chunk `json:"sources"`
}

type Turn struct {
	Role         string  `json:"role"`
	Content      string  `json:"content"`
	Sources      []Chunk `json:"sources,omitempty"`
	Error        string  `json:"error,omitempty"`
	DocumentName string  `json:"document_name"`
	CreatedAt    string  `json:"created_at"`
}

type History struct {
	Turns []Turn `json:"turns"`
}

type SessionStatus struct {
	Active       bool   `json:"active"`
	DocumentID   string `json:"document_id,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	TurnCount    int    `json:"turn_count"`
}

type Passage struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

type Passages struct {
	Passages []Passage `json:"passages"`
}
