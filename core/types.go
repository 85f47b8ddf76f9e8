package core

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsUser reports whether the role is user-originated. Clients use
// "human" and "user" interchangeably.
func (r Role) IsUser() bool {
	return r == RoleUser || r == "human"
}

// Message is a single (role, content) entry in a conversation log.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Document is a raw fetched source document. Immutable once fetched.
type Document struct {
	// Source is the origin identifier: a URL or a file reference.
	Source string

	// Content is the extracted text. Whatever the fetch layer produced;
	// the pipeline does not re-clean it.
	Content string
}

// Chunk is a bounded-size segment of a Document, the unit indexed for
// retrieval. Seq is the chunk's position within its source document.
type Chunk struct {
	Source  string
	Seq     int
	Content string
}
