package core

const (
	PortalName          = "DocPortal"
	PortalUserAgent     = "DocPortal/0.1"
	PortalRepositoryURL = "https://github.com/sandevgo/docportal"
	PortalVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry. Values are never mutated after append.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Rule maps a keyword trigger to a canned reply.
type Rule struct {
	Trigger string `yaml:"trigger" json:"trigger"`
	Reply   string `yaml:"reply" json:"reply"`
}

// Model describes a model offered by a completion provider.
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
}

// Document is raw text handed to the retrieval collaborator.
type Document struct {
	Name string
	Text string
}

// ContextHandle identifies an ingested document inside the retrieval collaborator.
type ContextHandle string

// Passage is a piece of an ingested document relevant to a question.
type Passage struct {
	Text  string
	Index int
	Score float32
}
