package core

// Finish reasons reported by completion providers.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// CompletionRequest is provider-agnostic: the fixed system instruction,
// the prior transcript and the new user message.
type CompletionRequest struct {
	System  string
	History []Message
	Message string
}

// Messages flattens the request into the ordered wire message list.
func (r CompletionRequest) Messages() []Message {
	out := make([]Message, 0, len(r.History)+2)
	if r.System != "" {
		out = append(out, Message{Role: RoleSystem, Content: r.System})
	}
	for _, m := range r.History {
		switch m.Role {
		case RoleUser, RoleAssistant:
			out = append(out, Message{Role: m.Role, Content: m.Content})
		}
	}
	return append(out, Message{Role: RoleUser, Content: r.Message})
}

// Completion is a complete, validated reply.
type Completion struct {
	Text         string
	FinishReason string
}

// Chunk is one increment of a streamed reply. A chunk with Err set is
// always the last value on the channel.
type Chunk struct {
	Text         string
	FinishReason string
	Err          error
}
