package promptmodel

// Role is the speaker of a Message. This is a superset of any single
// provider's roles; each provider adapter filters and remaps the roles it
// does not recognize.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
	RoleModel     Role = "model"
	RoleFunction  Role = "function"
)

// Message is an immutable (from the caller's perspective) (role, content)
// pair. Mutating operations on a Prompt return a new Message unless bind_mut
// semantics are explicitly requested via Prompt.BindMut.
type Message struct {
	Role  Role
	Parts []ContentPart
}

// TextMessage builds a single-part text Message with the given role.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []ContentPart{TextPart{Text: text}}}
}

// UserMessage builds a user-role text Message.
func UserMessage(text string) Message { return TextMessage(RoleUser, text) }

// SystemMessage builds a system-role text Message.
func SystemMessage(text string) Message { return TextMessage(RoleSystem, text) }

// clone returns a deep copy of the message; ContentPart values are plain
// structs (or hold their own byte slices), so a shallow copy of the slice
// plus an explicit copy of any BinaryPart payload is sufficient.
func (m Message) clone() Message {
	parts := make([]ContentPart, len(m.Parts))
	for i, p := range m.Parts {
		if b, ok := p.(BinaryPart); ok {
			data := make([]byte, len(b.Data))
			copy(data, b.Data)
			parts[i] = BinaryPart{Data: data, MediaType: b.MediaType}
			continue
		}
		parts[i] = p
	}
	return Message{Role: m.Role, Parts: parts}
}

// Text concatenates every TextPart in the message, in order. Non-text parts
// are skipped. Most messages carry a single text part; this is a
// convenience accessor for that common case and for the binding engine.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}
