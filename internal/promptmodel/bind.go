package promptmodel

import (
	"encoding/json"
	"strings"
)

// BindWarning describes a placeholder that survived a Bind call unresolved,
// either because the caller supplied no value for it or because its syntax
// was malformed (an unterminated "${").
type BindWarning struct {
	Name string
	Raw  string
}

// valueText renders value for substitution: a string is inserted verbatim
// without quotes, any other value is JSON-encoded.
func valueText(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Bind returns a new Prompt with every "${name}" placeholder in its user
// messages and system instructions replaced by value's substitution text.
// The receiver is left untouched. Use BindMut to mutate in place.
func (p *Prompt) Bind(name string, value any) *Prompt {
	cp := p.DeepCopy()
	cp.BindMut(name, value)
	return cp
}

// BindMut substitutes a single placeholder in place and returns the
// receiver. Any residual unresolved placeholder is recorded in Warnings(),
// not returned as an error: a missing or malformed placeholder is a
// warning-class condition, never a construction failure.
func (p *Prompt) BindMut(name string, value any) *Prompt {
	text, err := valueText(value)
	if err != nil {
		text = ""
	}
	values := map[string]string{name: text}
	p.applyBind(values)
	return p
}

// BindAll applies every (name, value) pair in values, in map-iteration
// order. Because distinct placeholder names never interact, the final text
// is identical regardless of iteration order. Returns the receiver.
func (p *Prompt) BindAll(values map[string]any) *Prompt {
	rendered := make(map[string]string, len(values))
	for name, value := range values {
		text, err := valueText(value)
		if err != nil {
			continue
		}
		rendered[name] = text
	}
	p.applyBind(rendered)
	return p
}

func (p *Prompt) applyBind(values map[string]string) {
	var warnings []BindWarning
	p.userMessages, warnings = bindMessages(p.userMessages, values, warnings)
	p.systemInstructions, warnings = bindMessages(p.systemInstructions, values, warnings)
	p.lastWarnings = warnings
}

// Warnings returns the placeholders left unresolved by the most recent Bind,
// BindMut, or BindAll call.
func (p *Prompt) Warnings() []BindWarning { return p.lastWarnings }

// Reset restores both the user messages and system instructions to their
// as-constructed, unbound form. applyBind rewrites placeholders in both
// slices, so both need restoring.
func (p *Prompt) Reset() {
	p.userMessages = cloneMessages(p.original)
	p.systemInstructions = cloneMessages(p.originalSystemInstructions)
}

func bindMessages(msgs []Message, values map[string]string, warnings []BindWarning) ([]Message, []BindWarning) {
	for i, m := range msgs {
		for j, part := range m.Parts {
			t, ok := part.(TextPart)
			if !ok {
				continue
			}
			bound, w := bindText(t.Text, values)
			warnings = append(warnings, w...)
			msgs[i].Parts[j] = TextPart{Text: bound}
		}
	}
	return msgs, warnings
}

// bindText is a single-pass, non-recursive scanner for ${name} placeholders.
// It never backtracks and never allocates when the input contains no "${"
// at all (the zero-copy fast path). name is scanned as a maximal run of
// characters other than '}'; an empty name or a "${" with no closing '}'
// is left verbatim in the output and reported as a warning.
func bindText(text string, values map[string]string) (string, []BindWarning) {
	start := strings.Index(text, "${")
	if start < 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	var warnings []BindWarning

	i := 0
	for {
		open := strings.Index(text[i:], "${")
		if open < 0 {
			b.WriteString(text[i:])
			break
		}
		open += i
		b.WriteString(text[i:open])

		closeIdx := strings.IndexByte(text[open+2:], '}')
		if closeIdx < 0 {
			// Unterminated placeholder: emit the rest verbatim and stop.
			raw := text[open:]
			b.WriteString(raw)
			warnings = append(warnings, BindWarning{Name: "", Raw: raw})
			break
		}
		closeIdx += open + 2

		name := text[open+2 : closeIdx]
		raw := text[open : closeIdx+1]
		if name == "" {
			b.WriteString(raw)
			warnings = append(warnings, BindWarning{Name: name, Raw: raw})
			i = closeIdx + 1
			continue
		}

		val, ok := values[name]
		if !ok {
			b.WriteString(raw)
			warnings = append(warnings, BindWarning{Name: name, Raw: raw})
			i = closeIdx + 1
			continue
		}
		b.WriteString(val)
		i = closeIdx + 1
	}

	return b.String(), warnings
}
