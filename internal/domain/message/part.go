package message

import (
	"encoding/json"
)

// ===============================================
// Part Types and Enums
// ===============================================

// PartType is the discriminant tag of a message part.
type PartType string

const (
	PartTypeText      PartType = "text"
	PartTypeReasoning PartType = "reasoning"
	PartTypeToolCall  PartType = "tool-call"
	PartTypeImage     PartType = "image"
	PartTypeFile      PartType = "file"
	PartTypeSourceURL PartType = "source-url"
)

// ToolState tracks a tool call across its lifecycle.
type ToolState string

const (
	ToolStateInputStreaming ToolState = "input-streaming"
	ToolStateInputAvailable ToolState = "input-available"
	ToolStateOutputReady    ToolState = "output-available"
	ToolStateOutputError    ToolState = "output-error"
)

func ValidateToolState(input string) bool {
	switch ToolState(input) {
	case ToolStateInputStreaming, ToolStateInputAvailable,
		ToolStateOutputReady, ToolStateOutputError:
		return true
	default:
		return false
	}
}

// ===============================================
// Part Structure
// ===============================================

// Part is one segment of a message: plain text, model reasoning, a tool
// call with its result, or an attachment reference. Parts with tags this
// package does not recognize keep their original JSON and round-trip
// unchanged; they narrow to nothing.
type Part struct {
	Type PartType `json:"type"`

	// text, reasoning
	Text string `json:"text,omitempty"`

	// tool-call
	ToolName  string          `json:"toolName,omitempty"`
	State     ToolState       `json:"state,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	ErrorText string          `json:"errorText,omitempty"`

	// image, file, source-url
	URL       string `json:"url,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Title     string `json:"title,omitempty"`

	// Original JSON for unrecognized tags, kept for round-trip.
	raw json.RawMessage
}

// NewTextPart builds a text part.
func NewTextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// NewReasoningPart builds a reasoning part.
func NewReasoningPart(text string) Part {
	return Part{Type: PartTypeReasoning, Text: text}
}

// IsKnownTag reports whether the tag is one this package can narrow.
func IsKnownTag(tag string) bool {
	switch PartType(tag) {
	case PartTypeText, PartTypeReasoning, PartTypeToolCall,
		PartTypeImage, PartTypeFile, PartTypeSourceURL:
		return true
	default:
		return false
	}
}

// IsUnknown reports whether the part carries an unrecognized tag.
func (p Part) IsUnknown() bool {
	return p.raw != nil
}

// IsText reports whether the part is a recognized text part.
func (p Part) IsText() bool { return p.Type == PartTypeText && p.raw == nil }

// IsReasoning reports whether the part is a recognized reasoning part.
func (p Part) IsReasoning() bool { return p.Type == PartTypeReasoning && p.raw == nil }

// IsToolCall reports whether the part is a recognized tool-call part.
func (p Part) IsToolCall() bool { return p.Type == PartTypeToolCall && p.raw == nil }

// IsImage reports whether the part is a recognized image part.
func (p Part) IsImage() bool { return p.Type == PartTypeImage && p.raw == nil }

// IsFile reports whether the part is a recognized file part.
func (p Part) IsFile() bool { return p.Type == PartTypeFile && p.raw == nil }

// IsSourceURL reports whether the part is a recognized source-url part.
func (p Part) IsSourceURL() bool { return p.Type == PartTypeSourceURL && p.raw == nil }

// ===============================================
// Shape guards over dynamic values
// ===============================================
//
// The guards confirm a decoded JSON object is structurally valid for its
// tag before the codec narrows it: object shape, matching discriminant,
// required fields present with the right dynamic type.

// ValidTextPart checks the text tag shape.
func ValidTextPart(m map[string]any) bool {
	if !tagIs(m, PartTypeText) {
		return false
	}
	_, ok := m["text"].(string)
	return ok
}

// ValidReasoningPart checks the reasoning tag shape.
func ValidReasoningPart(m map[string]any) bool {
	if !tagIs(m, PartTypeReasoning) {
		return false
	}
	_, ok := m["text"].(string)
	return ok
}

// ValidToolCallPart checks the tool-call tag shape. Input, output and
// errorText are optional; the tool name and a recognized state are not.
func ValidToolCallPart(m map[string]any) bool {
	if !tagIs(m, PartTypeToolCall) {
		return false
	}
	name, ok := m["toolName"].(string)
	if !ok || name == "" {
		return false
	}
	state, ok := m["state"].(string)
	return ok && ValidateToolState(state)
}

// ValidImagePart checks the image tag shape. The payload may arrive under
// either "image" or "url".
func ValidImagePart(m map[string]any) bool {
	if !tagIs(m, PartTypeImage) {
		return false
	}
	if s, ok := m["image"].(string); ok && s != "" {
		return true
	}
	s, ok := m["url"].(string)
	return ok && s != ""
}

// ValidFilePart checks the file tag shape.
func ValidFilePart(m map[string]any) bool {
	if !tagIs(m, PartTypeFile) {
		return false
	}
	u, ok := m["url"].(string)
	if !ok || u == "" {
		return false
	}
	_, ok = m["mediaType"].(string)
	return ok
}

// ValidSourceURLPart checks the source-url tag shape.
func ValidSourceURLPart(m map[string]any) bool {
	if !tagIs(m, PartTypeSourceURL) {
		return false
	}
	u, ok := m["url"].(string)
	return ok && u != ""
}

// ValidPart dispatches to the guard for the object's tag. Unknown tags are
// valid by definition: they pass through unparsed.
func ValidPart(m map[string]any) bool {
	tag, ok := m["type"].(string)
	if !ok || tag == "" {
		return false
	}
	switch PartType(tag) {
	case PartTypeText:
		return ValidTextPart(m)
	case PartTypeReasoning:
		return ValidReasoningPart(m)
	case PartTypeToolCall:
		return ValidToolCallPart(m)
	case PartTypeImage:
		return ValidImagePart(m)
	case PartTypeFile:
		return ValidFilePart(m)
	case PartTypeSourceURL:
		return ValidSourceURLPart(m)
	default:
		return true
	}
}

func tagIs(m map[string]any, t PartType) bool {
	tag, ok := m["type"].(string)
	return ok && PartType(tag) == t
}

// ===============================================
// JSON round-trip
// ===============================================

type partJSON struct {
	Type      string          `json:"type"`
	Text      *string         `json:"text,omitempty"`
	ToolName  string          `json:"toolName,omitempty"`
	State     ToolState       `json:"state,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	ErrorText string          `json:"errorText,omitempty"`
	URL       string          `json:"url,omitempty"`
	MimeType  string          `json:"mimeType,omitempty"`
	MediaType string          `json:"mediaType,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	Title     string          `json:"title,omitempty"`
}

// MarshalJSON emits the original bytes for unknown tags and a minimal
// tagged object for recognized ones.
func (p Part) MarshalJSON() ([]byte, error) {
	if p.raw != nil {
		return p.raw, nil
	}

	out := partJSON{Type: string(p.Type)}
	switch p.Type {
	case PartTypeText, PartTypeReasoning:
		text := p.Text
		out.Text = &text
	case PartTypeToolCall:
		out.ToolName = p.ToolName
		out.State = p.State
		out.Input = p.Input
		out.Output = p.Output
		out.ErrorText = p.ErrorText
	case PartTypeImage:
		out.URL = p.URL
		out.MimeType = p.MimeType
	case PartTypeFile:
		out.URL = p.URL
		out.MediaType = p.MediaType
		out.Filename = p.Filename
	case PartTypeSourceURL:
		out.URL = p.URL
		out.Title = p.Title
	}
	return json.Marshal(out)
}

// UnmarshalJSON validates the shape for recognized tags and preserves
// unrecognized ones verbatim. A recognized tag with an invalid shape is an
// error; the codec decides whether that degrades the whole content.
func (p *Part) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	tag, _ := m["type"].(string)
	if !IsKnownTag(tag) {
		// Preserve unchanged. Keep a compact copy so equality is stable.
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*p = Part{Type: PartType(tag), raw: raw}
		return nil
	}

	if !ValidPart(m) {
		return &InvalidPartError{Tag: tag}
	}

	var decoded partJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*p = Part{Type: PartType(decoded.Type)}
	switch p.Type {
	case PartTypeText, PartTypeReasoning:
		if decoded.Text != nil {
			p.Text = *decoded.Text
		}
	case PartTypeToolCall:
		p.ToolName = decoded.ToolName
		p.State = decoded.State
		p.Input = decoded.Input
		p.Output = decoded.Output
		p.ErrorText = decoded.ErrorText
	case PartTypeImage:
		p.URL = decoded.URL
		if p.URL == "" {
			if s, ok := m["image"].(string); ok {
				p.URL = s
			}
		}
		p.MimeType = decoded.MimeType
	case PartTypeFile:
		p.URL = decoded.URL
		p.MediaType = decoded.MediaType
		p.Filename = decoded.Filename
	case PartTypeSourceURL:
		p.URL = decoded.URL
		p.Title = decoded.Title
	}
	return nil
}

// InvalidPartError marks a recognized tag whose required fields are missing
// or mistyped.
type InvalidPartError struct {
	Tag string
}

func (e *InvalidPartError) Error() string {
	return "invalid shape for part tag: " + e.Tag
}

// PartsEqual compares two part sequences by serialized form.
func PartsEqual(a, b []Part) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ab, err := json.Marshal(a[i])
		if err != nil {
			return false
		}
		bb, err := json.Marshal(b[i])
		if err != nil {
			return false
		}
		if string(ab) != string(bb) {
			return false
		}
	}
	return true
}
