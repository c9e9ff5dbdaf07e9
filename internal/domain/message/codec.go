package message

import (
	"encoding/json"
	"strings"
)

// SchemaVersion tags the persisted parts envelope. Bump when the part
// union changes incompatibly.
const SchemaVersion = 1

type partsEnvelope struct {
	Schema int             `json:"schema"`
	Parts  json.RawMessage `json:"parts"`
}

// EncodeParts serializes a part sequence into the versioned envelope that
// is stored in the persisted message's content field.
func EncodeParts(parts []Part) (string, error) {
	if parts == nil {
		parts = []Part{}
	}
	rawParts, err := json.Marshal(parts)
	if err != nil {
		return "", err
	}
	envelope, err := json.Marshal(partsEnvelope{Schema: SchemaVersion, Parts: rawParts})
	if err != nil {
		return "", err
	}
	return string(envelope), nil
}

// DecodeContent turns persisted content back into a part sequence. It
// accepts the versioned envelope, a legacy bare array of tagged objects,
// or anything else as literal text. Parse failures and shape-validation
// failures both degrade to a single text part carrying the raw content, so
// decoding never errors.
func DecodeContent(content string) []Part {
	trimmed := strings.TrimSpace(content)

	if strings.HasPrefix(trimmed, "{") {
		var envelope partsEnvelope
		if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil &&
			envelope.Schema >= 1 && len(envelope.Parts) > 0 {
			if parts, ok := decodePartList(envelope.Parts); ok {
				return parts
			}
		}
		return []Part{NewTextPart(content)}
	}

	// Legacy encoding: a bare JSON array where every element carries a
	// type tag.
	if strings.HasPrefix(trimmed, "[") {
		if parts, ok := decodePartList(json.RawMessage(trimmed)); ok {
			return parts
		}
	}

	return []Part{NewTextPart(content)}
}

func decodePartList(raw json.RawMessage) ([]Part, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, false
	}

	parts := make([]Part, 0, len(elements))
	for _, element := range elements {
		var m map[string]any
		if err := json.Unmarshal(element, &m); err != nil {
			return nil, false
		}
		if _, ok := m["type"].(string); !ok {
			return nil, false
		}
		var p Part
		if err := json.Unmarshal(element, &p); err != nil {
			return nil, false
		}
		parts = append(parts, p)
	}
	return parts, true
}
