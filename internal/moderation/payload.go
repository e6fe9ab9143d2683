package moderation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/AydinDzaki/NusaGo/internal/listing"
)

// DecodePayload builds the payload variant for t from its JSON form.
func DecodePayload(t Type, raw []byte) (Payload, error) {
	raw = bytes.TrimSpace(raw)
	switch t {
	case TypeAdd:
		var d listing.Draft
		if err := decodeStrict(raw, &d); err != nil {
			return nil, err
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSubmissionShape, err)
		}
		return AddPayload{Draft: d}, nil
	case TypeEdit:
		var p listing.Patch
		if err := decodeStrict(raw, &p); err != nil {
			return nil, err
		}
		if p.Empty() {
			return nil, fmt.Errorf("%w: edit changes no fields", ErrInvalidSubmissionShape)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSubmissionShape, err)
		}
		return EditPayload{Patch: p}, nil
	case TypeDelete:
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return DeletePayload{}, nil
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSubmissionShape, err)
		}
		if len(fields) > 0 {
			return nil, fmt.Errorf("%w: delete carries no fields", ErrInvalidSubmissionShape)
		}
		return DeletePayload{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSubmissionShape, t)
	}
}

func decodeStrict(raw []byte, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: payload required", ErrInvalidSubmissionShape)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmissionShape, err)
	}
	return nil
}

func encodePayload(p Payload) ([]byte, error) {
	if _, ok := p.(DeletePayload); ok {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}
