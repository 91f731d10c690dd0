package discord

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// The gateway's wire format is schema-soft: a field can be required,
// optional with a default, required but nullable, or optional and nullable,
// and the distinction differs per message. Every entity decoder applies one
// of the four helpers below per field so the null-vs-absent semantics stay
// explicit. A required violation fails the whole decode with a *DecodeError
// naming the entity and field; the optional policies never fail on absence,
// which is what keeps partial decode of forward-incompatible payloads
// working.

// jsonObject is a shallow split of a JSON object into raw fields.
type jsonObject map[string]json.RawMessage

func decodeObject(data []byte, entity string) (jsonObject, error) {
	var obj jsonObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &DecodeError{Entity: entity, Field: "", Reason: "not a JSON object"}
	}
	return obj, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// required: the key must exist and be non-null.
func required(obj jsonObject, entity, key string, dst any) error {
	raw, ok := obj[key]
	if !ok {
		return &DecodeError{Entity: entity, Field: key, Reason: "missing required field"}
	}
	if isNull(raw) {
		return &DecodeError{Entity: entity, Field: key, Reason: "required field is null"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Entity: entity, Field: key, Reason: err.Error()}
	}
	return nil
}

// optional: an absent or null key leaves dst untouched.
func optional(obj jsonObject, entity, key string, dst any) error {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Entity: entity, Field: key, Reason: err.Error()}
	}
	return nil
}

// requiredNullable: the key must exist but may be null; null leaves dst at
// its unset sentinel, which is distinct from absence (an error).
func requiredNullable(obj jsonObject, entity, key string, dst any) error {
	raw, ok := obj[key]
	if !ok {
		return &DecodeError{Entity: entity, Field: key, Reason: "missing required field"}
	}
	if isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Entity: entity, Field: key, Reason: err.Error()}
	}
	return nil
}

// optionalNullable: absent and null both leave dst at its unset sentinel.
func optionalNullable(obj jsonObject, entity, key string, dst any) error {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Entity: entity, Field: key, Reason: err.Error()}
	}
	return nil
}

// requiredUintString decodes a numeric field transmitted as a string to
// avoid integer precision loss (permission bitsets). Parse failure is a
// decode error.
func requiredUintString(obj jsonObject, entity, key string, dst *uint64) error {
	var str string
	if err := required(obj, entity, key, &str); err != nil {
		return err
	}
	n, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return &DecodeError{Entity: entity, Field: key, Reason: "not an unsigned decimal string"}
	}
	*dst = n
	return nil
}
