// Package heartbeat decodes raw heartbeat payloads and validates them into registry records.
//
// Decoding never trusts the payload shape: every field is optional at the JSON level so that
// a missing field can be told apart from a zero value. Validation is a pure function and runs
// before the registry is touched.
package heartbeat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// RawHeartbeat is the untrusted heartbeat body as received from the network.
type RawHeartbeat struct {
	ID       json.RawMessage `json:"id"`
	Type     *string         `json:"type"`
	Hostname *string         `json:"hostname"`
	MapName  *string         `json:"map_name"`
	GameMode *string         `json:"game_mode"`
	Port     *int            `json:"port"`
	Players  *[]RawPlayer    `json:"players"`

	// IP is decoded only to be discarded, the stored address always comes from the transport.
	IP json.RawMessage `json:"ip"`
}

// RawPlayer is an untrusted entry of the players array.
type RawPlayer struct {
	Name  *string `json:"name"`
	Gen   *int    `json:"gen"`
	Level *int    `json:"level"`
	Team  *int    `json:"team"`
}

// ValidationError reports why a heartbeat was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid heartbeat: " + e.Reason
	}

	return fmt.Sprintf("invalid heartbeat: %s: %s", e.Field, e.Reason)
}

// isValidationError reports whether err is (or wraps) a *ValidationError.
func isValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Decode reads a single JSON object from r. Anything but whitespace after the object is rejected.
// Any decoding failure, including a field of the wrong JSON type, is returned as *ValidationError.
func Decode(r io.Reader) (RawHeartbeat, error) {
	var raw RawHeartbeat

	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return RawHeartbeat{}, &ValidationError{Field: field, Reason: "expected " + typeErr.Type.String()}
		}

		return RawHeartbeat{}, &ValidationError{Reason: err.Error()}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return RawHeartbeat{}, &ValidationError{Field: "body", Reason: "unexpected data after object"}
	}

	return raw, nil
}

// decodeBytes is Decode for an in-memory body.
func decodeBytes(b []byte) (RawHeartbeat, error) {
	return Decode(bytes.NewReader(b))
}

// normalizeID turns the raw id into its textual form.
// Strings are unquoted and kept verbatim, numbers keep their literal text.
// Null, absence and the empty string mean no id.
func normalizeID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", &ValidationError{Field: "id", Reason: err.Error()}
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", &ValidationError{Field: "id", Reason: err.Error()}
		}
		return n.String(), nil
	}

	return "", &ValidationError{Field: "id", Reason: "expected string or number"}
}
