package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ReadyMarker is the unsolicited frame an engine posts once it can accept
// requests.
var ReadyMarker = []byte(`"ready"`)

// IsReady reports whether frame is the readiness marker.
func IsReady(frame []byte) bool {
	return bytes.Equal(bytes.TrimSpace(frame), ReadyMarker)
}

// Request is the payload half of a request frame.
type Request struct {
	Fn   string            `json:"fn"`
	Args []json.RawMessage `json:"args"`
}

// EngineError carries an error reported by the engine for one request.
type EngineError struct {
	Message string
}

func (e *EngineError) Error() string {
	return "engine: " + e.Message
}

// EncodeRequest builds the frame [id, payload].
func EncodeRequest(id uint64, payload any) ([]byte, error) {
	frame, err := json.Marshal([]any{id, payload})
	if err != nil {
		return nil, fmt.Errorf("encode request %d: %w", id, err)
	}
	return frame, nil
}

// DecodeRequest splits a request frame into its id and {fn, args} payload.
func DecodeRequest(frame []byte) (uint64, Request, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(frame, &parts); err != nil {
		return 0, Request{}, fmt.Errorf("decode request: %w", err)
	}
	if len(parts) < 2 {
		return 0, Request{}, fmt.Errorf("decode request: expected [id, payload], got %d elements", len(parts))
	}

	var id uint64
	if err := json.Unmarshal(parts[0], &id); err != nil {
		return 0, Request{}, fmt.Errorf("decode request id: %w", err)
	}
	var req Request
	if err := json.Unmarshal(parts[1], &req); err != nil {
		return id, Request{}, fmt.Errorf("decode request payload: %w", err)
	}
	return id, req, nil
}

// EncodeReply builds the frame [id, err|null, result].
func EncodeReply(id uint64, replyErr error, result any) ([]byte, error) {
	var errPart any
	if replyErr != nil {
		errPart = replyErr.Error()
		result = nil
	}
	frame, err := json.Marshal([]any{id, errPart, result})
	if err != nil {
		return nil, fmt.Errorf("encode reply %d: %w", id, err)
	}
	return frame, nil
}

type reply struct {
	id     uint64
	result json.RawMessage
	err    error
}

// decodeReply parses [id, err|null, result]. ok is false for frames that
// are not replies.
func decodeReply(frame []byte) (reply, bool) {
	var parts []json.RawMessage
	if err := json.Unmarshal(frame, &parts); err != nil || len(parts) < 2 {
		return reply{}, false
	}

	var r reply
	if err := json.Unmarshal(parts[0], &r.id); err != nil {
		return reply{}, false
	}
	if msg, isErr := engineErrorMessage(parts[1]); isErr {
		r.err = &EngineError{Message: msg}
		return r, true
	}
	if len(parts) > 2 {
		r.result = parts[2]
	} else {
		r.result = json.RawMessage("null")
	}
	return r, true
}

func engineErrorMessage(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message, true
	}
	return string(raw), true
}
