package protocol

import (
	"encoding/json"
	"testing"
)

// ---------------------------------------------------------------------------
// Test: Parsing a valid auth message
// ---------------------------------------------------------------------------

func TestParseClientMessage_Auth(t *testing.T) {
	input := []byte(`{"type":"auth","token":"eyJhbGciOi.example.token"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeAuth {
		t.Fatalf("expected type %q, got %q", TypeAuth, msgType)
	}

	am, ok := msg.(AuthMsg)
	if !ok {
		t.Fatalf("expected AuthMsg, got %T", msg)
	}
	if am.Token != "eyJhbGciOi.example.token" {
		t.Errorf("expected token to round-trip, got %q", am.Token)
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing a ping message
// ---------------------------------------------------------------------------

func TestParseClientMessage_Ping(t *testing.T) {
	msgType, msg, err := ParseClientMessage([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypePing {
		t.Fatalf("expected type %q, got %q", TypePing, msgType)
	}
	if _, ok := msg.(PingMsg); !ok {
		t.Fatalf("expected PingMsg, got %T", msg)
	}
}

// ---------------------------------------------------------------------------
// Test: Unknown and malformed messages are rejected
// ---------------------------------------------------------------------------

func TestParseClientMessage_UnknownType(t *testing.T) {
	if _, _, err := ParseClientMessage([]byte(`{"type":"subscribe"}`)); err == nil {
		t.Fatal("expected error for unknown message type")
	}
}

func TestParseClientMessage_ServerOnlyType(t *testing.T) {
	// Clients must not be able to send server-only types.
	if _, _, err := ParseClientMessage([]byte(`{"type":"auth_ok","user_id":"x"}`)); err == nil {
		t.Fatal("expected error for server-only message type")
	}
}

func TestParseClientMessage_MissingType(t *testing.T) {
	if _, _, err := ParseClientMessage([]byte(`{"token":"abc"}`)); err == nil {
		t.Fatal("expected error for missing type field")
	}
}

func TestParseClientMessage_InvalidJSON(t *testing.T) {
	if _, _, err := ParseClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// ---------------------------------------------------------------------------
// Test: Creating server messages
// ---------------------------------------------------------------------------

func TestNewServerMessage_AuthOK(t *testing.T) {
	data, err := NewServerMessage(TypeAuthOK, AuthOKMsg{UserID: "user-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["type"] != TypeAuthOK {
		t.Errorf("expected type %q, got %v", TypeAuthOK, decoded["type"])
	}
	if decoded["user_id"] != "user-123" {
		t.Errorf("expected user_id %q, got %v", "user-123", decoded["user_id"])
	}
}

func TestNewServerMessage_Event(t *testing.T) {
	payload := EventMsg{Payload: json.RawMessage(`{"kind":"match_found","ts":1}`)}
	data, err := NewServerMessage(TypeEvent, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			Kind string `json:"kind"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Type != TypeEvent {
		t.Errorf("expected type %q, got %q", TypeEvent, decoded.Type)
	}
	if decoded.Payload.Kind != "match_found" {
		t.Errorf("expected inner payload to survive, got kind %q", decoded.Payload.Kind)
	}
}

func TestNewServerMessage_TypeOverridesPayloadField(t *testing.T) {
	// Even if the payload struct carries its own type value, the injected
	// one wins.
	data, err := NewServerMessage(TypePong, PongMsg{Type: "spoofed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["type"] != TypePong {
		t.Errorf("expected type %q, got %v", TypePong, decoded["type"])
	}
}
