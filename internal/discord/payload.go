package discord

import (
	"encoding/json"
)

// GatewayOp identifies the category of a gateway envelope.
type GatewayOp int

// Gateway opcodes.
const (
	OpDispatch            GatewayOp = 0  // Receive: event dispatch
	OpHeartbeat           GatewayOp = 1  // Send/Receive: keepalive
	OpIdentify            GatewayOp = 2  // Send: begin session
	OpPresenceUpdate      GatewayOp = 3  // Send: presence update
	OpVoiceStateUpdate    GatewayOp = 4  // Send: voice state update
	OpResume              GatewayOp = 6  // Send: resume session
	OpReconnect           GatewayOp = 7  // Receive: reconnect request
	OpRequestGuildMembers GatewayOp = 8  // Send: request guild members
	OpInvalidSession      GatewayOp = 9  // Receive: session invalidated
	OpHello               GatewayOp = 10 // Receive: heartbeat interval
	OpHeartbeatACK        GatewayOp = 11 // Receive: heartbeat acknowledged
	OpLazyLoadRequest     GatewayOp = 14 // Send: member list subscription
)

// GatewayPayload is the outer envelope wrapping every gateway message. D is
// kept raw so dispatch can route it to exactly one typed decoder by
// (opcode, event type).
type GatewayPayload struct {
	Op GatewayOp       `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s,omitempty"`
	T  *string         `json:"t,omitempty"`
}

// EventType returns the dispatch event name, or "" for non-dispatch
// envelopes.
func (p *GatewayPayload) EventType() string {
	if p.T == nil {
		return ""
	}
	return *p.T
}

// ParseGatewayPayload decodes the envelope of an inbound frame. The opcode
// and payload keys are mandatory on every frame (the payload itself may be
// null); the event type is extracted only when present and non-null.
func ParseGatewayPayload(data []byte) (*GatewayPayload, error) {
	obj, err := decodeObject(data, "gateway payload")
	if err != nil {
		return nil, err
	}

	var p GatewayPayload
	if err := required(obj, "gateway payload", "op", &p.Op); err != nil {
		return nil, err
	}

	raw, ok := obj["d"]
	if !ok {
		return nil, &DecodeError{Entity: "gateway payload", Field: "d", Reason: "missing required field"}
	}
	p.D = raw

	if err := optionalNullable(obj, "gateway payload", "s", &p.S); err != nil {
		return nil, err
	}
	if err := optionalNullable(obj, "gateway payload", "t", &p.T); err != nil {
		return nil, err
	}

	return &p, nil
}

// HelloData carries the heartbeat interval from the Hello envelope.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}
