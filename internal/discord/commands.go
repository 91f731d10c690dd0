package discord

import (
	"encoding/json"
)

// Outbound gateway commands. Each marshals into the envelope format the
// gateway expects; optional fields at their zero value are omitted rather
// than emitted as defaults.

// IdentifyProperties is the client-identification triple sent with
// Identify.
type IdentifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

// IdentifyCommand begins a session. LargeThreshold is included only when
// non-zero.
type IdentifyCommand struct {
	Token          string
	Properties     IdentifyProperties
	LargeThreshold int
}

func (c IdentifyCommand) MarshalJSON() ([]byte, error) {
	d := map[string]any{
		"token":      c.Token,
		"properties": c.Properties,
	}
	if c.LargeThreshold != 0 {
		d["large_threshold"] = c.LargeThreshold
	}

	return json.Marshal(map[string]any{
		"op": OpIdentify,
		"d":  d,
	})
}

// NoSequence is the heartbeat sequence sentinel used before any dispatch
// event has been received; it encodes as a null payload.
const NoSequence int64 = -1

// HeartbeatCommand carries the last seen sequence number.
type HeartbeatCommand struct {
	Sequence int64
}

func (c HeartbeatCommand) MarshalJSON() ([]byte, error) {
	var d any
	if c.Sequence != NoSequence {
		d = c.Sequence
	}

	return json.Marshal(map[string]any{
		"op": OpHeartbeat,
		"d":  d,
	})
}

// LazyLoadCommand subscribes to member list row ranges for a guild. The
// per-channel range map is rendered as a string-keyed object; the explicit
// member-ID list is included only when non-empty.
type LazyLoadCommand struct {
	GuildID    Snowflake
	Channels   map[Snowflake][][2]int
	Typing     bool
	Activities bool
	Members    []Snowflake
}

func (c LazyLoadCommand) MarshalJSON() ([]byte, error) {
	channels := make(map[string][][2]int, len(c.Channels))
	for id, ranges := range c.Channels {
		channels[id.String()] = ranges
	}

	d := map[string]any{
		"guild_id":   c.GuildID,
		"channels":   channels,
		"typing":     c.Typing,
		"activities": c.Activities,
	}
	if len(c.Members) > 0 {
		d["members"] = c.Members
	}

	return json.Marshal(map[string]any{
		"op": OpLazyLoadRequest,
		"d":  d,
	})
}

// CreateMessageBody is the REST body for sending a chat message. The nonce
// lets the client correlate the echoed dispatch event with the request.
type CreateMessageBody struct {
	Content string `json:"content"`
	Nonce   string `json:"nonce,omitempty"`
}

// NoFlags is the EditMessageBody sentinel for "flags not set".
const NoFlags = -1

// EditMessageBody is the REST body for editing a message. Content is
// included only when non-empty and flags only when explicitly set, so an
// edit never clobbers fields the caller did not touch.
type EditMessageBody struct {
	Content string
	Flags   int
}

// NewEditMessageBody returns an edit body with no flags set.
func NewEditMessageBody(content string) EditMessageBody {
	return EditMessageBody{Content: content, Flags: NoFlags}
}

func (b EditMessageBody) MarshalJSON() ([]byte, error) {
	body := map[string]any{}
	if b.Content != "" {
		body["content"] = b.Content
	}
	if b.Flags != NoFlags {
		body["flags"] = b.Flags
	}
	return json.Marshal(body)
}
