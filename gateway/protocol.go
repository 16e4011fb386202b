// Package gateway implements the Transport, Rate Limiter, and Gateway
// Protocol Engine components of the session engine (spec.md §4.A,
// §4.C, §4.E). It knows nothing of guilds, members, or channels: it
// speaks only opcodes, sequence numbers, and raw JSON payloads, and
// hands decoded dispatch frames up to the caller to be interpreted.
package gateway

import (
	"encoding/json"
	"time"
)

// Opcode is a gateway payload's op field (spec.md §4.E).
type Opcode int

// Gateway opcodes, as sent in the "op" field of every frame.
const (
	OpDispatch            Opcode = 0
	OpHeartbeat           Opcode = 1
	OpIdentify            Opcode = 2
	OpStatusUpdate        Opcode = 3
	OpVoiceStateUpdate    Opcode = 4
	OpVoiceServerPing     Opcode = 5
	OpResume              Opcode = 6
	OpReconnect           Opcode = 7
	OpRequestGuildMembers Opcode = 8
	OpInvalidSession      Opcode = 9
	OpHello               Opcode = 10
	OpHeartbeatAck        Opcode = 11
)

// Payload is the envelope every gateway frame arrives in. Decoding the
// dispatch-specific body from RawData is left to the caller, which
// knows the event-name-to-struct table (spec.md §4.F).
type Payload struct {
	Operation Opcode          `json:"op"`
	Sequence  int64           `json:"s,omitempty"`
	Type      string          `json:"t,omitempty"`
	RawData   json.RawMessage `json:"d,omitempty"`
}

// HelloData is the data carried by an OpHello frame.
type HelloData struct {
	HeartbeatInterval durationMillis `json:"heartbeat_interval"`
}

// Interval returns the heartbeat interval as a time.Duration.
func (h HelloData) Interval() time.Duration { return time.Duration(h.HeartbeatInterval) }

// durationMillis unmarshals a millisecond integer into a time.Duration.
type durationMillis time.Duration

func (d *durationMillis) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}

	*d = durationMillis(time.Duration(ms) * time.Millisecond)

	return nil
}

// IdentifyProperties is the client fingerprint sent with Identify.
type IdentifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

// identifyData is the OpIdentify frame body, sent during cold-connect
// (spec.md §4.H).
type identifyData struct {
	Token          string              `json:"token"`
	Properties     IdentifyProperties  `json:"properties"`
	LargeThreshold int                 `json:"large_threshold,omitempty"`
	Compress       bool                `json:"compress,omitempty"`
	Shard          *[2]int             `json:"shard,omitempty"`
	Presence       *PresenceUpdateData `json:"presence,omitempty"`
}

// NewIdentifyFrame builds the OpIdentify frame for a cold-connect.
func NewIdentifyFrame(token string, props IdentifyProperties, largeThreshold int, compress bool, shardID, shardCount int, presence *PresenceUpdateData) Payload {
	body, _ := json.Marshal(identifyData{
		Token:          token,
		Properties:     props,
		LargeThreshold: largeThreshold,
		Compress:       compress,
		Shard:          &[2]int{shardID, shardCount},
		Presence:       presence,
	})

	return Payload{Operation: OpIdentify, RawData: body}
}

// resumeData is the OpResume frame body, sent to continue a dropped
// session (spec.md §4.H).
type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// NewResumeFrame builds the OpResume frame for a resume attempt.
func NewResumeFrame(token, sessionID string, sequence int64) Payload {
	body, _ := json.Marshal(resumeData{Token: token, SessionID: sessionID, Sequence: sequence})
	return Payload{Operation: OpResume, RawData: body}
}

// NewHeartbeatFrame builds the OpHeartbeat frame carrying the last
// sequence number observed (nil before any dispatch has arrived).
func NewHeartbeatFrame(sequence *int64) Payload {
	body, _ := json.Marshal(sequence)
	return Payload{Operation: OpHeartbeat, RawData: body}
}

// PresenceUpdateData describes a presence update sent via OpStatusUpdate.
type PresenceUpdateData struct {
	Since  *int64      `json:"since"`
	Game   interface{} `json:"game"`
	Status string      `json:"status"`
	AFK    bool        `json:"afk"`
}

// NewStatusUpdateFrame builds the OpStatusUpdate frame.
func NewStatusUpdateFrame(data PresenceUpdateData) Payload {
	body, _ := json.Marshal(data)
	return Payload{Operation: OpStatusUpdate, RawData: body}
}

// requestGuildMembersData is the OpRequestGuildMembers frame body.
type requestGuildMembersData struct {
	GuildID string   `json:"guild_id"`
	Query   string   `json:"query"`
	Limit   int      `json:"limit"`
	UserIDs []string `json:"user_ids,omitempty"`
}

// NewRequestGuildMembersFrame builds an OpRequestGuildMembers frame.
func NewRequestGuildMembersFrame(guildID, query string, limit int, userIDs []string) Payload {
	body, _ := json.Marshal(requestGuildMembersData{GuildID: guildID, Query: query, Limit: limit, UserIDs: userIDs})
	return Payload{Operation: OpRequestGuildMembers, RawData: body}
}

// readyMeta extracts only the fields the protocol engine itself needs
// from a READY dispatch: the session_id to resume with. Full domain
// decode of the READY payload (user, guilds, private channels) happens
// one layer up, against the same RawData.
type readyMeta struct {
	SessionID string `json:"session_id"`
}

// SessionIDFromReady extracts the session_id from a READY dispatch's
// raw data.
func SessionIDFromReady(raw json.RawMessage) (string, error) {
	var meta readyMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", err
	}

	return meta.SessionID, nil
}
