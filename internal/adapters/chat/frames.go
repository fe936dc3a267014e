package chat

import "encoding/json"

// Frame ops exchanged with the gateway.
const (
	opIdentify = "identify"
	opReady    = "ready"
	opEvent    = "event"
	opRequest  = "request"
	opResult   = "result"
	opPing     = "ping"
	opPong     = "pong"
)

// Request types carried in opRequest frames.
const (
	reqSend         = "send"
	reqReply        = "reply"
	reqBulkDelete   = "bulk_delete"
	reqGuildLabels  = "guild_labels"
	reqMemberLabels = "member_labels"
	reqLabelAdd     = "label_add"
	reqLabelRemove  = "label_remove"
	reqSetNick      = "set_nick"
)

// Result error codes the gateway may answer with.
const (
	codePermissionDenied = "permission_denied"
	codeNotFound         = "not_found"
)

// frame is the wire envelope in both directions.
type frame struct {
	Op    string          `json:"op"`
	Type  string          `json:"type,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type identifyPayload struct {
	Token string `json:"token"`
}

type sendPayload struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

type replyPayload struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

type bulkDeletePayload struct {
	ChannelID string `json:"channel_id"`
	Limit     int    `json:"limit"`
}

type memberPayload struct {
	UserID string `json:"user_id"`
}

type labelPayload struct {
	UserID string `json:"user_id"`
	Label  string `json:"label"`
}

type nickPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type labelsResult struct {
	Labels []string `json:"labels"`
}
