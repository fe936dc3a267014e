// Package chat connects the service to the community's messaging gateway.
//
// The gateway speaks JSON frames over a single websocket: inbound message
// events flow to a bounded channel, outbound actions (sends, label
// mutations, renames, bulk deletes) are request frames correlated to
// result frames by nonce.
package chat

import "context"

// MessageEvent is one inbound chat message relevant to the command surface.
type MessageEvent struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	Bot       bool   `json:"bot"`
}

// Messenger sends and clears messages in the community's channels.
type Messenger interface {
	// Events delivers inbound message events. The channel is closed when
	// the gateway shuts down.
	Events() <-chan MessageEvent

	// Send publishes a message to a channel.
	Send(ctx context.Context, channelID, text string) error

	// Reply answers a specific inbound message.
	Reply(ctx context.Context, ev MessageEvent, text string) error

	// BulkDelete removes up to limit recent messages from a channel in a
	// single batch. Deeper backlogs are the caller's known limitation.
	BulkDelete(ctx context.Context, channelID string, limit int) error
}

// Directory reads and mutates member state in the live group.
type Directory interface {
	// GuildLabels lists every label configured in the group.
	GuildLabels(ctx context.Context) ([]string, error)

	// MemberLabels lists the labels currently held by a member.
	MemberLabels(ctx context.Context, userID string) ([]string, error)

	// AddLabel grants a label to a member.
	AddLabel(ctx context.Context, userID, label string) error

	// RemoveLabel revokes a label from a member.
	RemoveLabel(ctx context.Context, userID, label string) error

	// SetDisplayName renames a member inside the group.
	SetDisplayName(ctx context.Context, userID, name string) error
}
