package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/tiersync/pkg/logger"
	"github.com/okian/tiersync/pkg/metrics"
)

// Default gateway configuration constants.
const (
	defaultEventBuffer    = 256
	defaultSeenCapacity   = 2048
	defaultRequestTimeout = 15 * time.Second
	heartbeatInterval     = 30 * time.Second
	identifyTimeout       = 10 * time.Second
)

// Gateway implements Messenger and Directory over one websocket connection.
type Gateway struct {
	conn *websocket.Conn

	writeMu sync.Mutex // gorilla allows one concurrent writer

	pendingMu sync.Mutex
	pending   map[string]chan frame

	events chan MessageEvent
	seen   *seenSet

	eventBuffer    int
	seenCapacity   int
	requestTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}

	log logger.Logger
}

// Option applies a configuration option to the Gateway.
type Option func(*Gateway)

// WithEventBuffer sets the inbound event queue size. Commands queue here
// while a long verification is in flight; the websocket reader never blocks
// on command handling.
func WithEventBuffer(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.eventBuffer = n
		}
	}
}

// WithSeenCapacity bounds the redelivery guard.
func WithSeenCapacity(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.seenCapacity = n
		}
	}
}

// WithRequestTimeout bounds each outbound request when the caller's context
// has no earlier deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.requestTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the gateway.
func WithLogger(log logger.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// Dial connects to the gateway, identifies with the token, and starts the
// read and heartbeat loops. The caller owns the Gateway and must Close it.
func Dial(ctx context.Context, gatewayURL, token string, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		pending:        make(map[string]chan frame),
		eventBuffer:    defaultEventBuffer,
		seenCapacity:   defaultSeenCapacity,
		requestTimeout: defaultRequestTimeout,
		done:           make(chan struct{}),
		log:            logger.Get().Named("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.events = make(chan MessageEvent, g.eventBuffer)
	g.seen = newSeenSet(g.seenCapacity)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, gatewayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrClosed, gatewayURL, err)
	}
	g.conn = conn

	if err := g.identify(token); err != nil {
		conn.Close()
		return nil, err
	}

	go g.readLoop()
	go g.heartbeat()

	return g, nil
}

// identify performs the handshake: send the token, wait for ready.
func (g *Gateway) identify(token string) error {
	data, err := json.Marshal(identifyPayload{Token: token})
	if err != nil {
		return fmt.Errorf("marshal identify: %w", err)
	}
	if err := g.writeFrame(frame{Op: opIdentify, Data: data}); err != nil {
		return err
	}

	g.conn.SetReadDeadline(time.Now().Add(identifyTimeout))
	defer g.conn.SetReadDeadline(time.Time{})

	var f frame
	if err := g.conn.ReadJSON(&f); err != nil {
		return fmt.Errorf("%w: awaiting ready: %v", ErrClosed, err)
	}
	if f.Op != opReady {
		if f.Error != "" {
			return fmt.Errorf("%w: %s", mapCode(f.Error), f.Error)
		}
		return fmt.Errorf("%w: unexpected op %q during handshake", ErrRequestFailed, f.Op)
	}
	return nil
}

// Events delivers inbound message events.
func (g *Gateway) Events() <-chan MessageEvent {
	return g.events
}

// Send publishes a message to a channel.
func (g *Gateway) Send(ctx context.Context, channelID, text string) error {
	_, err := g.request(ctx, reqSend, sendPayload{ChannelID: channelID, Text: text})
	return err
}

// Reply answers a specific inbound message.
func (g *Gateway) Reply(ctx context.Context, ev MessageEvent, text string) error {
	_, err := g.request(ctx, reqReply, replyPayload{
		ChannelID: ev.ChannelID,
		MessageID: ev.MessageID,
		Text:      text,
	})
	return err
}

// BulkDelete removes up to limit recent messages from a channel.
func (g *Gateway) BulkDelete(ctx context.Context, channelID string, limit int) error {
	_, err := g.request(ctx, reqBulkDelete, bulkDeletePayload{ChannelID: channelID, Limit: limit})
	return err
}

// GuildLabels lists every label configured in the group.
func (g *Gateway) GuildLabels(ctx context.Context) ([]string, error) {
	data, err := g.request(ctx, reqGuildLabels, struct{}{})
	if err != nil {
		return nil, err
	}
	var res labelsResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: decode labels: %v", ErrRequestFailed, err)
	}
	return res.Labels, nil
}

// MemberLabels lists the labels currently held by a member.
func (g *Gateway) MemberLabels(ctx context.Context, userID string) ([]string, error) {
	data, err := g.request(ctx, reqMemberLabels, memberPayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	var res labelsResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: decode labels: %v", ErrRequestFailed, err)
	}
	return res.Labels, nil
}

// AddLabel grants a label to a member.
func (g *Gateway) AddLabel(ctx context.Context, userID, label string) error {
	_, err := g.request(ctx, reqLabelAdd, labelPayload{UserID: userID, Label: label})
	return err
}

// RemoveLabel revokes a label from a member.
func (g *Gateway) RemoveLabel(ctx context.Context, userID, label string) error {
	_, err := g.request(ctx, reqLabelRemove, labelPayload{UserID: userID, Label: label})
	return err
}

// SetDisplayName renames a member inside the group.
func (g *Gateway) SetDisplayName(ctx context.Context, userID, name string) error {
	_, err := g.request(ctx, reqSetNick, nickPayload{UserID: userID, Name: name})
	return err
}

// Close tears down the connection and the event channel.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		close(g.done)
		g.writeMu.Lock()
		g.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		g.writeMu.Unlock()
		g.conn.Close()
	})
	return nil
}

// request writes one request frame and waits for its correlated result.
func (g *Gateway) request(ctx context.Context, typ string, payload any) (json.RawMessage, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}

	nonce := uuid.NewString()
	respCh := make(chan frame, 1)

	g.pendingMu.Lock()
	g.pending[nonce] = respCh
	g.pendingMu.Unlock()
	defer func() {
		g.pendingMu.Lock()
		delete(g.pending, nonce)
		g.pendingMu.Unlock()
	}()

	if err := g.writeFrame(frame{Op: opRequest, Type: typ, Nonce: nonce, Data: data}); err != nil {
		return nil, err
	}

	select {
	case f, ok := <-respCh:
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrClosed, typ)
		}
		if f.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", mapCode(f.Error), typ, f.Error)
		}
		return f.Data, nil
	case <-g.done:
		return nil, fmt.Errorf("%w: %s", ErrClosed, typ)
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", typ, ctx.Err())
	}
}

// writeFrame serializes writes; gorilla connections allow one writer.
func (g *Gateway) writeFrame(f frame) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	select {
	case <-g.done:
		return ErrClosed
	default:
	}

	if err := g.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrClosed, f.Op, err)
	}
	return nil
}

// readLoop dispatches inbound frames until the connection dies.
func (g *Gateway) readLoop() {
	ctx := context.Background()
	defer func() {
		g.Close()
		g.failPending()
		close(g.events)
	}()

	for {
		var f frame
		if err := g.conn.ReadJSON(&f); err != nil {
			select {
			case <-g.done:
			default:
				g.log.Error(ctx, "gateway read failed", logger.Error(err))
			}
			return
		}

		switch f.Op {
		case opEvent:
			g.dispatchEvent(ctx, f)
		case opResult:
			g.dispatchResult(f)
		case opPing:
			if err := g.writeFrame(frame{Op: opPong, Nonce: f.Nonce}); err != nil {
				return
			}
		case opPong:
			// heartbeat ack; nothing to do
		default:
			g.log.Debug(ctx, "ignoring unknown gateway op", logger.String("op", f.Op))
		}
	}
}

func (g *Gateway) dispatchEvent(ctx context.Context, f frame) {
	var ev MessageEvent
	if err := json.Unmarshal(f.Data, &ev); err != nil {
		g.log.Warn(ctx, "malformed gateway event", logger.Error(err))
		return
	}
	if ev.Bot {
		return
	}
	if ev.MessageID != "" && g.seen.seenAndRecord(ev.MessageID) {
		metrics.RecordEventDropped()
		g.log.Debug(ctx, "dropping redelivered event", logger.String("messageID", ev.MessageID))
		return
	}

	select {
	case g.events <- ev:
		metrics.UpdateInboundQueueLength(len(g.events))
	default:
		metrics.RecordEventDropped()
		g.log.Warn(ctx, "inbound event queue full, dropping event",
			logger.String("messageID", ev.MessageID))
	}
}

func (g *Gateway) dispatchResult(f frame) {
	g.pendingMu.Lock()
	respCh, ok := g.pending[f.Nonce]
	g.pendingMu.Unlock()
	if !ok {
		return // request already timed out
	}
	respCh <- f
}

// failPending unblocks every in-flight request after the connection dies.
func (g *Gateway) failPending() {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	for nonce, respCh := range g.pending {
		close(respCh)
		delete(g.pending, nonce)
	}
}

// heartbeat keeps intermediaries from idling out the connection.
func (g *Gateway) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			if err := g.writeFrame(frame{Op: opPing, Nonce: uuid.NewString()}); err != nil {
				return
			}
		}
	}
}

// mapCode converts a gateway error code to a sentinel kind.
func mapCode(code string) error {
	switch code {
	case codePermissionDenied:
		return ErrPermissionDenied
	case codeNotFound:
		return ErrUnknownEntity
	default:
		return ErrRequestFailed
	}
}
