// Package discord implements the client side of the chat service's gateway
// protocol: the persistent websocket connection with its handshake and
// heartbeat, typed decoding of the event stream, and a local mirror of the
// server-authoritative state.
package discord

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/ratelimit"
)

const (
	defaultGatewayURL  = "wss://gateway.discord.gg/?v=9&encoding=json"
	defaultRESTBaseURL = "https://discord.com/api/v9"
)

// ConnectionState is the lifecycle phase of the gateway connection.
type ConnectionState int

// Connection lifecycle states. Connected is the only state in which
// application-level commands may be sent.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateAwaitingHello
	StateIdentifying
	StateAwaitingReady
	StateConnected
	StateReconnecting
	StateResuming
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting-hello"
	case StateIdentifying:
		return "identifying"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateResuming:
		return "resuming"
	default:
		return "unknown"
	}
}

// Observer receives change notifications from the client. Callbacks run on
// the client's goroutines and must not block; they should read snapshots
// rather than hold references into client state.
type Observer interface {
	OnReady()
	OnChannelListRefresh()
	OnMessageCreate(channelID, messageID Snowflake)
	OnMemberListUpdate(guildID Snowflake)
	OnDisconnect(err error)
}

// Options configures a Client. Zero fields fall back to defaults.
type Options struct {
	GatewayURL     string
	RESTBaseURL    string
	LargeThreshold int
	Properties     IdentifyProperties
	HTTPTimeout    time.Duration
}

// Client owns the gateway connection lifecycle and the local state mirror.
// One goroutine owns the websocket read loop; heartbeats run on their own
// timer goroutine; every mutation of the mirror goes through c.mu.
type Client struct {
	opts     Options
	logger   *zap.Logger
	observer Observer

	httpClient  *http.Client
	restBaseURL string
	limiter     *ratelimit.Limiter

	mu                sync.Mutex
	token             string
	connState         ConnectionState
	conn              *websocket.Conn
	seq               int64
	heartbeatInterval time.Duration
	heartbeatAcked    bool
	state             *State
	stop              chan struct{}
	stopOnce          *sync.Once

	writeMu sync.Mutex
}

// NewClient constructs a disconnected client. The observer may be nil for a
// headless consumer that only reads snapshots.
func NewClient(opts Options, logger *zap.Logger, observer Observer) *Client {
	if opts.GatewayURL == "" {
		opts.GatewayURL = defaultGatewayURL
	}
	if opts.RESTBaseURL == "" {
		opts.RESTBaseURL = defaultRESTBaseURL
	}
	if opts.Properties == (IdentifyProperties{}) {
		opts.Properties = IdentifyProperties{OS: "linux", Browser: "quill", Device: "quill"}
	}
	if opts.HTTPTimeout == 0 {
		opts.HTTPTimeout = 30 * time.Second
	}

	return &Client{
		opts:        opts,
		logger:      logger,
		observer:    observer,
		httpClient:  &http.Client{Timeout: opts.HTTPTimeout},
		restBaseURL: opts.RESTBaseURL,
		limiter:     ratelimit.New(logger),
		connState:   StateDisconnected,
		seq:         NoSequence,
		state:       NewState(),
	}
}

// SetObserver attaches the notification sink. It exists so an observer
// that itself needs the client (a frontend controller) can be built after
// NewClient; it must be called before Start.
func (c *Client) SetObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

// SetToken stores the credential used by Identify and REST requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) tokenSnapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// IsStarted reports whether the connection has left Disconnected.
func (c *Client) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState != StateDisconnected
}

// ConnState returns the current lifecycle phase.
func (c *Client) ConnState() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

// Start dials the gateway and begins the handshake. It returns ErrNoToken
// without connecting when no credential has been set, and a
// *ConnectionError when the transport dial fails. The rest of the
// handshake proceeds on the read loop goroutine.
func (c *Client) Start() error {
	c.mu.Lock()
	if c.connState != StateDisconnected {
		c.mu.Unlock()
		c.logger.Debug("start ignored, already started")
		return nil
	}
	if c.token == "" {
		c.mu.Unlock()
		return ErrNoToken
	}
	c.connState = StateConnecting
	gatewayURL := c.opts.GatewayURL
	c.mu.Unlock()

	c.logger.Info("connecting to gateway", zap.String("url", gatewayURL))

	conn, _, err := websocket.DefaultDialer.Dial(gatewayURL, nil)
	if err != nil {
		c.mu.Lock()
		c.connState = StateDisconnected
		c.mu.Unlock()
		return &ConnectionError{Op: "dial", Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.connState = StateAwaitingHello
	c.seq = NoSequence
	c.heartbeatAcked = true
	c.stop = make(chan struct{})
	c.stopOnce = new(sync.Once)
	stop := c.stop
	c.mu.Unlock()

	go c.readLoop(conn, stop)
	return nil
}

// Stop closes the connection and clears per-channel history bookkeeping.
// Stopping an already-disconnected client is a no-op.
func (c *Client) Stop() {
	c.shutdown(nil)
}

func (c *Client) shutdown(cause error) {
	c.mu.Lock()
	if c.connState == StateDisconnected {
		c.mu.Unlock()
		return
	}
	once, stop, conn := c.stopOnce, c.stop, c.conn
	c.connState = StateDisconnected
	c.conn = nil
	c.state.ClearHistoryState()
	c.mu.Unlock()

	once.Do(func() {
		close(stop)
		if conn != nil {
			_ = conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			_ = conn.Close()
		}
	})

	if cause != nil {
		c.logger.Error("gateway connection lost", zap.Error(cause))
	} else {
		c.logger.Info("gateway connection closed")
	}

	if cause != nil && c.observer != nil {
		c.observer.OnDisconnect(cause)
	}
}

func (c *Client) readLoop(conn *websocket.Conn, stop chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			c.shutdown(&ConnectionError{Op: "read", Err: err})
			return
		}
		c.handleFrame(data, stop)
	}
}

// handleFrame decodes one inbound frame and routes it by opcode. A decode
// failure discards only the offending frame, never the connection.
func (c *Client) handleFrame(data []byte, stop chan struct{}) {
	payload, err := ParseGatewayPayload(data)
	if err != nil {
		c.logger.Warn("discarding undecodable frame", zap.Error(err))
		return
	}

	if payload.S != nil {
		c.mu.Lock()
		if *payload.S > c.seq {
			c.seq = *payload.S
		}
		c.mu.Unlock()
	}

	switch payload.Op {
	case OpHello:
		c.handleHello(payload, stop)

	case OpHeartbeatACK:
		c.mu.Lock()
		c.heartbeatAcked = true
		c.mu.Unlock()

	case OpHeartbeat:
		if err := c.sendHeartbeat(); err != nil {
			c.shutdown(&ConnectionError{Op: "heartbeat", Err: err})
		}

	case OpDispatch:
		c.handleDispatch(payload)

	case OpReconnect:
		c.logger.Warn("gateway requested reconnect")
		c.mu.Lock()
		c.connState = StateReconnecting
		c.mu.Unlock()
		c.shutdown(&ConnectionError{Op: "gateway", Err: errors.New("reconnect requested")})

	case OpInvalidSession:
		c.logger.Warn("gateway invalidated session")
		c.shutdown(&ConnectionError{Op: "gateway", Err: errors.New("session invalidated")})

	default:
		// Unknown opcodes are skipped for forward compatibility.
		c.logger.Debug("ignoring unknown opcode", zap.Int("opcode", int(payload.Op)))
	}
}

func (c *Client) handleHello(payload *GatewayPayload, stop chan struct{}) {
	var hello HelloData
	if err := json.Unmarshal(payload.D, &hello); err != nil {
		c.logger.Warn("discarding undecodable hello", zap.Error(err))
		return
	}

	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond

	c.mu.Lock()
	c.heartbeatInterval = interval
	c.connState = StateIdentifying
	token := c.token
	c.mu.Unlock()

	c.logger.Info("received hello", zap.Duration("heartbeat_interval", interval))

	go c.heartbeatLoop(interval, stop)

	// Identify is refused without a credential; the connection stays in
	// Identifying until the caller stops it.
	if token == "" {
		c.logger.Error("identify refused", zap.Error(ErrNoToken))
		return
	}

	identify := IdentifyCommand{
		Token:          token,
		Properties:     c.opts.Properties,
		LargeThreshold: c.opts.LargeThreshold,
	}
	// The token never reaches the log.
	c.logger.Debug("sending identify",
		zap.String("browser", c.opts.Properties.Browser),
		zap.Int("large_threshold", c.opts.LargeThreshold),
	)
	if err := c.writeCommand(identify); err != nil {
		c.shutdown(&ConnectionError{Op: "identify", Err: err})
		return
	}

	c.mu.Lock()
	c.connState = StateAwaitingReady
	c.mu.Unlock()
}

func (c *Client) heartbeatLoop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			acked := c.heartbeatAcked
			c.mu.Unlock()

			// A heartbeat unacknowledged by the next interval means the
			// connection is dead.
			if !acked {
				c.shutdown(&ConnectionError{Op: "heartbeat", Err: errors.New("acknowledgment timeout")})
				return
			}
			if err := c.sendHeartbeat(); err != nil {
				c.shutdown(&ConnectionError{Op: "heartbeat", Err: err})
				return
			}
		}
	}
}

func (c *Client) sendHeartbeat() error {
	c.mu.Lock()
	seq := c.seq
	c.heartbeatAcked = false
	c.mu.Unlock()

	c.logger.Debug("sending heartbeat", zap.Int64("sequence", seq))
	return c.writeCommand(HeartbeatCommand{Sequence: seq})
}

func (c *Client) writeCommand(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// handleDispatch fans a dispatch event out to the state mirror and then to
// the observer. The (opcode, event type) routing table is closed; unknown
// event types are skipped.
func (c *Client) handleDispatch(payload *GatewayPayload) {
	event := payload.EventType()

	switch event {
	case "READY":
		var ready ReadyEventData
		if err := json.Unmarshal(payload.D, &ready); err != nil {
			c.logger.Error("discarding undecodable READY", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.state.ApplyReady(&ready)
		c.connState = StateConnected
		c.mu.Unlock()
		c.logger.Info("gateway session ready",
			zap.String("session_id", ready.SessionID),
			zap.Int("guilds", len(ready.Guilds)),
		)
		if c.observer != nil {
			c.observer.OnReady()
		}

	case "GUILD_CREATE":
		var guild Guild
		if err := json.Unmarshal(payload.D, &guild); err != nil {
			c.logger.Error("discarding undecodable GUILD_CREATE", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.state.UpsertGuild(&guild)
		c.mu.Unlock()
		if c.observer != nil {
			c.observer.OnChannelListRefresh()
		}

	case "GUILD_DELETE":
		var del GuildDelete
		if err := json.Unmarshal(payload.D, &del); err != nil {
			c.logger.Error("discarding undecodable GUILD_DELETE", zap.Error(err))
			return
		}
		c.mu.Lock()
		if del.IsUnavailable {
			c.state.UpsertGuild(&Guild{ID: del.ID, IsUnavailable: true})
		} else {
			c.state.RemoveGuild(del.ID)
		}
		c.mu.Unlock()
		if c.observer != nil {
			c.observer.OnChannelListRefresh()
		}

	case "CHANNEL_CREATE", "CHANNEL_UPDATE":
		var channel Channel
		if err := json.Unmarshal(payload.D, &channel); err != nil {
			c.logger.Error("discarding undecodable channel event", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.state.UpsertChannel(&channel)
		c.mu.Unlock()
		if c.observer != nil {
			c.observer.OnChannelListRefresh()
		}

	case "MESSAGE_CREATE":
		var msg Message
		if err := json.Unmarshal(payload.D, &msg); err != nil {
			c.logger.Error("discarding undecodable MESSAGE_CREATE", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.state.AddMessage(&msg)
		c.mu.Unlock()
		if c.observer != nil {
			c.observer.OnMessageCreate(msg.ChannelID, msg.ID)
		}

	case "MESSAGE_UPDATE":
		var ref struct {
			ID        Snowflake `json:"id"`
			ChannelID Snowflake `json:"channel_id"`
		}
		if err := json.Unmarshal(payload.D, &ref); err != nil || !ref.ID.IsValid() || !ref.ChannelID.IsValid() {
			c.logger.Error("discarding undecodable MESSAGE_UPDATE")
			return
		}
		c.mu.Lock()
		err := c.state.PatchMessage(ref.ChannelID, ref.ID, payload.D)
		c.mu.Unlock()
		if err != nil {
			c.logger.Error("discarding undecodable MESSAGE_UPDATE", zap.Error(err))
		}

	case "MESSAGE_DELETE":
		var del MessageDelete
		if err := json.Unmarshal(payload.D, &del); err != nil {
			c.logger.Error("discarding undecodable MESSAGE_DELETE", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.state.RemoveMessage(del.ChannelID, del.ID)
		c.mu.Unlock()

	case "GUILD_MEMBER_LIST_UPDATE":
		var update GuildMemberListUpdate
		if err := json.Unmarshal(payload.D, &update); err != nil {
			c.logger.Error("discarding undecodable member list update", zap.Error(err))
			return
		}
		var items []MemberListItem
		for i := range update.Ops {
			if update.Ops[i].Op == "SYNC" {
				items = append(items, update.Ops[i].Items...)
			}
		}
		c.mu.Lock()
		c.state.SetMemberList(update.GuildID, items)
		c.mu.Unlock()
		if c.observer != nil {
			c.observer.OnMemberListUpdate(update.GuildID)
		}

	default:
		c.logger.Debug("ignoring dispatch event", zap.String("event_type", event))
	}
}

// SendLazyLoad subscribes to member list row ranges. Commands are accepted
// only while Connected.
func (c *Client) SendLazyLoad(cmd LazyLoadCommand) error {
	c.mu.Lock()
	connected := c.connState == StateConnected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	return c.writeCommand(cmd)
}

// LoadChannel fetches a channel's first message page, once. It reports
// false when the page was already requested; the callback then never runs.
func (c *Client) LoadChannel(channelID Snowflake, cb MessagesCallback) bool {
	c.mu.Lock()
	first := c.state.MarkRequested(channelID)
	c.mu.Unlock()
	if !first {
		return false
	}

	c.FetchMessages(channelID, func(msgs []Message, err error) {
		if err != nil {
			c.mu.Lock()
			c.state.UnmarkRequested(channelID)
			c.mu.Unlock()
			cb(nil, err)
			return
		}
		c.mu.Lock()
		for i := range msgs {
			c.state.AddMessage(&msgs[i])
		}
		c.mu.Unlock()
		cb(msgs, nil)
	})
	return true
}

// LoadOlderHistory pages older messages using the channel's oldest-seen
// cursor. It reports false, issuing no request, when a fetch is already in
// flight or the history is exhausted.
func (c *Client) LoadOlderHistory(channelID Snowflake, cb MessagesCallback) bool {
	c.mu.Lock()
	if !c.state.BeginHistoryFetch(channelID) {
		c.mu.Unlock()
		return false
	}
	before := c.state.OldestMessage(channelID)
	c.mu.Unlock()

	done := func(msgs []Message, err error) {
		c.mu.Lock()
		if err != nil {
			c.state.EndHistoryFetch(channelID, SnowflakeInvalid, false)
			c.mu.Unlock()
			cb(nil, err)
			return
		}
		exhausted := len(msgs) == 0
		var oldest Snowflake
		if !exhausted {
			oldest = msgs[len(msgs)-1].ID
			for i := range msgs {
				c.state.AddMessage(&msgs[i])
			}
		}
		c.state.EndHistoryFetch(channelID, oldest, exhausted)
		c.mu.Unlock()
		cb(msgs, nil)
	}

	// Without a cursor there is nothing to page before; fetch the most
	// recent page instead.
	if !before.IsValid() {
		c.FetchMessages(channelID, done)
	} else {
		c.FetchMessagesBefore(channelID, before, done)
	}
	return true
}

// Snapshot accessors. Each copies under the lock so callers never hold a
// reference into live state.

// Guild returns a snapshot of a mirrored guild.
func (c *Client) Guild(id Snowflake) (Guild, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Guild(id)
}

// Channel returns a snapshot of a mirrored channel.
func (c *Client) Channel(id Snowflake) (Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Channel(id)
}

// Message returns a snapshot of a mirrored message.
func (c *Client) Message(channelID, messageID Snowflake) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Message(channelID, messageID)
}

// ChannelMessages returns a channel's mirrored messages in chronological
// order.
func (c *Client) ChannelMessages(channelID Snowflake) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ChannelMessages(channelID)
}

// SortedGuilds returns guilds in the user's preferred order.
func (c *Client) SortedGuilds() []Guild {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SortedGuilds()
}

// GuildPositions returns the user's guild ordering.
func (c *Client) GuildPositions() []Snowflake {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.GuildPositions()
}

// SetGuildPositions records a user-driven guild reorder.
func (c *Client) SetGuildPositions(positions []Snowflake) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SetGuildPositions(positions)
}

// MemberList returns the synced member list items for a guild, in order.
func (c *Client) MemberList(guildID Snowflake) []MemberListItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.MemberList(guildID)
}

// Self returns the authenticated user.
func (c *Client) Self() User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Self()
}
