package discord

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const readyFrame = `{"op":0,"s":1,"t":"READY","d":{
	"v":9,
	"user":{"id":"100","username":"river","discriminator":"0001","avatar":null},
	"guilds":[{"id":"200","unavailable":true}],
	"session_id":"sess-1",
	"user_settings":{"guild_positions":["200"]}
}}`

type recordingObserver struct {
	ready       chan struct{}
	refresh     chan struct{}
	messages    chan Snowflake
	memberLists chan Snowflake
	disconnects chan error
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		ready:       make(chan struct{}, 8),
		refresh:     make(chan struct{}, 8),
		messages:    make(chan Snowflake, 8),
		memberLists: make(chan Snowflake, 8),
		disconnects: make(chan error, 8),
	}
}

func (o *recordingObserver) OnReady()                          { o.ready <- struct{}{} }
func (o *recordingObserver) OnChannelListRefresh()             { o.refresh <- struct{}{} }
func (o *recordingObserver) OnMessageCreate(_, id Snowflake)   { o.messages <- id }
func (o *recordingObserver) OnMemberListUpdate(gid Snowflake)  { o.memberLists <- gid }
func (o *recordingObserver) OnDisconnect(err error)            { o.disconnects <- err }

// newTestGateway starts a websocket endpoint driven by handler and returns
// its ws:// URL.
func newTestGateway(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		defer func() { _ = conn.Close() }()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func writeFrame(conn *websocket.Conn, frame string) {
	_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// drainUntilClosed keeps the server side alive until the client hangs up.
func drainUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestClient_StartWithoutToken(t *testing.T) {
	c := NewClient(Options{}, zap.NewNop(), nil)

	err := c.Start()

	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, c.IsStarted())
}

func TestClient_StartDialFailure(t *testing.T) {
	c := NewClient(Options{GatewayURL: "ws://127.0.0.1:1/"}, zap.NewNop(), nil)
	c.SetToken("tok-1")

	err := c.Start()

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "dial", connErr.Op)
	assert.False(t, c.IsStarted())
}

func TestClient_SessionLifecycle(t *testing.T) {
	obs := newRecordingObserver()
	identifies := make(chan []byte, 1)

	url := newTestGateway(t, func(conn *websocket.Conn) {
		writeFrame(conn, `{"op":10,"d":{"heartbeat_interval":60000}}`)

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		identifies <- data

		writeFrame(conn, readyFrame)
		writeFrame(conn, `{"op":0,"s":2,"t":"MESSAGE_CREATE","d":`+messageJSON+`}`)
		drainUntilClosed(conn)
	})

	c := NewClient(Options{GatewayURL: url, LargeThreshold: 150}, zap.NewNop(), nil)
	c.SetObserver(obs)
	c.SetToken("tok-1")
	require.NoError(t, c.Start())

	// The first client frame is Identify carrying the credential.
	var identify struct {
		Op int `json:"op"`
		D  struct {
			Token          string             `json:"token"`
			Properties     IdentifyProperties `json:"properties"`
			LargeThreshold int                `json:"large_threshold"`
		} `json:"d"`
	}
	require.NoError(t, json.Unmarshal(waitFor(t, identifies, "identify"), &identify))
	assert.Equal(t, int(OpIdentify), identify.Op)
	assert.Equal(t, "tok-1", identify.D.Token)
	assert.Equal(t, 150, identify.D.LargeThreshold)
	assert.NotEmpty(t, identify.D.Properties.Browser)

	waitFor(t, obs.ready, "ready notification")
	assert.Equal(t, StateConnected, c.ConnState())
	assert.Equal(t, "river", c.Self().Username)
	g, ok := c.Guild(200)
	require.True(t, ok)
	assert.True(t, g.IsUnavailable)
	assert.Equal(t, []Snowflake{200}, c.GuildPositions())

	msgID := waitFor(t, obs.messages, "message notification")
	assert.Equal(t, Snowflake(900), msgID)
	msgs := c.ChannelMessages(500)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello there", msgs[0].Content)

	c.Stop()
	assert.False(t, c.IsStarted())

	// A deliberate stop is not a failure: no disconnect notification.
	select {
	case err := <-obs.disconnects:
		t.Fatalf("unexpected disconnect notification: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	// Stopping again is a no-op.
	c.Stop()
}

func TestClient_StartWhileStarted(t *testing.T) {
	url := newTestGateway(t, func(conn *websocket.Conn) {
		drainUntilClosed(conn)
	})

	c := NewClient(Options{GatewayURL: url}, zap.NewNop(), nil)
	c.SetToken("tok-1")
	require.NoError(t, c.Start())
	defer c.Stop()

	assert.NoError(t, c.Start())
	assert.True(t, c.IsStarted())
}

func TestClient_HeartbeatSequence(t *testing.T) {
	heartbeats := make(chan json.RawMessage, 4)

	url := newTestGateway(t, func(conn *websocket.Conn) {
		writeFrame(conn, `{"op":10,"d":{"heartbeat_interval":40}}`)

		sentDispatch := false
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env struct {
				Op int             `json:"op"`
				D  json.RawMessage `json:"d"`
			}
			if json.Unmarshal(data, &env) != nil || env.Op != int(OpHeartbeat) {
				continue
			}
			heartbeats <- env.D
			writeFrame(conn, `{"op":11,"d":null}`)
			if !sentDispatch {
				// Advance the sequence with a dispatch the client does not
				// otherwise handle.
				writeFrame(conn, `{"op":0,"s":42,"t":"TYPING_START","d":{}}`)
				sentDispatch = true
			}
		}
	})

	c := NewClient(Options{GatewayURL: url}, zap.NewNop(), nil)
	c.SetToken("tok-1")
	require.NoError(t, c.Start())
	defer c.Stop()

	// Before any dispatch event the heartbeat payload is null; afterwards it
	// carries the highest sequence seen.
	first := waitFor(t, heartbeats, "first heartbeat")
	assert.JSONEq(t, `null`, string(first))

	second := waitFor(t, heartbeats, "second heartbeat")
	assert.JSONEq(t, `42`, string(second))
}

func TestClient_HeartbeatAckTimeout(t *testing.T) {
	obs := newRecordingObserver()

	url := newTestGateway(t, func(conn *websocket.Conn) {
		writeFrame(conn, `{"op":10,"d":{"heartbeat_interval":30}}`)
		drainUntilClosed(conn)
	})

	c := NewClient(Options{GatewayURL: url}, zap.NewNop(), obs)
	c.SetToken("tok-1")
	require.NoError(t, c.Start())

	err := waitFor(t, obs.disconnects, "disconnect notification")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "heartbeat", connErr.Op)
	assert.False(t, c.IsStarted())
}

func TestClient_ReconnectRequest(t *testing.T) {
	obs := newRecordingObserver()

	url := newTestGateway(t, func(conn *websocket.Conn) {
		writeFrame(conn, `{"op":10,"d":{"heartbeat_interval":60000}}`)
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		writeFrame(conn, `{"op":7,"d":null}`)
		drainUntilClosed(conn)
	})

	c := NewClient(Options{GatewayURL: url}, zap.NewNop(), obs)
	c.SetToken("tok-1")
	require.NoError(t, c.Start())

	err := waitFor(t, obs.disconnects, "disconnect notification")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "gateway", connErr.Op)
}

func TestClient_MalformedFramesAreSkipped(t *testing.T) {
	obs := newRecordingObserver()

	url := newTestGateway(t, func(conn *websocket.Conn) {
		writeFrame(conn, `{"op":10,"d":{"heartbeat_interval":60000}}`)
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		writeFrame(conn, `not json`)
		writeFrame(conn, `{"op":"not a number"}`)
		writeFrame(conn, `{"op":99,"d":{}}`)
		writeFrame(conn, readyFrame)
		drainUntilClosed(conn)
	})

	c := NewClient(Options{GatewayURL: url}, zap.NewNop(), obs)
	c.SetToken("tok-1")
	require.NoError(t, c.Start())
	defer c.Stop()

	// The connection survives the bad frames and handshake completes.
	waitFor(t, obs.ready, "ready notification")
	assert.Equal(t, StateConnected, c.ConnState())
}

func TestClient_GuildAndMemberListDispatch(t *testing.T) {
	obs := newRecordingObserver()

	url := newTestGateway(t, func(conn *websocket.Conn) {
		writeFrame(conn, `{"op":10,"d":{"heartbeat_interval":60000}}`)
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		writeFrame(conn, readyFrame)
		writeFrame(conn, `{"op":0,"s":2,"t":"GUILD_CREATE","d":{
			"id":"200","name":"grounds","icon":null,"splash":null,
			"owner_id":"100","region":"eu-west","verification_level":0,
			"roles":[],"features":[],"vanity_url_code":null,"banner":null,
			"premium_tier":0,
			"channels":[{"id":"500","type":0,"name":"general","position":0}]
		}}`)
		writeFrame(conn, `{"op":0,"s":3,"t":"GUILD_MEMBER_LIST_UPDATE","d":{
			"online_count":1,"member_count":1,"id":"everyone","guild_id":"200",
			"groups":[{"id":"online","count":1}],
			"ops":[{"op":"SYNC","range":[0,99],"items":[
				{"group":{"id":"online","count":1}},
				{"member":`+memberRowJSON+`}
			]}]
		}}`)
		drainUntilClosed(conn)
	})

	c := NewClient(Options{GatewayURL: url}, zap.NewNop(), obs)
	c.SetToken("tok-1")
	require.NoError(t, c.Start())
	defer c.Stop()

	waitFor(t, obs.ready, "ready notification")

	// The full guild replaces the Ready stub and its channels are mirrored.
	waitFor(t, obs.refresh, "channel list refresh")
	g, ok := c.Guild(200)
	require.True(t, ok)
	assert.False(t, g.IsUnavailable)
	assert.Equal(t, "grounds", g.Name)
	ch, ok := c.Channel(500)
	require.True(t, ok)
	assert.Equal(t, Snowflake(200), ch.GuildID)

	gid := waitFor(t, obs.memberLists, "member list notification")
	assert.Equal(t, Snowflake(200), gid)
	items := c.MemberList(200)
	require.Len(t, items, 2)
	_, ok = items[0].(*MemberListGroup)
	assert.True(t, ok)
	m, ok := items[1].(*MemberListMember)
	require.True(t, ok)
	assert.Equal(t, "river", m.User.Username)
}

func TestClient_GuildDeleteDispatch(t *testing.T) {
	obs := newRecordingObserver()

	url := newTestGateway(t, func(conn *websocket.Conn) {
		writeFrame(conn, `{"op":10,"d":{"heartbeat_interval":60000}}`)
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		writeFrame(conn, `{"op":0,"s":1,"t":"READY","d":{
			"v":9,
			"user":{"id":"100","username":"river","discriminator":"0001","avatar":null},
			"guilds":[{"id":"200","unavailable":true},{"id":"201","unavailable":true}],
			"session_id":"sess-1"
		}}`)
		// A removal payload has no unavailable flag; an outage keeps the
		// guild around as a stub.
		writeFrame(conn, `{"op":0,"s":2,"t":"GUILD_DELETE","d":{"id":"200"}}`)
		writeFrame(conn, `{"op":0,"s":3,"t":"GUILD_DELETE","d":{"id":"201","unavailable":true}}`)
		drainUntilClosed(conn)
	})

	c := NewClient(Options{GatewayURL: url}, zap.NewNop(), obs)
	c.SetToken("tok-1")
	require.NoError(t, c.Start())
	defer c.Stop()

	waitFor(t, obs.ready, "ready notification")
	waitFor(t, obs.refresh, "first guild delete")
	waitFor(t, obs.refresh, "second guild delete")

	_, ok := c.Guild(200)
	assert.False(t, ok)

	g, ok := c.Guild(201)
	require.True(t, ok)
	assert.True(t, g.IsUnavailable)
}

func TestClient_SendLazyLoadRequiresConnected(t *testing.T) {
	c := NewClient(Options{}, zap.NewNop(), nil)

	err := c.SendLazyLoad(LazyLoadCommand{GuildID: 200})

	assert.True(t, errors.Is(err, ErrNotConnected))
}
