// Package frontend mediates between a presentation layer and the gateway
// client: it translates user actions into client operations and client
// notifications into presentation updates, and persists user preferences.
package frontend

import (
	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/discord"
	"github.com/quillchat/quill/internal/settings"
)

// UI is the presentation layer's notification surface. Implementations
// must not block; they are called from the client's goroutines.
type UI interface {
	UpdateReady()
	UpdateChannelList()
	UpdateNewMessage(channelID, messageID discord.Snowflake)
	UpdatePrependHistory(channelID discord.Snowflake, msgs []discord.Message)
	UpdateActiveChannel(channelID discord.Snowflake)
	UpdateMemberList(guildID discord.Snowflake)
	UpdateDisconnected(err error)
}

// Session is the slice of the gateway client the frontend drives.
type Session interface {
	Start() error
	Stop()
	IsStarted() bool
	SetToken(token string)
	LoadChannel(channelID discord.Snowflake, cb discord.MessagesCallback) bool
	LoadOlderHistory(channelID discord.Snowflake, cb discord.MessagesCallback) bool
	SendChatMessage(content string, channelID discord.Snowflake, cb discord.MessageCallback)
	EditChatMessage(channelID, messageID discord.Snowflake, body discord.EditMessageBody, cb discord.MessageCallback)
	SortedGuilds() []discord.Guild
	GuildPositions() []discord.Snowflake
	SetGuildPositions(positions []discord.Snowflake)
}

// Frontend is the controller between the UI and the client.
type Frontend struct {
	session  Session
	settings *settings.Store
	ui       UI
	logger   *zap.Logger
}

// New wires a frontend to its session, settings store, and UI.
func New(session Session, store *settings.Store, ui UI, logger *zap.Logger) *Frontend {
	return &Frontend{
		session:  session,
		settings: store,
		ui:       ui,
		logger:   logger,
	}
}

// Connect starts the gateway session if it is not already running.
func (f *Frontend) Connect() error {
	if f.session.IsStarted() {
		return nil
	}
	return f.session.Start()
}

// Disconnect stops the gateway session; stopping a stopped session is a
// no-op.
func (f *Frontend) Disconnect() {
	f.session.Stop()
}

// SetToken stores a new credential on the session and persists it.
func (f *Frontend) SetToken(token string) error {
	f.session.SetToken(token)
	if err := f.settings.SetToken(token); err != nil {
		return err
	}
	f.logger.Info("token updated")
	return nil
}

// SelectChannel makes a channel active and fetches its first message page
// if it has not been requested before.
func (f *Frontend) SelectChannel(channelID discord.Snowflake) {
	f.ui.UpdateActiveChannel(channelID)

	issued := f.session.LoadChannel(channelID, func(msgs []discord.Message, err error) {
		if err != nil {
			f.logger.Error("failed to load channel", zap.String("channel_id", channelID.String()), zap.Error(err))
			return
		}
		f.ui.UpdatePrependHistory(channelID, msgs)
	})
	if !issued {
		// Already cached; the UI can render from snapshots.
		f.ui.UpdatePrependHistory(channelID, nil)
	}
}

// LoadChannelHistory requests the page older than what is already shown.
// Requests for channels whose history is exhausted or already loading are
// dropped silently.
func (f *Frontend) LoadChannelHistory(channelID discord.Snowflake) {
	f.session.LoadOlderHistory(channelID, func(msgs []discord.Message, err error) {
		if err != nil {
			f.logger.Error("failed to load history", zap.String("channel_id", channelID.String()), zap.Error(err))
			return
		}
		if len(msgs) > 0 {
			f.ui.UpdatePrependHistory(channelID, msgs)
		}
	})
}

// SubmitMessage sends the typed message to the active channel.
func (f *Frontend) SubmitMessage(content string, channelID discord.Snowflake) {
	f.session.SendChatMessage(content, channelID, func(_ *discord.Message, err error) {
		if err != nil {
			f.logger.Error("failed to send message", zap.String("channel_id", channelID.String()), zap.Error(err))
		}
	})
}

// SubmitEdit replaces the content of one of the user's own messages.
func (f *Frontend) SubmitEdit(content string, channelID, messageID discord.Snowflake) {
	body := discord.NewEditMessageBody(content)
	f.session.EditChatMessage(channelID, messageID, body, func(_ *discord.Message, err error) {
		if err != nil {
			f.logger.Error("failed to edit message", zap.String("message_id", messageID.String()), zap.Error(err))
		}
	})
}

// MoveGuildUp swaps a guild with its predecessor in the user ordering and
// persists the result.
func (f *Frontend) MoveGuildUp(id discord.Snowflake) {
	f.reorderGuild(id, -1)
}

// MoveGuildDown swaps a guild with its successor in the user ordering and
// persists the result.
func (f *Frontend) MoveGuildDown(id discord.Snowflake) {
	f.reorderGuild(id, +1)
}

func (f *Frontend) reorderGuild(id discord.Snowflake, direction int) {
	guilds := f.session.SortedGuilds()

	order := make([]discord.Snowflake, len(guilds))
	idx := -1
	for i, g := range guilds {
		order[i] = g.ID
		if g.ID == id {
			idx = i
		}
	}

	target := idx + direction
	if idx < 0 || target < 0 || target >= len(order) {
		return
	}
	order[idx], order[target] = order[target], order[idx]

	f.session.SetGuildPositions(order)
	if err := f.settings.SetGuildPositions(order); err != nil {
		f.logger.Error("failed to persist guild order", zap.Error(err))
	}
	f.ui.UpdateChannelList()
}

// OnReady, OnChannelListRefresh, OnMessageCreate, OnMemberListUpdate, and
// OnDisconnect let the frontend act as the client's observer.

func (f *Frontend) OnReady()               { f.ui.UpdateReady() }
func (f *Frontend) OnChannelListRefresh()  { f.ui.UpdateChannelList() }
func (f *Frontend) OnDisconnect(err error) { f.ui.UpdateDisconnected(err) }

func (f *Frontend) OnMemberListUpdate(guildID discord.Snowflake) {
	f.ui.UpdateMemberList(guildID)
}

func (f *Frontend) OnMessageCreate(channelID, messageID discord.Snowflake) {
	f.ui.UpdateNewMessage(channelID, messageID)
}
