package discord

import (
	"sort"
)

// State is the in-memory, server-authoritative mirror of guilds, channels,
// messages, and users, plus per-channel history-loading bookkeeping. It is
// not safe for concurrent use on its own: the owning Client funnels every
// mutation and snapshot read through its lock. Snapshot accessors return
// copies so no reference into live state escapes the lock window.
type State struct {
	guilds   map[Snowflake]*Guild
	channels map[Snowflake]*Channel
	messages map[Snowflake]map[Snowflake]*Message
	users    map[Snowflake]*User

	memberLists map[Snowflake][]MemberListItem

	self         User
	userSettings UserSettings
	sessionID    string

	// History bookkeeping. A channel appears in at most one of loading and
	// exhausted at a time; requested marks channels whose first page has
	// been fetched so channel selection does not refetch.
	oldestMessage    map[Snowflake]Snowflake
	requested        map[Snowflake]struct{}
	historyLoading   map[Snowflake]struct{}
	historyExhausted map[Snowflake]struct{}
}

// NewState returns an empty state mirror.
func NewState() *State {
	return &State{
		guilds:           make(map[Snowflake]*Guild),
		channels:         make(map[Snowflake]*Channel),
		messages:         make(map[Snowflake]map[Snowflake]*Message),
		users:            make(map[Snowflake]*User),
		memberLists:      make(map[Snowflake][]MemberListItem),
		oldestMessage:    make(map[Snowflake]Snowflake),
		requested:        make(map[Snowflake]struct{}),
		historyLoading:   make(map[Snowflake]struct{}),
		historyExhausted: make(map[Snowflake]struct{}),
	}
}

// ApplyReady seeds the mirror from the handshake-completion snapshot.
// Server-sent guild positions win; a snapshot without any keeps the
// ordering loaded from local settings before connect.
func (s *State) ApplyReady(ready *ReadyEventData) {
	local := s.userSettings.GuildPositions

	s.self = ready.User
	s.userSettings = ready.UserSettings
	if len(s.userSettings.GuildPositions) == 0 {
		s.userSettings.GuildPositions = local
	}
	s.sessionID = ready.SessionID
	s.users[ready.User.ID] = &ready.User

	for i := range ready.Guilds {
		s.UpsertGuild(&ready.Guilds[i])
	}
	for i := range ready.PrivateChannels {
		s.UpsertChannel(&ready.PrivateChannels[i])
	}
}

// UpsertGuild stores a guild. A full payload replaces a prior stub
// wholesale; a stub never overwrites a full guild already present (the
// unavailable marker alone does not invalidate mirrored data).
func (s *State) UpsertGuild(g *Guild) {
	if existing, ok := s.guilds[g.ID]; ok && g.IsUnavailable && !existing.IsUnavailable {
		existing.IsUnavailable = true
		return
	}

	copied := *g
	s.guilds[g.ID] = &copied
	for i := range copied.Channels {
		ch := copied.Channels[i]
		if !ch.GuildID.IsValid() {
			ch.GuildID = copied.ID
		}
		s.UpsertChannel(&ch)
	}
}

// RemoveGuild drops a guild and its channels from the mirror.
func (s *State) RemoveGuild(id Snowflake) {
	g, ok := s.guilds[id]
	if !ok {
		return
	}
	for i := range g.Channels {
		delete(s.channels, g.Channels[i].ID)
	}
	delete(s.guilds, id)
}

// UpsertChannel stores a channel and merges it into its owning guild's
// channel list. A channel's guild ID, once set, is immutable.
func (s *State) UpsertChannel(c *Channel) {
	copied := *c
	if existing, ok := s.channels[c.ID]; ok && existing.GuildID.IsValid() {
		copied.GuildID = existing.GuildID
	}
	s.channels[copied.ID] = &copied

	g, ok := s.guilds[copied.GuildID]
	if !ok {
		return
	}
	for i := range g.Channels {
		if g.Channels[i].ID == copied.ID {
			g.Channels[i] = copied
			return
		}
	}
	g.Channels = append(g.Channels, copied)
}

// AddMessage stores a message and advances the channel's oldest-seen
// pagination cursor when this message precedes it.
func (s *State) AddMessage(m *Message) {
	byID, ok := s.messages[m.ChannelID]
	if !ok {
		byID = make(map[Snowflake]*Message)
		s.messages[m.ChannelID] = byID
	}

	copied := *m
	byID[m.ID] = &copied
	s.users[m.Author.ID] = &copied.Author

	oldest, ok := s.oldestMessage[m.ChannelID]
	if !ok || m.ID < oldest {
		s.oldestMessage[m.ChannelID] = m.ID
	}
}

// PatchMessage applies a message-edit payload to the stored message,
// mutating only the fields present in the payload. Edits for messages not
// in the mirror are ignored.
func (s *State) PatchMessage(channelID, messageID Snowflake, data []byte) error {
	byID, ok := s.messages[channelID]
	if !ok {
		return nil
	}
	m, ok := byID[messageID]
	if !ok {
		return nil
	}
	return m.PatchFromEdit(data)
}

// RemoveMessage drops a message from the mirror.
func (s *State) RemoveMessage(channelID, messageID Snowflake) {
	if byID, ok := s.messages[channelID]; ok {
		delete(byID, messageID)
	}
}

// SetMemberList replaces the synced member list window for a guild. Order
// is preserved: a group header is followed by the member rows it groups.
func (s *State) SetMemberList(guildID Snowflake, items []MemberListItem) {
	s.memberLists[guildID] = items
}

// MemberList returns the synced member list items for a guild.
func (s *State) MemberList(guildID Snowflake) []MemberListItem {
	items := s.memberLists[guildID]
	out := make([]MemberListItem, len(items))
	copy(out, items)
	return out
}

// Guild returns a snapshot of the guild, if mirrored.
func (s *State) Guild(id Snowflake) (Guild, bool) {
	g, ok := s.guilds[id]
	if !ok {
		return Guild{}, false
	}
	return *g, true
}

// Channel returns a snapshot of the channel, if mirrored.
func (s *State) Channel(id Snowflake) (Channel, bool) {
	c, ok := s.channels[id]
	if !ok {
		return Channel{}, false
	}
	return *c, true
}

// Message returns a snapshot of a mirrored message.
func (s *State) Message(channelID, messageID Snowflake) (Message, bool) {
	byID, ok := s.messages[channelID]
	if !ok {
		return Message{}, false
	}
	m, ok := byID[messageID]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// ChannelMessages returns the mirrored messages of a channel in
// chronological (snowflake) order.
func (s *State) ChannelMessages(channelID Snowflake) []Message {
	byID := s.messages[channelID]
	out := make([]Message, 0, len(byID))
	for _, m := range byID {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SortedGuilds returns guild snapshots ordered by the user's guild-position
// settings; guilds absent from the list follow in snowflake order.
func (s *State) SortedGuilds() []Guild {
	positions := s.userSettings.GuildPositions

	listed := make(map[Snowflake]struct{}, len(positions))
	out := make([]Guild, 0, len(s.guilds))
	for _, id := range positions {
		if g, ok := s.guilds[id]; ok {
			out = append(out, *g)
			listed[id] = struct{}{}
		}
	}

	rest := make([]Guild, 0)
	for id, g := range s.guilds {
		if _, ok := listed[id]; !ok {
			rest = append(rest, *g)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })

	return append(out, rest...)
}

// SetGuildPositions records a new user-driven guild ordering.
func (s *State) SetGuildPositions(positions []Snowflake) {
	s.userSettings.GuildPositions = append([]Snowflake(nil), positions...)
}

// GuildPositions returns the current guild-position ordering.
func (s *State) GuildPositions() []Snowflake {
	return append([]Snowflake(nil), s.userSettings.GuildPositions...)
}

// Self returns the authenticated user from the Ready snapshot.
func (s *State) Self() User {
	return s.self
}

// SessionID returns the gateway session identifier.
func (s *State) SessionID() string {
	return s.sessionID
}

// MarkRequested records that a channel's first message page has been
// fetched. It reports false if the channel was already marked, which is
// the request de-duplication signal.
func (s *State) MarkRequested(channelID Snowflake) bool {
	if _, ok := s.requested[channelID]; ok {
		return false
	}
	s.requested[channelID] = struct{}{}
	return true
}

// UnmarkRequested clears the first-page mark so a failed fetch can be
// retried.
func (s *State) UnmarkRequested(channelID Snowflake) {
	delete(s.requested, channelID)
}

// OldestMessage returns the pagination cursor for loading older history.
func (s *State) OldestMessage(channelID Snowflake) Snowflake {
	return s.oldestMessage[channelID]
}

// BeginHistoryFetch marks a channel as loading older history. It reports
// false, without changing any bookkeeping, when the channel is already
// loading or its history is exhausted: such a request is a no-op, not an
// error.
func (s *State) BeginHistoryFetch(channelID Snowflake) bool {
	if _, ok := s.historyExhausted[channelID]; ok {
		return false
	}
	if _, ok := s.historyLoading[channelID]; ok {
		return false
	}
	s.historyLoading[channelID] = struct{}{}
	return true
}

// EndHistoryFetch clears the in-flight mark for a channel. An empty page
// marks the channel's history exhausted; otherwise the pagination cursor
// moves to the oldest message received.
func (s *State) EndHistoryFetch(channelID Snowflake, oldest Snowflake, exhausted bool) {
	delete(s.historyLoading, channelID)
	if exhausted {
		s.historyExhausted[channelID] = struct{}{}
		return
	}
	if oldest.IsValid() {
		s.oldestMessage[channelID] = oldest
	}
}

// HistoryLoading reports whether a history fetch is in flight for the
// channel.
func (s *State) HistoryLoading(channelID Snowflake) bool {
	_, ok := s.historyLoading[channelID]
	return ok
}

// HistoryExhausted reports whether the channel's history has been fully
// paged through.
func (s *State) HistoryExhausted(channelID Snowflake) bool {
	_, ok := s.historyExhausted[channelID]
	return ok
}

// ClearHistoryState drops all per-channel history bookkeeping. Called on
// disconnect so a reconnect does not suppress fetches based on stale
// in-flight or requested marks.
func (s *State) ClearHistoryState() {
	s.requested = make(map[Snowflake]struct{})
	s.historyLoading = make(map[Snowflake]struct{})
	s.historyExhausted = make(map[Snowflake]struct{})
	s.oldestMessage = make(map[Snowflake]Snowflake)
}
