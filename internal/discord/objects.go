package discord

// Domain entities mirrored from the gateway's dispatch payloads. Each
// UnmarshalJSON applies the per-field presence policies from json.go;
// nullable fields are pointers so "unset" stays distinguishable from a
// zero value.

// User is an account on the service.
type User struct {
	ID            Snowflake
	Username      string
	Discriminator string
	Avatar        *string
	IsBot         bool
	IsSystem      bool
	IsMFAEnabled  bool
	Locale        string
	IsVerified    bool
	Email         string
	Flags         int
	PremiumType   *int
	PublicFlags   int
	IsDesktop     bool
	IsMobile      bool
}

func (u *User) UnmarshalJSON(data []byte) error {
	const entity = "user"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &u.ID); err != nil {
		return err
	}
	if err := required(obj, entity, "username", &u.Username); err != nil {
		return err
	}
	if err := required(obj, entity, "discriminator", &u.Discriminator); err != nil {
		return err
	}
	if err := requiredNullable(obj, entity, "avatar", &u.Avatar); err != nil {
		return err
	}
	if err := optional(obj, entity, "bot", &u.IsBot); err != nil {
		return err
	}
	if err := optional(obj, entity, "system", &u.IsSystem); err != nil {
		return err
	}
	if err := optional(obj, entity, "mfa_enabled", &u.IsMFAEnabled); err != nil {
		return err
	}
	if err := optional(obj, entity, "locale", &u.Locale); err != nil {
		return err
	}
	if err := optional(obj, entity, "verified", &u.IsVerified); err != nil {
		return err
	}
	if err := optional(obj, entity, "email", &u.Email); err != nil {
		return err
	}
	if err := optional(obj, entity, "flags", &u.Flags); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "premium_type", &u.PremiumType); err != nil {
		return err
	}
	if err := optional(obj, entity, "public_flags", &u.PublicFlags); err != nil {
		return err
	}
	if err := optional(obj, entity, "desktop", &u.IsDesktop); err != nil {
		return err
	}
	if err := optional(obj, entity, "mobile", &u.IsMobile); err != nil {
		return err
	}
	return nil
}

// Role is a guild role. Permissions arrive as a decimal string because the
// bitset exceeds safe-integer range for some peers.
type Role struct {
	ID            Snowflake
	Name          string
	Color         int
	IsHoisted     bool
	Position      int
	Permissions   uint64
	IsManaged     bool
	IsMentionable bool
}

func (r *Role) UnmarshalJSON(data []byte) error {
	const entity = "role"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &r.ID); err != nil {
		return err
	}
	if err := required(obj, entity, "name", &r.Name); err != nil {
		return err
	}
	if err := required(obj, entity, "color", &r.Color); err != nil {
		return err
	}
	if err := required(obj, entity, "hoist", &r.IsHoisted); err != nil {
		return err
	}
	if err := required(obj, entity, "position", &r.Position); err != nil {
		return err
	}
	if err := requiredUintString(obj, entity, "permissions", &r.Permissions); err != nil {
		return err
	}
	if err := required(obj, entity, "managed", &r.IsManaged); err != nil {
		return err
	}
	if err := required(obj, entity, "mentionable", &r.IsMentionable); err != nil {
		return err
	}
	return nil
}

// GuildMember is a user's membership record within a guild.
type GuildMember struct {
	User         *User
	Nickname     *string
	Roles        []Snowflake
	JoinedAt     string
	PremiumSince *string
	IsDeafened   bool
	IsMuted      bool
}

func (m *GuildMember) UnmarshalJSON(data []byte) error {
	const entity = "guild member"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := optional(obj, entity, "user", &m.User); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "nick", &m.Nickname); err != nil {
		return err
	}
	if err := required(obj, entity, "roles", &m.Roles); err != nil {
		return err
	}
	if err := required(obj, entity, "joined_at", &m.JoinedAt); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "premium_since", &m.PremiumSince); err != nil {
		return err
	}
	if err := required(obj, entity, "deaf", &m.IsDeafened); err != nil {
		return err
	}
	if err := required(obj, entity, "mute", &m.IsMuted); err != nil {
		return err
	}
	return nil
}

// Guild is a server. When the gateway marks a guild unavailable it sends
// only the ID and the unavailable flag; decoding short-circuits and leaves
// every other field unset. The stub is replaced wholesale once the full
// guild arrives.
type Guild struct {
	ID                Snowflake
	Name              string
	Icon              *string
	Splash            *string
	IsOwner           bool
	OwnerID           Snowflake
	VoiceRegion       string
	VerificationLevel int
	Roles             []Role
	Features          []string
	IsLarge           bool
	IsUnavailable     bool
	MemberCount       int
	Channels          []Channel
	VanityURL         *string
	Banner            *string
	PremiumTier       int
}

func (g *Guild) UnmarshalJSON(data []byte) error {
	const entity = "guild"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &g.ID); err != nil {
		return err
	}

	// An unavailable guild is a stub, not an error: nothing past the ID is
	// trustworthy, so decoding stops here.
	if _, ok := obj["unavailable"]; ok {
		g.IsUnavailable = true
		return nil
	}

	if err := required(obj, entity, "name", &g.Name); err != nil {
		return err
	}
	if err := requiredNullable(obj, entity, "icon", &g.Icon); err != nil {
		return err
	}
	if err := requiredNullable(obj, entity, "splash", &g.Splash); err != nil {
		return err
	}
	if err := optional(obj, entity, "owner", &g.IsOwner); err != nil {
		return err
	}
	if err := required(obj, entity, "owner_id", &g.OwnerID); err != nil {
		return err
	}
	if err := required(obj, entity, "region", &g.VoiceRegion); err != nil {
		return err
	}
	if err := required(obj, entity, "verification_level", &g.VerificationLevel); err != nil {
		return err
	}
	if err := required(obj, entity, "roles", &g.Roles); err != nil {
		return err
	}
	if err := required(obj, entity, "features", &g.Features); err != nil {
		return err
	}
	if err := optional(obj, entity, "large", &g.IsLarge); err != nil {
		return err
	}
	if err := optional(obj, entity, "member_count", &g.MemberCount); err != nil {
		return err
	}
	if err := optional(obj, entity, "channels", &g.Channels); err != nil {
		return err
	}
	if err := requiredNullable(obj, entity, "vanity_url_code", &g.VanityURL); err != nil {
		return err
	}
	if err := requiredNullable(obj, entity, "banner", &g.Banner); err != nil {
		return err
	}
	if err := required(obj, entity, "premium_tier", &g.PremiumTier); err != nil {
		return err
	}
	return nil
}

// Channel is a guild channel or DM conversation.
type Channel struct {
	ID               Snowflake
	Type             int
	GuildID          Snowflake
	Position         int
	Name             *string
	Topic            *string
	IsNSFW           bool
	LastMessageID    *Snowflake
	Bitrate          int
	UserLimit        int
	RateLimitPerUser int
	Recipients       []User
	OwnerID          Snowflake
	ParentID         *Snowflake
	LastPinTimestamp *string
}

func (c *Channel) UnmarshalJSON(data []byte) error {
	const entity = "channel"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &c.ID); err != nil {
		return err
	}
	if err := required(obj, entity, "type", &c.Type); err != nil {
		return err
	}
	if err := optional(obj, entity, "guild_id", &c.GuildID); err != nil {
		return err
	}
	if err := optional(obj, entity, "position", &c.Position); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "name", &c.Name); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "topic", &c.Topic); err != nil {
		return err
	}
	if err := optional(obj, entity, "nsfw", &c.IsNSFW); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "last_message_id", &c.LastMessageID); err != nil {
		return err
	}
	if err := optional(obj, entity, "bitrate", &c.Bitrate); err != nil {
		return err
	}
	if err := optional(obj, entity, "user_limit", &c.UserLimit); err != nil {
		return err
	}
	if err := optional(obj, entity, "rate_limit_per_user", &c.RateLimitPerUser); err != nil {
		return err
	}
	if err := optional(obj, entity, "recipients", &c.Recipients); err != nil {
		return err
	}
	if err := optional(obj, entity, "owner_id", &c.OwnerID); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "parent_id", &c.ParentID); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "last_pin_timestamp", &c.LastPinTimestamp); err != nil {
		return err
	}
	return nil
}

// Message is a chat message in a channel.
type Message struct {
	ID                  Snowflake
	ChannelID           Snowflake
	GuildID             Snowflake
	Author              User
	Content             string
	Timestamp           string
	EditedTimestamp     *string
	IsTTS               bool
	DoesMentionEveryone bool
	Mentions            []User
	Embeds              []Embed
	Nonce               string
	IsPinned            bool
	WebhookID           Snowflake
	Type                int
	Flags               int
}

func (m *Message) UnmarshalJSON(data []byte) error {
	const entity = "message"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &m.ID); err != nil {
		return err
	}
	if err := required(obj, entity, "channel_id", &m.ChannelID); err != nil {
		return err
	}
	if err := optional(obj, entity, "guild_id", &m.GuildID); err != nil {
		return err
	}
	if err := required(obj, entity, "author", &m.Author); err != nil {
		return err
	}
	if err := required(obj, entity, "content", &m.Content); err != nil {
		return err
	}
	if err := required(obj, entity, "timestamp", &m.Timestamp); err != nil {
		return err
	}
	if err := requiredNullable(obj, entity, "edited_timestamp", &m.EditedTimestamp); err != nil {
		return err
	}
	if err := required(obj, entity, "tts", &m.IsTTS); err != nil {
		return err
	}
	if err := required(obj, entity, "mention_everyone", &m.DoesMentionEveryone); err != nil {
		return err
	}
	if err := required(obj, entity, "mentions", &m.Mentions); err != nil {
		return err
	}
	if err := required(obj, entity, "embeds", &m.Embeds); err != nil {
		return err
	}
	if err := optional(obj, entity, "nonce", &m.Nonce); err != nil {
		return err
	}
	if err := required(obj, entity, "pinned", &m.IsPinned); err != nil {
		return err
	}
	if err := optional(obj, entity, "webhook_id", &m.WebhookID); err != nil {
		return err
	}
	if err := required(obj, entity, "type", &m.Type); err != nil {
		return err
	}
	if err := optional(obj, entity, "flags", &m.Flags); err != nil {
		return err
	}
	return nil
}

// PatchFromEdit applies a message-update payload onto the receiver. An edit
// carries only the changed subset, so every field except the ID and channel
// ID is optional and an absent field leaves the current value untouched.
func (m *Message) PatchFromEdit(data []byte) error {
	const entity = "message edit"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &m.ID); err != nil {
		return err
	}
	if err := required(obj, entity, "channel_id", &m.ChannelID); err != nil {
		return err
	}
	if err := optional(obj, entity, "guild_id", &m.GuildID); err != nil {
		return err
	}
	if err := optional(obj, entity, "author", &m.Author); err != nil {
		return err
	}
	if err := optional(obj, entity, "content", &m.Content); err != nil {
		return err
	}
	if err := optional(obj, entity, "timestamp", &m.Timestamp); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "edited_timestamp", &m.EditedTimestamp); err != nil {
		return err
	}
	if err := optional(obj, entity, "tts", &m.IsTTS); err != nil {
		return err
	}
	if err := optional(obj, entity, "mention_everyone", &m.DoesMentionEveryone); err != nil {
		return err
	}
	if err := optional(obj, entity, "mentions", &m.Mentions); err != nil {
		return err
	}
	if err := optional(obj, entity, "embeds", &m.Embeds); err != nil {
		return err
	}
	if err := optional(obj, entity, "nonce", &m.Nonce); err != nil {
		return err
	}
	if err := optional(obj, entity, "pinned", &m.IsPinned); err != nil {
		return err
	}
	if err := optional(obj, entity, "webhook_id", &m.WebhookID); err != nil {
		return err
	}
	if err := optional(obj, entity, "type", &m.Type); err != nil {
		return err
	}
	if err := optional(obj, entity, "flags", &m.Flags); err != nil {
		return err
	}
	return nil
}

// MessageDelete is the payload of a message-delete dispatch event.
type MessageDelete struct {
	ID        Snowflake
	ChannelID Snowflake
	GuildID   Snowflake
}

func (d *MessageDelete) UnmarshalJSON(data []byte) error {
	const entity = "message delete"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &d.ID); err != nil {
		return err
	}
	if err := required(obj, entity, "channel_id", &d.ChannelID); err != nil {
		return err
	}
	if err := optional(obj, entity, "guild_id", &d.GuildID); err != nil {
		return err
	}
	return nil
}

// GuildDelete is the payload of a guild-delete dispatch event. It carries
// only the ID plus the unavailable flag: flagged means the guild went into
// an outage, unflagged means the user actually left or the guild was
// removed.
type GuildDelete struct {
	ID            Snowflake
	IsUnavailable bool
}

func (d *GuildDelete) UnmarshalJSON(data []byte) error {
	const entity = "guild delete"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &d.ID); err != nil {
		return err
	}
	if err := optional(obj, entity, "unavailable", &d.IsUnavailable); err != nil {
		return err
	}
	return nil
}

// Embed and its sub-objects are all-optional bags of presentational
// metadata; none of their fields are load-bearing for protocol correctness,
// so plain struct tags carry the absent-leaves-zero semantics.

type EmbedFooter struct {
	Text         string `json:"text,omitempty"`
	IconURL      string `json:"icon_url,omitempty"`
	ProxyIconURL string `json:"proxy_icon_url,omitempty"`
}

type EmbedImage struct {
	URL      string `json:"url,omitempty"`
	ProxyURL string `json:"proxy_url,omitempty"`
	Height   int    `json:"height,omitempty"`
	Width    int    `json:"width,omitempty"`
}

type EmbedThumbnail struct {
	URL      string `json:"url,omitempty"`
	ProxyURL string `json:"proxy_url,omitempty"`
	Height   int    `json:"height,omitempty"`
	Width    int    `json:"width,omitempty"`
}

type EmbedVideo struct {
	URL    string `json:"url,omitempty"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

type EmbedProvider struct {
	Name string  `json:"name,omitempty"`
	URL  *string `json:"url,omitempty"`
}

type EmbedAuthor struct {
	Name         string `json:"name,omitempty"`
	URL          string `json:"url,omitempty"`
	IconURL      string `json:"icon_url,omitempty"`
	ProxyIconURL string `json:"proxy_icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string          `json:"title,omitempty"`
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	Color       int             `json:"color,omitempty"`
	Footer      *EmbedFooter    `json:"footer,omitempty"`
	Image       *EmbedImage     `json:"image,omitempty"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
	Video       *EmbedVideo     `json:"video,omitempty"`
	Provider    *EmbedProvider  `json:"provider,omitempty"`
	Author      *EmbedAuthor    `json:"author,omitempty"`
	Fields      []EmbedField    `json:"fields,omitempty"`
}

// UserSettings is the per-user preference blob delivered with Ready. None
// of its fields are protocol-critical, so every field is optional-default;
// GuildPositions drives the user-sorted guild ordering.
type UserSettings struct {
	TimezoneOffset        int         `json:"timezone_offset"`
	Theme                 string      `json:"theme"`
	Status                string      `json:"status"`
	Locale                string      `json:"locale"`
	MessageDisplayCompact bool        `json:"message_display_compact"`
	DeveloperMode         bool        `json:"developer_mode"`
	GuildPositions        []Snowflake `json:"guild_positions"`
	AFKTimeout            int         `json:"afk_timeout"`
}

// ReadyEventData is the handshake-completion snapshot that seeds the local
// state store.
type ReadyEventData struct {
	GatewayVersion  int
	User            User
	Guilds          []Guild
	SessionID       string
	UserSettings    UserSettings
	PrivateChannels []Channel
}

func (r *ReadyEventData) UnmarshalJSON(data []byte) error {
	const entity = "ready"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "v", &r.GatewayVersion); err != nil {
		return err
	}
	if err := required(obj, entity, "user", &r.User); err != nil {
		return err
	}
	if err := required(obj, entity, "guilds", &r.Guilds); err != nil {
		return err
	}
	if err := required(obj, entity, "session_id", &r.SessionID); err != nil {
		return err
	}
	if err := optional(obj, entity, "user_settings", &r.UserSettings); err != nil {
		return err
	}
	if err := optional(obj, entity, "private_channels", &r.PrivateChannels); err != nil {
		return err
	}
	return nil
}
