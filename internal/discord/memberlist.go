package discord

import (
	"encoding/json"
)

// The member list is lazy-loaded: the client subscribes to row ranges and
// the gateway answers with ops over a heterogeneous item list mixing group
// headers and member rows. Item order is significant (a header is followed
// by the members it groups) and unknown item shapes are skipped, never
// fatal.

// MemberListItem is either a *MemberListGroup or a *MemberListMember.
type MemberListItem interface {
	memberListItem()
}

// MemberListGroup is a group header row (a hoisted role or online/offline
// bucket) followed by Count member rows.
type MemberListGroup struct {
	ID    string
	Count int
}

func (*MemberListGroup) memberListItem() {}

func (g *MemberListGroup) UnmarshalJSON(data []byte) error {
	const entity = "member list group"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "id", &g.ID); err != nil {
		return err
	}
	if err := required(obj, entity, "count", &g.Count); err != nil {
		return err
	}
	return nil
}

// MemberListMember is a member row. The row payload doubles as a guild
// member record, so the decoded secondary view is retained and exposed
// through Member() to avoid a second decode pass elsewhere.
type MemberListMember struct {
	User         User
	Roles        []Snowflake
	IsMuted      bool
	IsDeafened   bool
	JoinedAt     string
	HoistedRole  *Snowflake
	PremiumSince *string
	Nickname     *string

	member GuildMember
}

func (*MemberListMember) memberListItem() {}

// Member returns the guild-member view of this row.
func (m *MemberListMember) Member() GuildMember {
	return m.member
}

func (m *MemberListMember) UnmarshalJSON(data []byte) error {
	const entity = "member list member"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "user", &m.User); err != nil {
		return err
	}
	if err := required(obj, entity, "roles", &m.Roles); err != nil {
		return err
	}
	if err := required(obj, entity, "mute", &m.IsMuted); err != nil {
		return err
	}
	if err := required(obj, entity, "deaf", &m.IsDeafened); err != nil {
		return err
	}
	if err := required(obj, entity, "joined_at", &m.JoinedAt); err != nil {
		return err
	}
	if err := requiredNullable(obj, entity, "hoisted_role", &m.HoistedRole); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "premium_since", &m.PremiumSince); err != nil {
		return err
	}
	if err := optionalNullable(obj, entity, "nick", &m.Nickname); err != nil {
		return err
	}

	if err := json.Unmarshal(data, &m.member); err != nil {
		return err
	}
	return nil
}

// MemberListOp is one incremental operation over a member list window. Only
// SYNC ops carry items; other op kinds are structurally decoded but itemless.
type MemberListOp struct {
	Op    string
	Range [2]int
	Items []MemberListItem
}

func (o *MemberListOp) UnmarshalJSON(data []byte) error {
	const entity = "member list op"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "op", &o.Op); err != nil {
		return err
	}

	if o.Op != "SYNC" {
		return nil
	}

	if err := required(obj, entity, "range", &o.Range); err != nil {
		return err
	}

	var items []jsonObject
	if err := required(obj, entity, "items", &items); err != nil {
		return err
	}

	for _, item := range items {
		switch {
		case !isNull(item["group"]):
			var g MemberListGroup
			if err := json.Unmarshal(item["group"], &g); err != nil {
				return err
			}
			o.Items = append(o.Items, &g)
		case !isNull(item["member"]):
			var m MemberListMember
			if err := json.Unmarshal(item["member"], &m); err != nil {
				return err
			}
			o.Items = append(o.Items, &m)
		default:
			// Unknown item shape: skip, keep the rest in order.
		}
	}
	return nil
}

// GuildMemberListUpdate is the GUILD_MEMBER_LIST_UPDATE dispatch payload.
type GuildMemberListUpdate struct {
	OnlineCount int
	MemberCount int
	ListID      string
	GuildID     Snowflake
	Groups      []MemberListGroup
	Ops         []MemberListOp
}

func (u *GuildMemberListUpdate) UnmarshalJSON(data []byte) error {
	const entity = "member list update"
	obj, err := decodeObject(data, entity)
	if err != nil {
		return err
	}

	if err := required(obj, entity, "online_count", &u.OnlineCount); err != nil {
		return err
	}
	if err := required(obj, entity, "member_count", &u.MemberCount); err != nil {
		return err
	}
	if err := required(obj, entity, "id", &u.ListID); err != nil {
		return err
	}
	if err := required(obj, entity, "guild_id", &u.GuildID); err != nil {
		return err
	}
	if err := required(obj, entity, "groups", &u.Groups); err != nil {
		return err
	}
	if err := required(obj, entity, "ops", &u.Ops); err != nil {
		return err
	}
	return nil
}
