package ircd

import "strings"

// maxBans is the ban mask cap the data model places on every channel.
const maxBans = 3

// ChannelModes is the {p,s,i,t,n,m,l,k} flag set. Limit and Key
// carry l's and k's auxiliary values; they are meaningful only while
// their bit is set.
type ChannelModes struct {
	Private     bool
	Secret      bool
	InviteOnly  bool
	TopicLocked bool
	NoExternal  bool
	Moderated   bool
	LimitSet    bool
	KeySet      bool
}

// Channel holds everything the data model attributes to a channel.
// Invariants: Admins ⊆ Members, Voiced ⊆ Members, len(Bans) <= 3, Limit
// never drops below current membership once set. RemoveMember, AddBan and
// SetLimit enforce theirs; PromoteAdmin and Voice leave the membership
// check to the caller.
type Channel struct {
	Name string

	// Members, Admins and Voiced are ordered nickname lists, not sets, so
	// NAMES/WHO output is stable and matches join order, which a map
	// could not give us.
	Members []string
	Admins  []string
	Voiced  []string

	Topic string
	Bans  []string
	Limit int
	Key   string

	Modes ChannelModes

	// invited holds nicknames an admin has invited past +i, consumed by
	// the next matching JOIN.
	invited []string
}

// NewChannel creates an empty channel, ready for its first JOIN.
func NewChannel(name string) *Channel {
	return &Channel{Name: name}
}

func containsNick(list []string, nick string) bool {
	for _, n := range list {
		if n == nick {
			return true
		}
	}
	return false
}

func removeNick(list []string, nick string) []string {
	out := list[:0:0]
	for _, n := range list {
		if n != nick {
			out = append(out, n)
		}
	}
	return out
}

// IsMember reports whether nick has joined the channel.
func (c *Channel) IsMember(nick string) bool { return containsNick(c.Members, nick) }

// IsAdmin reports whether nick is a channel operator.
func (c *Channel) IsAdmin(nick string) bool { return containsNick(c.Admins, nick) }

// IsVoiced reports whether nick may speak while the channel is moderated.
func (c *Channel) IsVoiced(nick string) bool { return containsNick(c.Voiced, nick) }

// IsFull reports whether the channel is at its enforced member limit.
func (c *Channel) IsFull() bool {
	return c.Modes.LimitSet && len(c.Members) >= c.Limit
}

// IsBanned reports whether uhost (nick!user@host) matches any ban mask.
func (c *Channel) IsBanned(uhost string) bool {
	at := strings.IndexByte(uhost, '@')
	bang := strings.IndexByte(uhost, '!')
	if bang < 0 || at < 0 || at < bang {
		return false
	}
	user := uhost[bang+1 : at]
	host := uhost[at+1:]

	for _, mask := range c.Bans {
		mb := strings.TrimPrefix(mask, "!")
		parts := strings.SplitN(mb, "@", 2)
		if len(parts) != 2 {
			continue
		}
		if matchMaskPart(parts[0], user) && matchMaskPart(parts[1], host) {
			return true
		}
	}
	return false
}

// matchMaskPart matches a literal, the universal wildcard "*", or a
// "*<suffix>" pattern against value.
func matchMaskPart(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(value, pattern[1:])
	}
	return pattern == value
}

// AddMember appends nick to Members. makeAdmin marks it an operator in
// the same call, since the first joiner of a freshly created channel
// must become a member and admin atomically.
func (c *Channel) AddMember(nick string, makeAdmin bool) {
	c.Members = append(c.Members, nick)
	if makeAdmin {
		c.Admins = append(c.Admins, nick)
	}
}

// RemoveMember drops nick from Members, Admins and Voiced, preserving
// admins ⊆ members and voiced ⊆ members.
func (c *Channel) RemoveMember(nick string) {
	c.Members = removeNick(c.Members, nick)
	c.Admins = removeNick(c.Admins, nick)
	c.Voiced = removeNick(c.Voiced, nick)
}

// SetLimit applies the one-shot, never-lowered-below-membership limit
// semantics: a limit below current membership is silently ignored, and
// once a limit is set it cannot be changed again until ClearLimit runs
// (so "+l 5" then "+l 10" retains 5).
func (c *Channel) SetLimit(n int) {
	if c.Modes.LimitSet {
		return
	}
	if n < len(c.Members) {
		return
	}
	c.Limit = n
	c.Modes.LimitSet = true
}

// ClearLimit removes the membership cap.
func (c *Channel) ClearLimit() {
	c.Limit = 0
	c.Modes.LimitSet = false
}

// SetKey stores pw as the join key. ok is false if a key is already set,
// since a key can only be set when none is set.
func (c *Channel) SetKey(pw string) (ok bool) {
	if c.Modes.KeySet {
		return false
	}
	c.Key = pw
	c.Modes.KeySet = true
	return true
}

// ClearKey removes the join key.
func (c *Channel) ClearKey() {
	c.Key = ""
	c.Modes.KeySet = false
}

// AddBan appends mask to Bans if it is not already present and the list
// has not reached its cap of 3. ok reports whether it was added.
func (c *Channel) AddBan(mask string) (ok bool) {
	if containsNick(c.Bans, mask) {
		return false
	}
	if len(c.Bans) >= maxBans {
		return false
	}
	c.Bans = append(c.Bans, mask)
	return true
}

// RemoveBan drops mask from Bans if present.
func (c *Channel) RemoveBan(mask string) {
	out := c.Bans[:0:0]
	for _, m := range c.Bans {
		if m != mask {
			out = append(out, m)
		}
	}
	c.Bans = out
}

// Voice marks nick as voiced. The caller is responsible for checking
// membership first.
func (c *Channel) Voice(nick string) {
	if !containsNick(c.Voiced, nick) {
		c.Voiced = append(c.Voiced, nick)
	}
}

// Devoice removes nick's voiced status.
func (c *Channel) Devoice(nick string) {
	c.Voiced = removeNick(c.Voiced, nick)
}

// PromoteAdmin grants nick channel-operator status.
func (c *Channel) PromoteAdmin(nick string) {
	if !containsNick(c.Admins, nick) {
		c.Admins = append(c.Admins, nick)
	}
}

// DemoteAdmin revokes nick's channel-operator status.
func (c *Channel) DemoteAdmin(nick string) {
	c.Admins = removeNick(c.Admins, nick)
}

// CanSpeak reports whether nick may send a message to the channel given
// its current n/m modes: n restricts non-members, m restricts
// non-admins/non-voiced.
func (c *Channel) CanSpeak(nick string) bool {
	member := c.IsMember(nick)
	if c.Modes.NoExternal && !member {
		return false
	}
	if c.Modes.Moderated && !c.IsAdmin(nick) && !c.IsVoiced(nick) {
		return false
	}
	return true
}

// IsFederated reports whether this channel's membership is gossiped
// network-wide, which is only true of &-channels.
func (c *Channel) IsFederated() bool {
	return strings.HasPrefix(c.Name, "&")
}

// ValidChannelName checks the name constraints: starts with # or &,
// length <= 200, and no space, comma, or 0x07 byte.
func ValidChannelName(name string) bool {
	if len(name) == 0 || len(name) > 200 {
		return false
	}
	if name[0] != '#' && name[0] != '&' {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case ' ', ',', 0x07:
			return false
		}
	}
	return true
}
