package ircd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/catbox-mesh/ircd/internal/message"
	"github.com/catbox-mesh/ircd/internal/reply"
)

func cmdJoin(d *Daemon, u *User, m message.Message) {
	if len(m.Params) == 0 || len(m.Params[0]) == 0 {
		u.Send(numericLine(d.Name, reply.ERRNeedMoreParams, u.Nick, "JOIN :Not enough parameters"))
		return
	}

	names := strings.Split(m.Params[0], ",")
	keys := make([]string, len(names))
	if len(m.Params) > 1 {
		given := strings.Split(m.Params[1], ",")
		copy(keys, given)
	}

	for i, name := range names {
		joinOne(d, u, name, keys[i])
	}
}

func joinOne(d *Daemon, u *User, name, key string) {
	if !ValidChannelName(name) {
		u.Send(numericLine(d.Name, reply.ERRNoSuchChannel, u.Nick, name+" :No such channel"))
		return
	}

	c, created := d.GetOrCreateChannel(name)

	if created {
		c.AddMember(u.Nick, true)
	} else {
		if c.IsMember(u.Nick) {
			return
		}
		if c.Modes.InviteOnly && !consumeInvite(c, u.Nick) {
			u.Send(numericLine(d.Name, reply.ERRInviteOnlyChan, u.Nick, name+" :Cannot join channel (+i)"))
			return
		}
		if c.IsBanned(u.NickUhost()) {
			u.Send(numericLine(d.Name, reply.ERRBannedFromChan, u.Nick, name+" :Cannot join channel (+b)"))
			return
		}
		if c.IsFull() {
			u.Send(numericLine(d.Name, reply.ERRChannelIsFull, u.Nick, name+" :Cannot join channel (+l)"))
			return
		}
		if c.Modes.KeySet && c.Key != key {
			u.Send(numericLine(d.Name, reply.ERRBadChannelKey, u.Nick, name+" :Cannot join channel (+k)"))
			return
		}
		c.AddMember(u.Nick, false)
	}

	u.Channels[CanonicalChannel(name)] = struct{}{}

	joinLine := fmt.Sprintf(":%s JOIN %s", u.NickUhost(), name)
	for _, nick := range c.Members {
		if member, ok := d.GetUser(nick); ok && member.IsLocal() {
			member.Send(joinLine)
		}
	}

	sendJoinTopic(d, u, c)
	sendNames(d, u, c)

	if created {
		for _, other := range d.LocalUsers() {
			other.Send(fmt.Sprintf(":%s 322 %s %s %d :%s", d.Name, other.Nick, c.Name, len(c.Members), c.Topic))
		}
	} else {
		u.Send(fmt.Sprintf(":%s 322 %s %s %d :%s", d.Name, u.Nick, c.Name, len(c.Members), c.Topic))
	}

	if c.IsFederated() {
		d.BroadcastToPeers(joinLine, "")
	}
}

// consumeInvite implements invite-only gating: invites are tracked per
// channel by cmdInvite and consumed here. Channels with
// no pending invite for nick simply fail the gate.
func consumeInvite(c *Channel, nick string) bool {
	for i, inv := range c.invited {
		if inv == nick {
			c.invited = append(c.invited[:i], c.invited[i+1:]...)
			return true
		}
	}
	return false
}

// sendJoinTopic emits JOIN's unconditional [332], empty payload when no
// topic is set. Unlike the TOPIC query form, JOIN never sends [331]:
// both the create and the existing-channel branches of §4.4 list only
// [332], and the original's join_msg/add_user_to_channel always push
// rpl_topic, never rpl_no_topic.
func sendJoinTopic(d *Daemon, u *User, c *Channel) {
	u.Send(fmt.Sprintf(":%s %s %s %s :%s", d.Name, reply.RPLTopic, u.Nick, c.Name, c.Topic))
}

// sendTopic implements the TOPIC <chan> query form: [331] when no topic
// is set, [332] otherwise. This is distinct from JOIN's unconditional
// [332] (see sendJoinTopic).
func sendTopic(d *Daemon, u *User, c *Channel) {
	if len(c.Topic) == 0 {
		u.Send(numericLine(d.Name, reply.RPLNoTopic, u.Nick, c.Name+" :No topic is set"))
		return
	}
	u.Send(fmt.Sprintf(":%s %s %s %s :%s", d.Name, reply.RPLTopic, u.Nick, c.Name, c.Topic))
}

func sendNames(d *Daemon, u *User, c *Channel) {
	names := make([]string, 0, len(c.Members))
	for _, nick := range c.Members {
		if c.IsAdmin(nick) {
			names = append(names, "@"+nick)
		} else if c.IsVoiced(nick) {
			names = append(names, "+"+nick)
		} else {
			names = append(names, nick)
		}
	}
	u.Send(fmt.Sprintf(":%s %s %s = %s :%s", d.Name, reply.RPLNamReply, u.Nick, c.Name, strings.Join(names, " ")))
	u.Send(numericLine(d.Name, reply.RPLEndOfNames, u.Nick, c.Name+" :End of /NAMES list"))
}

func cmdPart(d *Daemon, u *User, m message.Message) {
	if len(m.Params) == 0 || len(m.Params[0]) == 0 {
		u.Send(numericLine(d.Name, reply.ERRNeedMoreParams, u.Nick, "PART :Not enough parameters"))
		return
	}

	for _, name := range strings.Split(m.Params[0], ",") {
		partOne(d, u, name)
	}
}

func partOne(d *Daemon, u *User, name string) {
	c, ok := d.GetChannel(name)
	if !ok {
		u.Send(numericLine(d.Name, reply.ERRNoSuchChannel, u.Nick, name+" :No such channel"))
		return
	}
	if !c.IsMember(u.Nick) {
		u.Send(numericLine(d.Name, reply.ERRNotOnChannel, u.Nick, name+" :You're not on that channel"))
		return
	}

	partLine := fmt.Sprintf(":%s PART %s", u.NickUhost(), name)
	for _, nick := range c.Members {
		if member, ok := d.GetUser(nick); ok && member.IsLocal() {
			member.Send(partLine)
		}
	}

	c.RemoveMember(u.Nick)
	delete(u.Channels, CanonicalChannel(name))
	d.RemoveChannelIfEmpty(name)
}

func cmdTopic(d *Daemon, u *User, m message.Message) {
	if len(m.Params) == 0 {
		u.Send(numericLine(d.Name, reply.ERRNeedMoreParams, u.Nick, "TOPIC :Not enough parameters"))
		return
	}

	name := m.Params[0]
	c, ok := d.GetChannel(name)
	if !ok {
		u.Send(numericLine(d.Name, reply.ERRNoSuchChannel, u.Nick, name+" :No such channel"))
		return
	}

	if len(m.Params) == 1 {
		sendTopic(d, u, c)
		return
	}

	if c.Modes.TopicLocked && !c.IsAdmin(u.Nick) {
		u.Send(numericLine(d.Name, reply.ERRChanOpPrivsNeeded, u.Nick, name+" :You're not channel operator"))
		return
	}
	if !c.Modes.TopicLocked && !c.IsMember(u.Nick) {
		u.Send(numericLine(d.Name, reply.ERRNotOnChannel, u.Nick, name+" :You're not on that channel"))
		return
	}

	c.Topic = m.Params[1]
	line := fmt.Sprintf(":%s TOPIC %s :%s", u.NickUhost(), name, c.Topic)
	for _, nick := range c.Members {
		if member, ok := d.GetUser(nick); ok && member.IsLocal() {
			member.Send(line)
		}
	}
}

func cmdInvite(d *Daemon, u *User, m message.Message) {
	if len(m.Params) != 2 {
		u.Send(numericLine(d.Name, reply.ERRNeedMoreParams, u.Nick, "INVITE :Not enough parameters"))
		return
	}

	invitee, name := m.Params[0], m.Params[1]

	target, ok := d.GetUser(invitee)
	if !ok {
		u.Send(numericLine(d.Name, reply.ERRNoSuchNick, u.Nick, invitee+" :No such nick/channel"))
		return
	}
	c, ok := d.GetChannel(name)
	if !ok {
		u.Send(numericLine(d.Name, reply.ERRNoSuchNick, u.Nick, name+" :No such nick/channel"))
		return
	}
	if !c.IsMember(u.Nick) {
		u.Send(numericLine(d.Name, reply.ERRNotOnChannel, u.Nick, name+" :You're not on that channel"))
		return
	}
	if c.IsMember(invitee) {
		u.Send(numericLine(d.Name, reply.ERRUserOnChannel, u.Nick, invitee+" "+name+" :is already on channel"))
		return
	}
	if c.Modes.InviteOnly && !c.IsAdmin(u.Nick) {
		u.Send(numericLine(d.Name, reply.ERRChanOpPrivsNeeded, u.Nick, name+" :You're not channel operator"))
		return
	}
	if c.IsFull() {
		u.Send(numericLine(d.Name, reply.ERRChannelIsFull, u.Nick, name+" :Cannot join channel (+l)"))
		return
	}
	if c.IsBanned(target.NickUhost()) {
		u.Send(numericLine(d.Name, reply.ERRBannedFromChan, u.Nick, name+" :Cannot join channel (+b)"))
		return
	}

	c.invited = append(c.invited, invitee)
	target.Send(fmt.Sprintf(":%s INVITE %s :%s", u.NickUhost(), invitee, name))
	u.Send(numericLine(d.Name, reply.RPLInviting, u.Nick, name+" "+invitee))
}

func cmdKick(d *Daemon, u *User, m message.Message) {
	if len(m.Params) < 2 {
		u.Send(numericLine(d.Name, reply.ERRNeedMoreParams, u.Nick, "KICK :Not enough parameters"))
		return
	}

	name, victim := m.Params[0], m.Params[1]
	c, ok := d.GetChannel(name)
	if !ok {
		u.Send(numericLine(d.Name, reply.ERRNoSuchChannel, u.Nick, name+" :No such channel"))
		return
	}
	if !c.IsAdmin(u.Nick) {
		u.Send(numericLine(d.Name, reply.ERRChanOpPrivsNeeded, u.Nick, name+" :You're not channel operator"))
		return
	}

	reason := victim
	if len(m.Params) > 2 {
		reason = m.Params[2]
	}

	line := fmt.Sprintf(":%s KICK %s %s :%s", u.NickUhost(), name, victim, reason)
	for _, nick := range c.Members {
		if member, ok := d.GetUser(nick); ok && member.IsLocal() {
			member.Send(line)
		}
	}

	c.RemoveMember(victim)
	if victimUser, ok := d.GetUser(victim); ok {
		delete(victimUser.Channels, CanonicalChannel(name))
	}
	d.RemoveChannelIfEmpty(name)
}

func cmdNames(d *Daemon, u *User, m message.Message) {
	if len(m.Params) == 0 {
		listed := map[string]struct{}{}
		for _, c := range d.AllChannels() {
			if visibleTo(c, u.Nick) {
				for _, nick := range c.Members {
					listed[nick] = struct{}{}
				}
			}
		}
		var orphans []string
		for _, other := range d.AllUsers() {
			if _, in := listed[other.Nick]; !in {
				orphans = append(orphans, other.Nick)
			}
		}
		u.Send(fmt.Sprintf(":%s %s %s = * :%s", d.Name, reply.RPLNamReply, u.Nick, strings.Join(orphans, " ")))
		u.Send(numericLine(d.Name, reply.RPLEndOfNames, u.Nick, "* :End of /NAMES list"))
		return
	}

	for _, name := range strings.Split(m.Params[0], ",") {
		c, ok := d.GetChannel(name)
		if !ok || !visibleTo(c, u.Nick) {
			continue
		}
		sendNames(d, u, c)
	}
}

func visibleTo(c *Channel, nick string) bool {
	if c.Modes.Secret {
		return c.IsMember(nick)
	}
	return true
}

func cmdList(d *Daemon, u *User, m message.Message) {
	u.Send(numericLine(d.Name, reply.RPLListStart, u.Nick, "Channel :Users  Name"))

	var targets []*Channel
	if len(m.Params) > 0 {
		for _, name := range strings.Split(m.Params[0], ",") {
			if c, ok := d.GetChannel(name); ok {
				targets = append(targets, c)
			}
		}
	} else {
		targets = d.AllChannels()
	}

	for _, c := range targets {
		if c.Modes.Secret && !c.IsMember(u.Nick) {
			continue
		}
		topic := c.Topic
		if c.Modes.Private && !c.IsMember(u.Nick) {
			topic = ""
		}
		u.Send(fmt.Sprintf(":%s %s %s %s %d :%s", d.Name, reply.RPLList, u.Nick, c.Name, len(c.Members), topic))
	}

	u.Send(numericLine(d.Name, reply.RPLListEnd, u.Nick, ":End of /LIST"))
}

func cmdMode(d *Daemon, u *User, m message.Message) {
	if len(m.Params) == 0 {
		u.Send(numericLine(d.Name, reply.ERRNeedMoreParams, u.Nick, "MODE :Not enough parameters"))
		return
	}

	name := m.Params[0]
	c, ok := d.GetChannel(name)
	if !ok {
		u.Send(numericLine(d.Name, reply.ERRNoSuchChannel, u.Nick, name+" :No such channel"))
		return
	}

	if len(m.Params) == 1 {
		u.Send(fmt.Sprintf(":%s 324 %s %s %s", d.Name, u.Nick, name, modeString(c)))
		return
	}

	if !c.IsAdmin(u.Nick) {
		u.Send(numericLine(d.Name, reply.ERRChanOpPrivsNeeded, u.Nick, name+" :You're not channel operator"))
		return
	}

	flags := m.Params[1]
	args := m.Params[2:]
	argi := 0
	nextArg := func() (string, bool) {
		if argi < len(args) {
			a := args[argi]
			argi++
			return a, true
		}
		return "", false
	}

	activate := true
	for _, ch := range flags {
		switch ch {
		case '+':
			activate = true
		case '-':
			activate = false
		case 'p':
			c.Modes.Private = activate
		case 's':
			c.Modes.Secret = activate
		case 'i':
			c.Modes.InviteOnly = activate
		case 't':
			c.Modes.TopicLocked = activate
		case 'n':
			c.Modes.NoExternal = activate
		case 'm':
			c.Modes.Moderated = activate
		case 'o':
			if nick, ok := nextArg(); ok && c.IsMember(nick) {
				if activate {
					c.PromoteAdmin(nick)
				} else {
					c.DemoteAdmin(nick)
				}
			}
		case 'v':
			if nick, ok := nextArg(); ok && c.IsMember(nick) {
				if activate {
					c.Voice(nick)
				} else {
					c.Devoice(nick)
				}
			}
		case 'l':
			if activate {
				if n, ok := nextArg(); ok {
					if v, err := strconv.Atoi(n); err == nil {
						c.SetLimit(v)
					}
				}
			} else {
				c.ClearLimit()
			}
		case 'k':
			if activate {
				if key, ok := nextArg(); ok {
					if !c.SetKey(key) {
						u.Send(numericLine(d.Name, reply.ERRKeySet, u.Nick, name+" :Channel key already set"))
					}
				}
			} else {
				c.ClearKey()
			}
		case 'b':
			mask, given := nextArg()
			if !given {
				for _, b := range c.Bans {
					u.Send(fmt.Sprintf(":%s %s %s %s %s", d.Name, reply.RPLBanList, u.Nick, name, b))
				}
				u.Send(numericLine(d.Name, reply.RPLEndOfBan, u.Nick, name+" :End of channel ban list"))
				continue
			}
			if activate {
				c.AddBan(mask)
			} else {
				c.RemoveBan(mask)
			}
		default:
			u.Send(numericLine(d.Name, reply.ERRUnknownMode, u.Nick, string(ch)+" :is unknown mode char to me"))
		}
	}
}

func modeString(c *Channel) string {
	s := "+"
	if c.Modes.Private {
		s += "p"
	}
	if c.Modes.Secret {
		s += "s"
	}
	if c.Modes.InviteOnly {
		s += "i"
	}
	if c.Modes.TopicLocked {
		s += "t"
	}
	if c.Modes.NoExternal {
		s += "n"
	}
	if c.Modes.Moderated {
		s += "m"
	}
	if c.Modes.LimitSet {
		s += "l"
	}
	if c.Modes.KeySet {
		s += "k"
	}
	return s
}
