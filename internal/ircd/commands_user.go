package ircd

import (
	"fmt"
	"strings"

	"github.com/catbox-mesh/ircd/internal/message"
	"github.com/catbox-mesh/ircd/internal/reply"
)

const (
	operUser = "admin"
	operPass = "1234"
)

func cmdNick(d *Daemon, u *User, m message.Message) {
	if len(m.Params) == 0 || len(m.Params[0]) == 0 {
		u.Send(numericLine(d.Name, reply.ERRNoNicknameGiven, u.Nick, ":No nickname given"))
		return
	}

	newNick := m.Params[0]
	if existing, ok := d.GetUser(newNick); ok && existing != u {
		u.Send(numericLine(d.Name, reply.ERRNicknameInUse, u.Nick, newNick+" :Nickname is already in use"))
		return
	}

	old := u.NickUhost()
	if !d.RenameUser(u.Nick, newNick) {
		u.Send(numericLine(d.Name, reply.ERRNicknameInUse, u.Nick, newNick+" :Nickname is already in use"))
		return
	}

	u.Send(fmt.Sprintf(":%s NICK :%s", old, newNick))
	broadcastUserList(d)
}

// cmdPrivmsg implements PRIVMSG and, with notice=true, NOTICE: identical
// routing, but NOTICE never produces error replies or away auto-replies.
func cmdPrivmsg(d *Daemon, u *User, m message.Message, notice bool) {
	errf := func(code, rest string) {
		if !notice {
			u.Send(numericLine(d.Name, code, u.Nick, rest))
		}
	}

	if len(m.Params) == 0 || len(m.Params[0]) == 0 {
		errf(reply.ERRNoRecipient, ":No recipient given")
		return
	}
	if len(m.Params) < 2 || len(m.Params[1]) == 0 {
		errf(reply.ERRNoTextToSend, ":No text to send")
		return
	}

	text := m.Params[1]
	cmd := "PRIVMSG"
	if notice {
		cmd = "NOTICE"
	}
	line := fmt.Sprintf(":%s %s %%s :%s", u.NickUhost(), cmd, text)

	for _, target := range strings.Split(m.Params[0], ",") {
		if len(target) == 0 {
			continue
		}
		deliverTo(d, u, target, text, line, notice, errf)
	}
}

func deliverTo(d *Daemon, u *User, target, text, lineTmpl string, notice bool, errf func(code, rest string)) {
	if ValidChannelName(target) {
		c, ok := d.GetChannel(target)
		if !ok {
			errf(reply.ERRNoSuchChannel, target+" :No such channel")
			return
		}
		if !c.CanSpeak(u.Nick) {
			errf(reply.ERRCannotSendToChan, target+" :Cannot send to channel")
			return
		}
		line := fmt.Sprintf(lineTmpl, target)
		for _, nick := range c.Members {
			if nick == u.Nick {
				continue
			}
			routeLine(d, nick, line)
		}
		return
	}

	dest, ok := d.GetUser(target)
	if !ok {
		errf(reply.ERRNoSuchNick, target+" :No such nick/channel")
		return
	}

	line := fmt.Sprintf(lineTmpl, target)
	routeLine(d, target, line)

	if !notice && dest.IsLocal() && len(dest.Away) > 0 {
		auto := fmt.Sprintf(":%s PRIVMSG %s :[Mensaje automático] %s", dest.NickUhost(), u.Nick, dest.Away)
		routeLine(d, u.Nick, auto)
	}
}

// routeLine delivers line to nick: directly if local, across the
// federation by subtree containment if remote.
func routeLine(d *Daemon, nick, line string) {
	target, ok := d.GetUser(nick)
	if !ok {
		return
	}
	if target.IsLocal() {
		target.Send(line)
		return
	}
	if peer := d.RouteTo(target.Server); peer != nil && peer.Link != nil {
		peer.Link.maybeQueueMessage(line)
	}
}

func cmdWhois(d *Daemon, u *User, m message.Message) {
	if len(m.Params) == 0 {
		u.Send(numericLine(d.Name, reply.ERRNoSuchNick, u.Nick, ":No such nick/channel"))
		return
	}

	target, ok := d.GetUser(m.Params[0])
	if !ok {
		u.Send(numericLine(d.Name, reply.ERRNoSuchNick, u.Nick, m.Params[0]+" :No such nick/channel"))
		return
	}

	u.Send(fmt.Sprintf(":%s %s %s %s %s %s * :%s", d.Name, reply.RPLWhoisUser, u.Nick,
		target.Nick, target.Username, target.Hostname, target.RealName))
	u.Send(fmt.Sprintf(":%s %s %s %s %s :%s", d.Name, reply.RPLWhoisServer, u.Nick,
		target.Nick, target.Server, d.Cfg.Version))
	if target.Admin {
		u.Send(numericLine(d.Name, reply.RPLWhoisOperator, u.Nick, target.Nick+" :is an IRC operator"))
	}
}

func cmdWho(d *Daemon, u *User, m message.Message) {
	mask := "*"
	operOnly := false
	if len(m.Params) > 0 {
		mask = m.Params[0]
	}
	if len(m.Params) > 1 && m.Params[1] == "o" {
		operOnly = true
	}

	for _, target := range d.AllUsers() {
		if operOnly && !target.Admin {
			continue
		}
		if !whoMatches(target, mask) {
			continue
		}
		u.Send(fmt.Sprintf(":%s %s %s * %s %s %s %s H :0 %s", d.Name, reply.RPLWhoReply, u.Nick,
			target.Username, target.Hostname, target.Server, target.Nick, target.RealName))
	}
	u.Send(numericLine(d.Name, reply.RPLEndOfWho, u.Nick, mask+" :End of /WHO list"))
}

func whoMatches(u *User, mask string) bool {
	if mask == "*" || len(mask) == 0 {
		return true
	}
	fields := []string{u.RealName, u.Server, u.Hostname, u.Nick, u.Username}
	for _, f := range fields {
		if matchMaskPart(mask, f) {
			return true
		}
	}
	return false
}

func cmdAway(d *Daemon, u *User, m message.Message) {
	if len(m.Params) > 0 && len(m.Params[0]) > 0 {
		u.Away = m.Params[0]
		u.Send(numericLine(d.Name, reply.RPLNowAway, u.Nick, ":You have been marked as being away"))
		return
	}
	u.Away = ""
	u.Send(numericLine(d.Name, reply.RPLUnAway, u.Nick, ":You are no longer marked as being away"))
}

func cmdOper(d *Daemon, u *User, m message.Message) {
	user, pass := "", ""
	if d.Cfg.OperUser != "" {
		user, pass = d.Cfg.OperUser, d.Cfg.OperPass
	} else {
		user, pass = operUser, operPass
	}

	if len(m.Params) < 2 || m.Params[0] != user || m.Params[1] != pass {
		u.Send(numericLine(d.Name, reply.ERRNoOperHost, u.Nick, ":No O-lines for your host"))
		return
	}

	u.Admin = true
	u.Send(numericLine(d.Name, reply.RPLYoureOper, u.Nick, ":You are now an IRC operator"))
}
