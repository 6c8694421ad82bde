package ircd

import (
	"fmt"
	"time"

	"github.com/catbox-mesh/ircd/internal/message"
	"github.com/catbox-mesh/ircd/internal/reply"
)

// readClientLoop is the per-session read loop for a registered local
// client: parse a line, dispatch it, repeat until the connection dies.
func readClientLoop(d *Daemon, u *User, conn Conn) {
	for {
		line, err := conn.Read()
		if err != nil {
			quitUser(d, u, "Connection reset")
			return
		}
		if len(line) == 0 {
			continue
		}

		u.lastActivity = time.Now().Unix()

		m := message.Parse(line)
		if len(m.Command) == 0 {
			continue
		}

		if done := dispatch(d, u, m); done {
			return
		}
	}
}

// dispatch runs one command for u. It returns true if the session ended,
// which only QUIT does; a panic recovered here ends only the current
// command, not the session.
func dispatch(d *Daemon, u *User, m message.Message) (ended bool) {
	defer func() {
		if r := recover(); r != nil {
			d.Log.Printf("recovered dispatching %s from %s: %v", m.Command, u.Nick, r)
		}
	}()

	switch m.Command {
	case "PASS", "USER":
		u.Send(numericLine(d.Name, reply.ERRAlreadyRegistered, u.Nick, ":You may not reregister"))

	case "NICK":
		cmdNick(d, u, m)
	case "QUIT":
		msg := "Client quit"
		if len(m.Params) > 0 {
			msg = m.Params[len(m.Params)-1]
		}
		quitUser(d, u, msg)
		return true
	case "PRIVMSG":
		cmdPrivmsg(d, u, m, false)
	case "NOTICE":
		cmdPrivmsg(d, u, m, true)
	case "JOIN":
		cmdJoin(d, u, m)
	case "PART":
		cmdPart(d, u, m)
	case "TOPIC":
		cmdTopic(d, u, m)
	case "INVITE":
		cmdInvite(d, u, m)
	case "KICK":
		cmdKick(d, u, m)
	case "NAMES":
		cmdNames(d, u, m)
	case "LIST":
		cmdList(d, u, m)
	case "MODE":
		cmdMode(d, u, m)
	case "WHOIS":
		cmdWhois(d, u, m)
	case "WHO":
		cmdWho(d, u, m)
	case "AWAY":
		cmdAway(d, u, m)
	case "OPER":
		cmdOper(d, u, m)
	case "SERVER_CONNECT":
		cmdServerConnect(d, u, m)
	case "SQUIT":
		cmdSquit(d, u, m)
	case "LINKS":
		cmdLinks(d, u, m)
	case "CAP":
		// IRCv3 capability negotiation is out of scope; accepted and
		// silently ignored so clients that probe for it don't choke.
	case "PING":
		if len(m.Params) > 0 {
			u.Send(fmt.Sprintf(":%s PONG %s :%s", d.Name, d.Name, m.Params[0]))
		} else {
			u.Send(fmt.Sprintf(":%s PONG %s", d.Name, d.Name))
		}
	case "PONG":
		// no-op: PONG only resets lastActivity, already updated above.

	default:
		u.Send(numericLine(d.Name, reply.ERRUnknownMode, u.Nick, m.Command+" :Unknown command"))
	}

	return false
}

// quitUser removes u from the local directory, rebroadcasts the user
// list, and if u is local closes its connection. Nothing is sent to
// federation peers: USER_LIST_UPDATE lines only add or refresh entries,
// so a peer keeps its directory entry for u after the quit.
func quitUser(d *Daemon, u *User, msg string) {
	quitLine := fmt.Sprintf(":%s QUIT :%s", u.NickUhost(), msg)

	for name := range u.Channels {
		if c, ok := d.GetChannel(name); ok {
			for _, memberNick := range c.Members {
				if memberNick == u.Nick {
					continue
				}
				if member, ok := d.GetUser(memberNick); ok {
					member.Send(quitLine)
				}
			}
			c.RemoveMember(u.Nick)
			d.RemoveChannelIfEmpty(name)
		}
	}

	d.RemoveUser(u.Nick)
	broadcastUserList(d)

	if u.Local != nil {
		close(u.Local.WriteChan)
		_ = u.Local.Conn.Close()
	}
}
