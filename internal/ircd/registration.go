package ircd

import (
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/catbox-mesh/ircd/internal/message"
	"github.com/catbox-mesh/ircd/internal/reply"
)

// preReg accumulates what an inbound connection has told us before it
// becomes either a registered User or a linked peer server. Exactly
// one branch wins; any other command seen during this phase is
// rejected.
type preReg struct {
	pass, nick, user, realName string
	gotPass, gotNick, gotUser bool

	serverName string
	gotServer  bool
}

// Serve drives a freshly accepted connection from acceptance through
// registration and, once registered, for the lifetime of the session.
// It never returns until the connection ends.
func Serve(d *Daemon, netConn net.Conn) {
	id := d.NextConnID()
	trace := uuid.NewString()
	conn := NewConn(netConn, d.Cfg.DeadTime)
	d.Log.Printf("conn %s accepted trace=%s remote=%s", fmt.Sprint(id), trace, conn.RemoteAddr())
	defer func() {
		_ = conn.Close()
		d.Log.Printf("conn %s closed trace=%s", fmt.Sprint(id), trace)
	}()

	var pr preReg

	for {
		line, err := conn.Read()
		if err != nil {
			return
		}
		if len(line) == 0 {
			continue
		}

		m := message.Parse(line)
		if reply.Numeric(m.Command) {
			continue
		}

		switch m.Command {
		case "PASS":
			if len(m.Params) > 0 && len(m.Params[0]) > 0 {
				pr.pass = m.Params[0]
				pr.gotPass = true
			}

		case "NICK":
			if len(m.Params) == 0 || len(m.Params[0]) == 0 {
				_ = conn.Write(numericLine(d.Name, reply.ERRNoNicknameGiven, "*", ":No nickname given"))
				continue
			}
			pr.nick = m.Params[0]
			pr.gotNick = true

		case "USER":
			if len(m.Params) < 4 {
				_ = conn.Write(numericLine(d.Name, reply.ERRNeedMoreParams, "*", "USER :Not enough parameters"))
				continue
			}
			pr.user = m.Params[0]
			pr.realName = m.Params[len(m.Params)-1]
			pr.gotUser = true

		case "SERVER":
			if len(m.Params) == 0 {
				continue
			}
			pr.serverName = m.Params[0]
			pr.gotServer = true

		default:
			_ = conn.Write(numericLine(d.Name, reply.ERRNeedMoreParams, "*", "* :Not a registration command"))
			continue
		}

		if pr.gotServer {
			serveAsPeer(d, conn, id, trace, pr.serverName)
			return
		}
		if pr.gotPass && pr.gotNick && pr.gotUser {
			serveAsClient(d, conn, id, trace, pr)
			return
		}
	}
}

func numericLine(server, code, target, rest string) string {
	return fmt.Sprintf(":%s %s %s %s", server, code, target, rest)
}

func serveAsClient(d *Daemon, conn Conn, id uint64, trace string, pr preReg) {
	if _, taken := d.GetUser(pr.nick); taken {
		_ = conn.Write(numericLine(d.Name, reply.ERRNicknameInUse, "*", pr.nick+" :Nickname is already in use"))
		return
	}

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	local := &LocalClient{ID: id, TraceID: trace, Conn: conn, WriteChan: make(chan string, 4096)}
	u := NewUser(pr.nick, pr.user, host, d.Name, pr.realName, local)
	u.Password = pr.pass

	if !d.AddUser(u) {
		_ = conn.Write(numericLine(d.Name, reply.ERRNicknameInUse, "*", pr.nick+" :Nickname is already in use"))
		return
	}

	go writeLoop(local.WriteChan, conn)

	welcome(d, u)
	broadcastUserList(d)
	gossipNewUser(d, u)

	readClientLoop(d, u, conn)
}

func serveAsPeer(d *Daemon, conn Conn, id uint64, trace, name string) {
	if d.Name == name || d.IsConnectedTo(name) {
		_ = conn.Write(numericLine(d.Name, reply.ERRAlreadyRegistered, "*", ":Server already linked"))
		return
	}

	_ = conn.Write(fmt.Sprintf(":%s SERVER %s", d.Name, d.Name))

	peer := &LocalServer{ID: id, TraceID: trace, Name: name, Conn: conn, WriteChan: make(chan string, 4096)}
	if !d.AttachPeer(d.Name, name, peer) {
		_ = conn.Write(numericLine(d.Name, reply.ERRAlreadyRegistered, "*", ":Server already linked"))
		return
	}

	go writeLoop(peer.WriteChan, conn)

	sendBurst(d, peer)

	readServerLoop(d, peer, conn)
}

func writeLoop(ch chan string, conn Conn) {
	for line := range ch {
		if err := conn.Write(line); err != nil {
			return
		}
	}
}

// welcome emits the post-registration replies: the fixed 001-004
// sequence followed by LUSERS and MOTD, matching what a registering
// client expects to see before anything else arrives.
func welcome(d *Daemon, u *User) {
	u.Send(fmt.Sprintf(":%s %s %s :Welcome to the network, %s", d.Name, reply.RPLWelcome, u.Nick, u.NickUhost()))
	u.Send(fmt.Sprintf(":%s %s %s :Your host is %s, running version %s", d.Name, reply.RPLYourHost, u.Nick, d.Name, d.Cfg.Version))
	u.Send(fmt.Sprintf(":%s %s %s :This server was created %s", d.Name, reply.RPLCreated, u.Nick, d.Cfg.CreatedDate))
	u.Send(fmt.Sprintf(":%s %s %s %s %s", d.Name, reply.RPLMyInfo, u.Nick, d.Name, d.Cfg.Version))
	sendLusers(d, u)
	sendMOTD(d, u)
}

func sendLusers(d *Daemon, u *User) {
	n := len(d.AllUsers())
	u.Send(fmt.Sprintf(":%s 251 %s :There are %d users on the network", d.Name, u.Nick, n))
}

func sendMOTD(d *Daemon, u *User) {
	u.Send(fmt.Sprintf(":%s 375 %s :- %s Message of the day -", d.Name, u.Nick, d.Name))
	u.Send(fmt.Sprintf(":%s 372 %s :- %s", d.Name, u.Nick, d.Cfg.MOTD))
	u.Send(fmt.Sprintf(":%s 376 %s :End of /MOTD command", d.Name, u.Nick))
}

// broadcastUserList rebuilds the canonical nickname list and pushes it
// to every local user, the UPDATE_SERVER_USERS push.
func broadcastUserList(d *Daemon) {
	users := d.AllUsers()
	nicks := make([]string, 0, len(users))
	for _, u := range users {
		nicks = append(nicks, u.Nick)
	}
	line := fmt.Sprintf(":%s NOTICE * :%s", d.Name, joinSpace(nicks))
	for _, u := range users {
		if u.IsLocal() {
			u.Send(line)
		}
	}
}

// gossipNewUser notifies every directly connected peer of a freshly
// registered local user, the USER_LIST_UPDATE broadcast required on
// client registration.
func gossipNewUser(d *Daemon, u *User) {
	d.BroadcastToPeers(fmt.Sprintf(":%s SERVER USER_LIST_UPDATE %s %s %s %s :%s",
		d.Name, u.Nick, u.Server, u.Username, u.Hostname, u.RealName), "")
}

func joinSpace(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
