package ircd

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/catbox-mesh/ircd/internal/message"
	"github.com/catbox-mesh/ircd/internal/reply"
)

// readServerLoop is the per-session read loop for a directly linked
// peer: parse a line, hand it to dispatchServer, repeat until the link
// dies.
func readServerLoop(d *Daemon, peer *LocalServer, conn Conn) {
	for {
		line, err := conn.Read()
		if err != nil {
			squitSubtree(d, peer.Name, "Connection reset", "")
			return
		}
		if len(line) == 0 {
			continue
		}
		dispatchServer(d, peer, message.Parse(line))
	}
}

func dispatchServer(d *Daemon, peer *LocalServer, m message.Message) {
	switch m.Command {
	case "SERVER":
		handleServerGossip(d, peer, m)
	case "SQUIT":
		if len(m.Params) == 0 {
			return
		}
		comment := "Server quit"
		if len(m.Params) > 1 {
			comment = m.Params[len(m.Params)-1]
		}
		squitSubtree(d, m.Params[0], comment, peer.Name)
	case "PRIVMSG", "NOTICE":
		relayFromPeer(d, peer, m)
	case "JOIN":
		relayFederatedJoin(d, peer, m)
	}
}

func handleServerGossip(d *Daemon, peer *LocalServer, m message.Message) {
	if len(m.Params) == 0 {
		return
	}

	switch m.Params[0] {
	case "USER_LIST_UPDATE":
		if len(m.Params) < 6 {
			return
		}
		u := &User{
			Nick:     m.Params[1],
			Server:   m.Params[2],
			Username: m.Params[3],
			Hostname: m.Params[4],
			RealName: m.Params[5],
			Channels: map[string]struct{}{},
		}
		d.UpsertRemoteUser(d.Name, u)

	case "CHANNEL_LIST_UPDATE":
		if len(m.Params) < 9 {
			return
		}
		applyChannelSnapshot(d, m.Params[1:9])

	default:
		// <name> <hop> form: gossip of a peer somewhere in the tree.
		name := m.Params[0]
		parent := m.Prefix
		if len(parent) == 0 {
			parent = peer.Name
		}
		d.AttachRemotePeer(parent, name)

		hop := 1
		if len(m.Params) > 1 {
			if n, err := strconv.Atoi(m.Params[1]); err == nil {
				hop = n
			}
		}
		d.BroadcastToPeers(fmt.Sprintf(":%s SERVER %s %d", parent, name, hop+1), peer.Name)
	}
}

func applyChannelSnapshot(d *Daemon, f []string) {
	name := f[0]
	c, _ := d.GetOrCreateChannel(name)

	c.Members = splitCSV(f[1])
	if f[2] != "." {
		c.Topic = f[2]
	}
	c.Admins = splitCSV(f[3])
	if f[4] != "." {
		if n, err := strconv.Atoi(f[4]); err == nil {
			c.Limit = n
			c.Modes.LimitSet = true
		}
	}
	if f[5] != "." {
		c.Bans = splitCSV(f[5])
	}
	if f[6] != "." {
		c.Voiced = splitCSV(f[6])
	}
	if f[7] != "." {
		c.Key = f[7]
		c.Modes.KeySet = true
	}
}

func splitCSV(s string) []string {
	if s == "." || len(s) == 0 {
		return nil
	}
	return strings.Split(s, ",")
}

func csvOr(list []string) string {
	if len(list) == 0 {
		return "."
	}
	return strings.Join(list, ",")
}

func dotOr(s string) string {
	if len(s) == 0 {
		return "."
	}
	return s
}

func encodeChannelSnapshot(self string, c *Channel) string {
	limit := "."
	if c.Modes.LimitSet {
		limit = strconv.Itoa(c.Limit)
	}
	key := "."
	if c.Modes.KeySet {
		key = c.Key
	}
	return fmt.Sprintf(":%s SERVER CHANNEL_LIST_UPDATE %s %s %s %s %s %s %s %s",
		self, c.Name, csvOr(c.Members), dotOr(c.Topic), csvOr(c.Admins), limit,
		csvOr(c.Bans), csvOr(c.Voiced), key)
}

func relayFromPeer(d *Daemon, peer *LocalServer, m message.Message) {
	if len(m.Params) < 2 {
		return
	}
	target, text := m.Params[0], m.Params[1]
	line := fmt.Sprintf(":%s %s %s :%s", m.Prefix, m.Command, target, text)

	if ValidChannelName(target) {
		c, ok := d.GetChannel(target)
		if !ok {
			return
		}
		for _, nick := range c.Members {
			if u, ok := d.GetUser(nick); ok && u.IsLocal() {
				u.Send(line)
			}
		}
		return
	}

	u, ok := d.GetUser(target)
	if !ok {
		return
	}
	if u.IsLocal() {
		u.Send(line)
		return
	}
	if next := d.RouteTo(u.Server); next != nil && next.Link != nil && next.Name != peer.Name {
		next.Link.maybeQueueMessage(line)
	}
}

func relayFederatedJoin(d *Daemon, peer *LocalServer, m message.Message) {
	if len(m.Params) == 0 || len(m.Prefix) == 0 {
		return
	}
	name := m.Params[0]
	if !ValidChannelName(name) || !strings.HasPrefix(name, "&") {
		return
	}
	c, _ := d.GetOrCreateChannel(name)
	if !c.IsMember(m.Prefix) {
		c.AddMember(m.Prefix, len(c.Members) == 0)
	}
	d.BroadcastToPeers(fmt.Sprintf(":%s JOIN %s", m.Prefix, name), peer.Name)
}

// sendBurst performs the burst steps of the SERVER handshake toward a
// newly linked peer: announce it to existing peers, describe the rest
// of the tree to it, then ship the user and &-channel snapshots.
func sendBurst(d *Daemon, peer *LocalServer) {
	d.BroadcastToPeers(fmt.Sprintf(":%s SERVER %s 2", d.Name, peer.Name), peer.Name)

	for _, child := range d.DirectPeers() {
		if child.Name == peer.Name {
			continue
		}
		sendSubtree(d, peer, child, 2)
	}

	for _, u := range d.AllUsers() {
		peer.maybeQueueMessage(fmt.Sprintf(":%s SERVER USER_LIST_UPDATE %s %s %s %s :%s",
			d.Name, u.Nick, u.Server, u.Username, u.Hostname, u.RealName))
	}

	for _, c := range d.FederatedChannels() {
		peer.maybeQueueMessage(encodeChannelSnapshot(d.Name, c))
	}
}

func sendSubtree(d *Daemon, peer *LocalServer, node *PeerNode, hop int) {
	peer.maybeQueueMessage(fmt.Sprintf(":%s SERVER %s %d", d.Name, node.Name, hop))
	for _, child := range node.Peers {
		sendSubtree(d, peer, child, hop+1)
	}
}

// cmdLinks walks the peer tree and reports it the way the admin
// console's show_net() does, but as a client-facing 364/365 sequence.
func cmdLinks(d *Daemon, u *User, m message.Message) {
	var walk func(node *PeerNode, via string, hop int)
	walk = func(node *PeerNode, via string, hop int) {
		u.Send(fmt.Sprintf(":%s %s %s %s %s :%d %s", d.Name, reply.RPLLinks, u.Nick,
			node.Name, via, hop, node.Name))
		for _, child := range node.Peers {
			walk(child, node.Name, hop+1)
		}
	}
	walk(d.Tree(), d.Name, 0)
	u.Send(numericLine(d.Name, reply.RPLEndOfLinks, u.Nick, "* :End of /LINKS list"))
}

func cmdServerConnect(d *Daemon, u *User, m message.Message) {
	if !u.Admin {
		u.Send(numericLine(d.Name, reply.ERRNoPrivileges, u.Nick, ":Permission Denied- You're not an IRC operator"))
		return
	}
	if len(m.Params) < 2 {
		u.Send(numericLine(d.Name, reply.ERRNeedMoreParams, u.Nick, "SERVER_CONNECT :Not enough parameters"))
		return
	}

	if err := ConnectPeer(d, m.Params[0], m.Params[1]); err != nil {
		d.Log.Printf("SERVER_CONNECT to %s:%s failed: %s", m.Params[0], m.Params[1], err)
	}
}

// ConnectPeer dials host:port as the link initiator and, on a
// successful SERVER handshake, joins it to the peer tree. It is used
// both by the admin-only SERVER_CONNECT command and the CLI's runtime
// "<host> <port>" stdin form.
func ConnectPeer(d *Daemon, host, port string) error {
	netConn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	return linkOverConn(d, netConn)
}

// linkOverConn performs the initiator side of the SERVER handshake over
// an already-established connection, then hands off to the normal
// read/write loops. Split out from ConnectPeer so tests can drive the
// handshake over an in-memory net.Pipe instead of a real socket.
func linkOverConn(d *Daemon, netConn net.Conn) error {
	conn := NewConn(netConn, d.Cfg.DeadTime)

	if err := conn.Write(fmt.Sprintf("SERVER %s 1", d.Name)); err != nil {
		_ = conn.Close()
		return err
	}

	line, err := conn.Read()
	if err != nil {
		_ = conn.Close()
		return err
	}
	m := message.Parse(line)
	if m.Command != "SERVER" || len(m.Params) == 0 {
		_ = conn.Close()
		return fmt.Errorf("unexpected handshake reply: %q", line)
	}
	name := m.Params[0]

	peer := &LocalServer{ID: d.NextConnID(), TraceID: uuid.NewString(), Name: name, Conn: conn, WriteChan: make(chan string, 4096)}
	if !d.AttachPeer(d.Name, name, peer) {
		_ = conn.Close()
		return fmt.Errorf("server %s already linked", name)
	}

	go writeLoop(peer.WriteChan, conn)
	sendBurst(d, peer)
	go readServerLoop(d, peer, conn)
	return nil
}

func cmdSquit(d *Daemon, u *User, m message.Message) {
	if !u.Admin {
		u.Send(numericLine(d.Name, reply.ERRNoPrivileges, u.Nick, ":Permission Denied- You're not an IRC operator"))
		return
	}
	if len(m.Params) == 0 {
		u.Send(numericLine(d.Name, reply.ERRNeedMoreParams, u.Nick, "SQUIT :Not enough parameters"))
		return
	}

	comment := "Server quit"
	if len(m.Params) > 1 {
		comment = m.Params[len(m.Params)-1]
	}
	squitSubtree(d, m.Params[0], comment, "")
}

// squitSubtree implements SQUIT propagation. except is the name
// of the peer this SQUIT arrived from (empty if it originated locally),
// so the SQUIT is not sent back to it.
func squitSubtree(d *Daemon, target, comment, except string) {
	if target == d.Name {
		for _, u := range d.LocalUsers() {
			u.Send(fmt.Sprintf(":%s QUIT :Server shutting down", u.NickUhost()))
			close(u.Local.WriteChan)
			_ = u.Local.Conn.Close()
		}
		close(d.Shutdown)
		return
	}

	names := d.DetachSubtree(target)
	if names == nil {
		return
	}

	gone := make(map[string]struct{}, len(names))
	for _, n := range names {
		gone[n] = struct{}{}
	}
	d.RemoveUsersFromServers(gone)
	broadcastUserList(d)

	d.BroadcastToPeers(fmt.Sprintf(":%s SQUIT %s :%s", d.Name, target, comment), except)
}
