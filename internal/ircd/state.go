// Package ircd is the per-server message-processing engine: the shared
// user/channel/peer directories, the registration handshake, the
// command dispatcher, and the federation gossip that keeps a tree of
// these engines consistent.
package ircd

import (
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/catbox-mesh/ircd/internal/config"
)

// Daemon is the server context: the three shared directories plus
// enough identity to answer for itself in gossip and replies. Lock
// order, enforced by convention throughout this package, is
// users -> channels -> peers; no handler may acquire them out of order.
type Daemon struct {
	Name string
	Cfg  *config.Config
	Log  *log.Logger

	usersMu sync.Mutex
	users   map[string]*User // keyed by canonical nick

	channelsMu sync.Mutex
	channels   map[string]*Channel // keyed by canonical name

	peersMu sync.Mutex
	tree    *PeerNode // root node; tree.Name == Name, tree.Peers are direct links

	nextConnID uint64

	// Shutdown is closed exactly once, when a SQUIT names this server
	// itself. Accept listens on it and closes the listener, which returns
	// from Listen and so ends the serve command and the process;
	// RunPingSweep stops on it too. There is no drain.
	Shutdown chan struct{}
}

// NewDaemon creates a Daemon with empty directories, its peer tree
// rooted at its own name.
func NewDaemon(cfg *config.Config, logger *log.Logger) *Daemon {
	return &Daemon{
		Name:     cfg.ServerName,
		Cfg:      cfg,
		Log:      logger,
		users:    map[string]*User{},
		channels: map[string]*Channel{},
		tree:     NewPeerNode(cfg.ServerName),
		Shutdown: make(chan struct{}),
	}
}

// NextConnID hands out a locally unique identifier for a new connection.
func (d *Daemon) NextConnID() uint64 {
	return atomic.AddUint64(&d.nextConnID, 1)
}

// CanonicalNick lowercases nick for use as a directory key. IRC
// nicknames are case-insensitive network-wide.
func CanonicalNick(nick string) string { return strings.ToLower(nick) }

// CanonicalChannel lowercases a channel name for use as a directory key.
func CanonicalChannel(name string) string { return strings.ToLower(name) }

// --- users ---

// GetUser returns the user named nick, if registered anywhere in the
// directory visible to this server.
func (d *Daemon) GetUser(nick string) (*User, bool) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	u, ok := d.users[CanonicalNick(nick)]
	return u, ok
}

// AddUser inserts u into the directory. ok is false if the nick is
// already taken.
func (d *Daemon) AddUser(u *User) (ok bool) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	key := CanonicalNick(u.Nick)
	if _, exists := d.users[key]; exists {
		return false
	}
	d.users[key] = u
	return true
}

// RenameUser moves a user from its old nick key to a new one. ok is
// false if newNick is already taken by a different user.
func (d *Daemon) RenameUser(oldNick, newNick string) (ok bool) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()

	oldKey := CanonicalNick(oldNick)
	newKey := CanonicalNick(newNick)

	u, exists := d.users[oldKey]
	if !exists {
		return false
	}
	if existing, taken := d.users[newKey]; taken && existing != u {
		return false
	}

	delete(d.users, oldKey)
	u.Nick = newNick
	d.users[newKey] = u
	return true
}

// RemoveUser deletes nick from the directory.
func (d *Daemon) RemoveUser(nick string) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	delete(d.users, CanonicalNick(nick))
}

// AllUsers returns a snapshot of every user in the directory.
func (d *Daemon) AllUsers() []*User {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	out := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	return out
}

// LocalUsers returns a snapshot of every locally connected user.
func (d *Daemon) LocalUsers() []*User {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	out := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		if u.IsLocal() {
			out = append(out, u)
		}
	}
	return out
}

// RemoveUsersFromServers deletes every user whose home server is one of
// names, used when a SQUIT drops a subtree. It returns the removed
// users so callers can notify remaining clients.
func (d *Daemon) RemoveUsersFromServers(names map[string]struct{}) []*User {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()

	var removed []*User
	for key, u := range d.users {
		if _, gone := names[u.Server]; gone {
			removed = append(removed, u)
			delete(d.users, key)
		}
	}
	return removed
}

// UpsertRemoteUser refreshes a single remote directory entry from a
// USER_LIST_UPDATE gossip line. An entry whose Server equals
// this server's own name should never appear in a received snapshot;
// such an entry is dropped rather than allowed to shadow a local user,
// which is the one place this reimplementation asserts instead of
// silently accepting the source's documented bug.
func (d *Daemon) UpsertRemoteUser(self string, u *User) {
	if u.Server == self {
		return
	}
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	d.users[CanonicalNick(u.Nick)] = u
}

// --- channels ---

// GetChannel returns the named channel if known to this server.
func (d *Daemon) GetChannel(name string) (*Channel, bool) {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	c, ok := d.channels[CanonicalChannel(name)]
	return c, ok
}

// GetOrCreateChannel returns the named channel, creating an empty one if
// it did not already exist. created reports which happened.
func (d *Daemon) GetOrCreateChannel(name string) (c *Channel, created bool) {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	key := CanonicalChannel(name)
	if existing, ok := d.channels[key]; ok {
		return existing, false
	}
	c = NewChannel(name)
	d.channels[key] = c
	return c, true
}

// RemoveChannelIfEmpty deletes name from the directory once its
// membership has dropped to zero.
func (d *Daemon) RemoveChannelIfEmpty(name string) {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	key := CanonicalChannel(name)
	if c, ok := d.channels[key]; ok && len(c.Members) == 0 {
		delete(d.channels, key)
	}
}

// AllChannels returns a snapshot of every known channel.
func (d *Daemon) AllChannels() []*Channel {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	out := make([]*Channel, 0, len(d.channels))
	for _, c := range d.channels {
		out = append(out, c)
	}
	return out
}

// FederatedChannels returns every &-channel, the set gossiped in
// CHANNEL_LIST_UPDATE snapshots.
func (d *Daemon) FederatedChannels() []*Channel {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	var out []*Channel
	for _, c := range d.channels {
		if c.IsFederated() {
			out = append(out, c)
		}
	}
	return out
}

// --- peers ---

// Tree returns the root peer node, representing this server itself.
func (d *Daemon) Tree() *PeerNode {
	return d.tree
}

// AttachPeer links a new immediate peer under parent (by name; typically
// the root). It returns false if name is already reachable anywhere in
// the tree, matching the SERVER handshake's "already registered" abort.
func (d *Daemon) AttachPeer(parentName, name string, link *LocalServer) bool {
	d.peersMu.Lock()
	defer d.peersMu.Unlock()

	if d.tree.Name == name || d.tree.IsConnectedTo(name) {
		return false
	}
	parent := d.tree.Find(parentName)
	if parent == nil {
		return false
	}
	node := NewPeerNode(name)
	node.Link = link
	parent.Attach(node)
	return true
}

// AttachRemotePeer records a peer learned purely from gossip, with no
// local Link, nested under the node named parentName.
func (d *Daemon) AttachRemotePeer(parentName, name string) {
	d.peersMu.Lock()
	defer d.peersMu.Unlock()
	parent := d.tree.Find(parentName)
	if parent == nil || parent.Find(name) != nil {
		return
	}
	parent.Attach(NewPeerNode(name))
}

// DetachSubtree removes the node named name (and everything beneath it)
// from the tree, returning the names of every server that was in it, or
// nil if name was not found.
func (d *Daemon) DetachSubtree(name string) []string {
	d.peersMu.Lock()
	defer d.peersMu.Unlock()

	var parent *PeerNode
	var walk func(*PeerNode) bool
	walk = func(n *PeerNode) bool {
		for _, child := range n.Peers {
			if child.Name == name {
				parent = n
				return true
			}
			if walk(child) {
				return true
			}
		}
		return false
	}
	if !walk(d.tree) {
		return nil
	}
	removed := parent.Detach(name)
	if removed == nil {
		return nil
	}
	return removed.Names()
}

// DirectPeers returns a snapshot of the immediate peer nodes.
func (d *Daemon) DirectPeers() []*PeerNode {
	d.peersMu.Lock()
	defer d.peersMu.Unlock()
	out := make([]*PeerNode, len(d.tree.Peers))
	copy(out, d.tree.Peers)
	return out
}

// RouteTo picks the immediate peer whose subtree contains dest.
func (d *Daemon) RouteTo(dest string) *PeerNode {
	d.peersMu.Lock()
	defer d.peersMu.Unlock()
	return d.tree.RouteTo(dest)
}

// IsConnectedTo reports whether name is reachable anywhere in the
// federation from this server (self excluded; by convention
// IsConnectedTo is false at self).
func (d *Daemon) IsConnectedTo(name string) bool {
	d.peersMu.Lock()
	defer d.peersMu.Unlock()
	return d.tree.IsConnectedTo(name)
}

// BroadcastToPeers writes line to every directly connected peer except
// the one named except (empty to exclude none).
func (d *Daemon) BroadcastToPeers(line, except string) {
	for _, p := range d.DirectPeers() {
		if p.Name == except || p.Link == nil {
			continue
		}
		p.Link.maybeQueueMessage(line)
	}
}
