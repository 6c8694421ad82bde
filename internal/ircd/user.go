package ircd

import (
	"fmt"
	"time"
)

// LocalClient is the connection-carrying half of a local User: the
// dedicated reader/writer goroutines and the socket they share. A remote
// User (relayed by federation) has no LocalClient at all.
type LocalClient struct {
	ID uint64
	// TraceID is a per-connection correlation id, stamped once at accept
	// time, so log lines from the reader and writer goroutines of the
	// same connection can be tied together without serializing on ID.
	TraceID   string
	Conn      Conn
	WriteChan chan string

	sendQueueExceeded bool
}

// maybeQueueMessage enqueues line for writing without blocking. If the
// client's write queue is already full the client is marked overflowed
// and the line is dropped; its reader loop will eventually notice the
// connection is dead and tear it down.
func (c *LocalClient) maybeQueueMessage(line string) {
	if c.sendQueueExceeded {
		return
	}
	select {
	case c.WriteChan <- line:
	default:
		c.sendQueueExceeded = true
	}
}

// User holds everything attributed to a user, local or remote.
// Invariant: Local != nil iff this User is registered
// and local; a remote user (relayed by federation) carries only its
// identity fields.
type User struct {
	Password string
	Nick     string
	Username string
	Hostname string
	Server   string
	RealName string

	Admin bool
	Away  string

	// Channels is the set of canonicalized channel names this user has
	// joined.
	Channels map[string]struct{}

	Local *LocalClient

	lastActivity int64 // unix seconds, last line read; for idle ping sweep
}

// NewUser constructs a freshly registered local User.
func NewUser(nick, username, hostname, server, realName string, local *LocalClient) *User {
	return &User{
		Nick:         nick,
		Username:     username,
		Hostname:     hostname,
		Server:       server,
		RealName:     realName,
		Channels:     map[string]struct{}{},
		Local:        local,
		lastActivity: time.Now().Unix(),
	}
}

// IsLocal reports whether this user is connected to this server.
func (u *User) IsLocal() bool {
	return u.Local != nil
}

// NickUhost renders the nick!user@host form used as a message prefix.
func (u *User) NickUhost() string {
	return fmt.Sprintf("%s!%s@%s", u.Nick, u.Username, u.Hostname)
}

// OnChannel reports whether u has joined channel name.
func (u *User) OnChannel(name string) bool {
	_, ok := u.Channels[name]
	return ok
}

// Send delivers line to this user if it is local. Remote users are
// reached through federation routing instead, never directly.
func (u *User) Send(line string) {
	if u.Local != nil {
		u.Local.maybeQueueMessage(line)
	}
}
