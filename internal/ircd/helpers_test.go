package ircd

import (
	"bytes"
	"log"
	"testing"

	"github.com/catbox-mesh/ircd/internal/config"
)

func testDaemon(t *testing.T) *Daemon {
	t.Helper()
	return testNamedDaemon(t, "irc.test")
}

func testNamedDaemon(t *testing.T, name string) *Daemon {
	t.Helper()
	cfg := config.Default()
	cfg.ServerName = name
	return NewDaemon(cfg, log.New(&bytes.Buffer{}, "", 0))
}

// testUser registers a bare local user directly against the directory,
// bypassing the network handshake, for unit tests that only need a
// populated User to mutate.
func testUser(d *Daemon, nick string) *User {
	local := &LocalClient{WriteChan: make(chan string, 64)}
	u := NewUser(nick, "u", "host.example.org", d.Name, "Real Name", local)
	d.AddUser(u)
	return u
}
