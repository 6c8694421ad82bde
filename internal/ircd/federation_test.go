package ircd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/catbox-mesh/ircd/internal/message"
)

func msgTo(target, text string) message.Message {
	return message.Message{Command: "PRIVMSG", Params: []string{target, text}}
}

func msgSquit(target string) message.Message {
	return message.Message{Command: "SQUIT", Params: []string{target}}
}

func linkDaemons(t *testing.T, s1, s2 *Daemon) {
	t.Helper()
	c1, c2 := net.Pipe()
	go Serve(s2, c2)
	if err := linkOverConn(s1, c1); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
}

func TestFederationRouting(t *testing.T) {
	s1 := testNamedDaemon(t, "S1")
	s2 := testNamedDaemon(t, "S2")

	linkDaemons(t, s1, s2)

	if !s1.IsConnectedTo("S2") {
		t.Fatal("expected S1 to see S2 as connected")
	}
	if !s2.IsConnectedTo("S1") {
		t.Fatal("expected S2 to see S1 as connected")
	}

	a := testUser(s1, "a")
	b := testUser(s2, "b")

	// Gossip each new user to the other side, same as registration does.
	gossipNewUser(s1, a)
	gossipNewUser(s2, b)
	time.Sleep(50 * time.Millisecond)

	cmdPrivmsg(s1, a, msgTo("b", "x"), false)

	line, ok := waitForLine(t, b, 2*time.Second)
	if !ok {
		t.Fatal("expected b to receive the routed PRIVMSG")
	}
	if !strings.Contains(line, "PRIVMSG b :x") {
		t.Fatalf("unexpected routed line: %q", line)
	}
}

func TestSquitRemovesSubtreeUsers(t *testing.T) {
	s1 := testNamedDaemon(t, "S1")
	s2 := testNamedDaemon(t, "S2")

	linkDaemons(t, s1, s2)

	remote := &User{Nick: "remote", Server: "S2", Channels: map[string]struct{}{}}
	s2.AddUser(remote)
	gossipNewUser(s2, remote)
	time.Sleep(50 * time.Millisecond)

	if _, ok := s1.GetUser("remote"); !ok {
		t.Fatal("expected S1 to have learned about remote via gossip")
	}

	admin := testUser(s1, "root")
	admin.Admin = true

	cmdSquit(s1, admin, msgSquit("S2"))

	if s1.IsConnectedTo("S2") {
		t.Fatal("expected S2 subtree to be detached after SQUIT")
	}
	if _, ok := s1.GetUser("remote"); ok {
		t.Fatal("expected remote user to be removed after SQUIT S2")
	}
}

func waitForLine(t *testing.T, u *User, timeout time.Duration) (string, bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case line := <-u.Local.WriteChan:
			return line, true
		case <-deadline:
			return "", false
		}
	}
}
