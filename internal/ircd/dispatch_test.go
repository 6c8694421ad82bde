package ircd

import (
	"strings"
	"testing"

	"github.com/catbox-mesh/ircd/internal/message"
)

func drain(t *testing.T, u *User) []string {
	t.Helper()
	var out []string
	for {
		select {
		case line := <-u.Local.WriteChan:
			out = append(out, line)
		default:
			return out
		}
	}
}

// TestJoinFreshChannel exercises a lone user joining a
// brand new channel sees topic, names and end-of-names in order.
func TestJoinFreshChannel(t *testing.T) {
	d := testDaemon(t)
	a := testUser(d, "a")

	cmdJoin(d, a, message.Message{Command: "JOIN", Params: []string{"#c"}})

	lines := drain(t, a)
	if len(lines) < 4 {
		t.Fatalf("expected at least 4 replies, got %v", lines)
	}
	if !strings.Contains(lines[0], "JOIN #c") {
		t.Errorf("expected the JOIN echo first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], " 332 ") {
		t.Errorf("expected 332 topic (empty payload when unset), got %q", lines[1])
	}
	if !strings.Contains(lines[2], " 353 ") || !strings.Contains(lines[2], "a") {
		t.Errorf("expected 353 names with a, got %q", lines[2])
	}
	if !strings.Contains(lines[3], " 366 ") {
		t.Errorf("expected 366 end-of-names, got %q", lines[3])
	}
}

// TestJoinSecondMember exercises scenario 2: a second joiner sees both
// nicks in NAMES.
func TestJoinSecondMember(t *testing.T) {
	d := testDaemon(t)
	a := testUser(d, "a")
	b := testUser(d, "b")

	cmdJoin(d, a, message.Message{Command: "JOIN", Params: []string{"#c"}})
	drain(t, a)

	cmdJoin(d, b, message.Message{Command: "JOIN", Params: []string{"#c"}})
	lines := drain(t, b)

	found := false
	for _, l := range lines {
		if strings.Contains(l, " 353 ") && strings.Contains(l, "a") && strings.Contains(l, "b") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a 353 reply containing both a and b, got %v", lines)
	}
}

// TestPrivmsgAwayAutoReply exercises scenario 3.
func TestPrivmsgAwayAutoReply(t *testing.T) {
	d := testDaemon(t)
	a := testUser(d, "a")
	b := testUser(d, "b")
	b.Away = "brb"

	cmdPrivmsg(d, a, message.Message{Command: "PRIVMSG", Params: []string{"b", "hi"}}, false)

	bLines := drain(t, b)
	if len(bLines) != 1 || !strings.Contains(bLines[0], "PRIVMSG b :hi") {
		t.Fatalf("expected b to receive the privmsg, got %v", bLines)
	}

	aLines := drain(t, a)
	if len(aLines) != 1 || !strings.Contains(aLines[0], "[Mensaje automático] brb") {
		t.Fatalf("expected a to receive the away auto-reply, got %v", aLines)
	}
}

// TestJoinInviteOnly exercises scenario 4.
func TestJoinInviteOnly(t *testing.T) {
	d := testDaemon(t)
	a := testUser(d, "a")
	c := testUser(d, "c")

	cmdJoin(d, a, message.Message{Command: "JOIN", Params: []string{"#c"}})
	drain(t, a)

	cmdMode(d, a, message.Message{Command: "MODE", Params: []string{"#c", "+i"}})
	drain(t, a)

	cmdJoin(d, c, message.Message{Command: "JOIN", Params: []string{"#c"}})
	cLines := drain(t, c)
	if len(cLines) != 1 || !strings.Contains(cLines[0], " 473 ") {
		t.Fatalf("expected 473 invite-only rejection, got %v", cLines)
	}

	cmdInvite(d, a, message.Message{Command: "INVITE", Params: []string{"c", "#c"}})
	aLines := drain(t, a)
	if len(aLines) != 1 || !strings.Contains(aLines[0], " 341 ") {
		t.Fatalf("expected 341 inviting reply, got %v", aLines)
	}

	cmdJoin(d, c, message.Message{Command: "JOIN", Params: []string{"#c"}})
	chn, ok := d.GetChannel("#c")
	if !ok || !chn.IsMember("c") {
		t.Fatal("expected c to have joined after being invited")
	}
}

func TestNickDuplicateRejected(t *testing.T) {
	d := testDaemon(t)
	testUser(d, "a")
	b := testUser(d, "b")

	cmdNick(d, b, message.Message{Command: "NICK", Params: []string{"a"}})
	lines := drain(t, b)
	if len(lines) != 1 || !strings.Contains(lines[0], " 433 ") {
		t.Fatalf("expected 433 nickname in use, got %v", lines)
	}
}

func TestKickRequiresAdmin(t *testing.T) {
	d := testDaemon(t)
	a := testUser(d, "a")
	b := testUser(d, "b")

	cmdJoin(d, a, message.Message{Command: "JOIN", Params: []string{"#c"}})
	drain(t, a)
	cmdJoin(d, b, message.Message{Command: "JOIN", Params: []string{"#c"}})
	drain(t, a)
	drain(t, b)

	cmdKick(d, b, message.Message{Command: "KICK", Params: []string{"#c", "a"}})
	lines := drain(t, b)
	if len(lines) != 1 || !strings.Contains(lines[0], " 482 ") {
		t.Fatalf("expected 482 chanop-needed, got %v", lines)
	}
}
