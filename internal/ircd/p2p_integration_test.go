package ircd_test

import (
	"bytes"
	"context"
	"log"
	"net"
	"testing"
	"time"

	"github.com/catbox-mesh/ircd/internal/config"
	"github.com/catbox-mesh/ircd/internal/ircd"
	"github.com/catbox-mesh/ircd/internal/p2p"
	"github.com/catbox-mesh/ircd/internal/p2pclient"
)

// startTestServer binds to an ephemeral port and runs the daemon's
// accept loop in the background, returning the address clients should
// dial. Grounded on internal/catbox_test.go's "spin up a server, drive
// it over a real socket" harness, adapted to use a real listener
// instead of exec'ing a compiled binary.
func startTestServer(t *testing.T) string {
	t.Helper()

	cfg := config.Default()
	cfg.ServerName = "irc.p2p.test"
	d := ircd.NewDaemon(cfg, log.New(&bytes.Buffer{}, "", 0))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = ircd.Accept(d, ln)
	}()
	t.Cleanup(func() { _ = ln.Close() })

	return ln.Addr().String()
}

// TestP2PChatNegotiationRoutedThroughPrivmsg drives two real IRC clients
// (via internal/p2pclient, itself built on github.com/lrstanley/girc)
// through a CHAT negotiation carried inside PRIVMSG, the exact
// opaque-routing behavior §6 describes for the P2P control grammar: the
// server never parses CHAT/SEND/ACCEPT/RESUME, it only routes the
// PRIVMSG like any other one.
func TestP2PChatNegotiationRoutedThroughPrivmsg(t *testing.T) {
	addr := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, err := p2pclient.New(ctx, addr, "alice")
	if err != nil {
		t.Fatalf("alice connect: %v", err)
	}
	defer alice.Close()

	bob, err := p2pclient.New(ctx, addr, "bob")
	if err != nil {
		t.Fatalf("bob connect: %v", err)
	}
	defer bob.Close()

	alice.SendChat("bob", "192.168.1.5", "4000")

	msg, ok := bob.WaitForPrivMsg(ctx)
	if !ok {
		t.Fatal("bob never received the CHAT negotiation")
	}
	if !msg.IsCtrl {
		t.Fatalf("expected a parsed P2P control message, got %+v", msg)
	}
	if msg.Control.Verb != p2p.Chat || msg.Control.Addr != "192.168.1.5" || msg.Control.Port != "4000" {
		t.Fatalf("unexpected control payload: %+v", msg.Control)
	}
}

// TestP2PSendOfferRoundTrip exercises a SEND offer announced over a
// channel instead of a direct message, checking that it arrives intact
// (path and size), matching how a file
// offer is typically announced in the originating GUI client's flow
// (see original_source/).
func TestP2PSendOfferRoundTrip(t *testing.T) {
	addr := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, err := p2pclient.New(ctx, addr, "alice2")
	if err != nil {
		t.Fatalf("alice connect: %v", err)
	}
	defer alice.Close()

	bob, err := p2pclient.New(ctx, addr, "bob2")
	if err != nil {
		t.Fatalf("bob connect: %v", err)
	}
	defer bob.Close()

	alice.Join("#transfer")
	bob.Join("#transfer")

	alice.SendFile("#transfer", "notes.txt", "192.168.1.5", "4001", 4096)

	msg, ok := bob.WaitForPrivMsg(ctx)
	if !ok {
		t.Fatal("bob never received the SEND offer")
	}
	if !msg.IsCtrl || msg.Control.Verb != p2p.Send || msg.Control.Path != "notes.txt" {
		t.Fatalf("unexpected control payload: %+v", msg.Control)
	}

	size, err := p2p.ParsedSize(msg.Control)
	if err != nil || size != 4096 {
		t.Fatalf("expected size 4096, got %d (err=%v)", size, err)
	}
}
