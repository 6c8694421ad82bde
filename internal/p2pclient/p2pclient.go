// Package p2pclient drives a real IRC connection as a test client, using
// github.com/lrstanley/girc, so integration tests can exercise the
// server's PRIVMSG routing end to end rather than poking internal types
// directly. It wraps up the connect/join/send/collect boilerplate that
// each integration test would otherwise repeat.
package p2pclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lrstanley/girc"

	"github.com/catbox-mesh/ircd/internal/p2p"
)

// Client is a minimal girc-backed IRC client for tests.
type Client struct {
	conn *girc.Client

	mu   sync.Mutex
	priv []PrivMsg

	connected chan struct{}
	once      sync.Once
}

// PrivMsg records an incoming PRIVMSG, decoded as a P2P control message
// when its body matches the grammar.
type PrivMsg struct {
	Source  string
	Target  string
	Text    string
	Control p2p.Control
	IsCtrl  bool
}

// New connects nick to the server at addr (host:port) and waits for
// registration to complete or ctx to expire.
func New(ctx context.Context, addr, nick string) (*Client, error) {
	conn := girc.New(girc.Config{
		Server: hostOf(addr),
		Port:   portOf(addr),
		// The server completes registration only after PASS, NICK and
		// USER; girc sends PASS only when ServerPass is set.
		ServerPass: nick,
		Nick:       nick,
		User:       nick,
		Name:       nick,
	})

	c := &Client{conn: conn, connected: make(chan struct{})}

	conn.Handlers.AddBg(girc.RPL_WELCOME, func(*girc.Client, girc.Event) {
		c.once.Do(func() { close(c.connected) })
	})

	conn.Handlers.AddBg(girc.PRIVMSG, func(_ *girc.Client, e girc.Event) {
		text := ""
		if len(e.Params) > 0 {
			text = e.Last()
		}
		ctrl, ok := p2p.Parse(text)

		c.mu.Lock()
		c.priv = append(c.priv, PrivMsg{
			Source:  e.Source.Name,
			Target:  e.Params[0],
			Text:    text,
			Control: ctrl,
			IsCtrl:  ok,
		})
		c.mu.Unlock()
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- conn.Connect()
	}()

	select {
	case <-c.connected:
		return c, nil
	case err := <-errCh:
		return nil, fmt.Errorf("connect: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Join joins channel and blocks briefly to let the server's JOIN burst
// land before returning.
func (c *Client) Join(channel string) {
	c.conn.Cmd.Join(channel)
	time.Sleep(50 * time.Millisecond)
}

// SendChat sends addr/port as a CHAT negotiation to target.
func (c *Client) SendChat(target, addr, port string) {
	c.sendControl(target, p2p.Control{Verb: p2p.Chat, Addr: addr, Port: port})
}

// SendClose sends a CLOSE negotiation to target.
func (c *Client) SendClose(target, addr, port string) {
	c.sendControl(target, p2p.Control{Verb: p2p.Close, Addr: addr, Port: port})
}

// SendFile offers path to target over addr/port, announcing size bytes.
func (c *Client) SendFile(target, path, addr, port string, size int64) {
	c.sendControl(target, p2p.Control{
		Verb: p2p.Send, Path: path, Addr: addr, Port: port,
		Size: fmt.Sprintf("%d", size),
	})
}

func (c *Client) sendControl(target string, ctrl p2p.Control) {
	c.conn.Cmd.Message(target, p2p.Format(ctrl))
}

// Raw sends line verbatim, for exercising commands girc.Cmd doesn't wrap.
func (c *Client) Raw(line string) {
	c.conn.Cmd.SendRaw(line)
}

// Received returns every PRIVMSG seen so far, in arrival order.
func (c *Client) Received() []PrivMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PrivMsg, len(c.priv))
	copy(out, c.priv)
	return out
}

// WaitForPrivMsg polls until a PRIVMSG arrives or ctx expires.
func (c *Client) WaitForPrivMsg(ctx context.Context) (PrivMsg, bool) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if msgs := c.Received(); len(msgs) > 0 {
			return msgs[len(msgs)-1], true
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return PrivMsg{}, false
		}
	}
}

// Close disconnects the client.
func (c *Client) Close() {
	c.conn.Close()
}

func hostOf(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}

func portOf(addr string) int {
	port := 6667
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			fmt.Sscanf(addr[i+1:], "%d", &port)
			break
		}
	}
	return port
}
