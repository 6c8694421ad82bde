// Package p2p implements the client-to-client file-transfer negotiation
// grammar carried inside PRIVMSG. Servers never parse these;
// a PRIVMSG with one of these verbs as its first word is routed
// exactly like any other PRIVMSG, opaquely. This package exists for the
// client side, which DOES care about the structure: the test client in
// internal/p2pclient builds and decodes control lines with it, and tests
// use it to construct and check valid control lines.
package p2p

import (
	"fmt"
	"strconv"
	"strings"
)

// Verb identifies which P2P control message a payload is.
type Verb string

const (
	Chat   Verb = "CHAT"
	Close  Verb = "CLOSE"
	Send   Verb = "SEND"
	Accept Verb = "ACCEPT"
	Resume Verb = "RESUME"
)

// Control holds a parsed P2P control payload.
type Control struct {
	Verb Verb
	Path string // empty for CHAT/CLOSE
	Addr string
	Port string
	Size string // SEND only
	Offset string // RESUME only
}

// Parse attempts to read text (the trailing parameter of a PRIVMSG) as a
// P2P control message. ok is false if text's first word isn't one of the
// known verbs, in which case it is an ordinary chat message and must be
// routed/displayed as such.
func Parse(text string) (Control, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Control{}, false
	}

	switch Verb(fields[0]) {
	case Chat, Close:
		// CHAT <addr> <port> / CLOSE <addr> <port>
		if len(fields) != 3 {
			return Control{}, false
		}
		return Control{Verb: Verb(fields[0]), Addr: fields[1], Port: fields[2]}, true

	case Send:
		// SEND <path> <addr> <port> <size>
		if len(fields) != 5 {
			return Control{}, false
		}
		return Control{
			Verb: Send, Path: fields[1], Addr: fields[2], Port: fields[3],
			Size: fields[4],
		}, true

	case Accept:
		// ACCEPT <path> <addr> <port>
		if len(fields) != 4 {
			return Control{}, false
		}
		return Control{Verb: Accept, Path: fields[1], Addr: fields[2], Port: fields[3]}, true

	case Resume:
		// RESUME <path> <addr> <port> <offset>
		if len(fields) != 5 {
			return Control{}, false
		}
		return Control{
			Verb: Resume, Path: fields[1], Addr: fields[2], Port: fields[3],
			Offset: fields[4],
		}, true
	}

	return Control{}, false
}

// Format renders c back to its wire form, the PRIVMSG trailing text.
func Format(c Control) string {
	switch c.Verb {
	case Chat, Close:
		return fmt.Sprintf("%s %s %s", c.Verb, c.Addr, c.Port)
	case Send:
		return fmt.Sprintf("%s %s %s %s %s", c.Verb, c.Path, c.Addr, c.Port, c.Size)
	case Accept:
		return fmt.Sprintf("%s %s %s %s", c.Verb, c.Path, c.Addr, c.Port)
	case Resume:
		return fmt.Sprintf("%s %s %s %s %s", c.Verb, c.Path, c.Addr, c.Port, c.Offset)
	}
	return ""
}

// ParsedSize returns c.Size as an int64, or an error if c isn't a SEND
// control or the size isn't a valid non-negative integer.
func ParsedSize(c Control) (int64, error) {
	if c.Verb != Send {
		return 0, fmt.Errorf("not a SEND control: %s", c.Verb)
	}
	n, err := strconv.ParseInt(c.Size, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative SEND size: %d", n)
	}
	return n, nil
}
