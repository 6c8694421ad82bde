package message

import "testing"

func TestParseBasic(t *testing.T) {
	tests := []struct {
		line string
		want Message
	}{
		{
			line: ":nick!user@host PRIVMSG #chan :hello there",
			want: Message{
				Prefix:  "nick!user@host",
				Command: "PRIVMSG",
				Params:  []string{"#chan", "hello there"},
			},
		},
		{
			line: "NICK bob",
			want: Message{Command: "NICK", Params: []string{"bob"}},
		},
		{
			line: "PING",
			want: Message{Command: "PING"},
		},
		{
			line: "",
			want: Message{},
		},
		{
			line: ":onlyprefix",
			want: Message{Prefix: "onlyprefix"},
		},
		{
			line: ":s1 SERVER s2 2",
			want: Message{Prefix: "s1", Command: "SERVER", Params: []string{"s2", "2"}},
		},
		{
			line: "332 nick #chan :",
			want: Message{Command: "332", Params: []string{"nick", "#chan", ""}},
		},
	}

	for _, tt := range tests {
		got := Parse(tt.line)
		if got.Prefix != tt.want.Prefix || got.Command != tt.want.Command ||
			len(got.Params) != len(tt.want.Params) {
			t.Fatalf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
		for i := range got.Params {
			if got.Params[i] != tt.want.Params[i] {
				t.Fatalf("Parse(%q) param %d = %q, want %q", tt.line, i,
					got.Params[i], tt.want.Params[i])
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{
		":nick!user@host PRIVMSG #chan :hello there friend",
		"NICK bob",
		"PING",
		":a!b@c QUIT :bye bye",
		"332 nick #chan :",
		":s1 SERVER s2 2",
		"JOIN #chan",
	}

	for _, line := range lines {
		m := Parse(line)
		got := Encode(m)
		if got != line {
			t.Errorf("round trip mismatch: parse/encode(%q) = %q", line, got)
		}
	}
}

func TestSourceNick(t *testing.T) {
	m := Message{Prefix: "alice!a@host.example"}
	if got := m.SourceNick(); got != "alice" {
		t.Errorf("SourceNick() = %q, want alice", got)
	}

	m2 := Message{Prefix: "irc.example.org"}
	if got := m2.SourceNick(); got != "" {
		t.Errorf("SourceNick() = %q, want empty for server prefix", got)
	}
}
