package p2p

import "testing"

func TestParseChat(t *testing.T) {
	c, ok := Parse("CHAT 10.0.0.5 1234")
	if !ok {
		t.Fatal("expected ok")
	}
	if c.Verb != Chat || c.Addr != "10.0.0.5" || c.Port != "1234" {
		t.Fatalf("unexpected control: %+v", c)
	}
}

func TestParseSend(t *testing.T) {
	c, ok := Parse("SEND notes.txt 10.0.0.5 1234 4096")
	if !ok {
		t.Fatal("expected ok")
	}
	if c.Verb != Send || c.Path != "notes.txt" || c.Size != "4096" {
		t.Fatalf("unexpected control: %+v", c)
	}
	size, err := ParsedSize(c)
	if err != nil {
		t.Fatalf("ParsedSize: %v", err)
	}
	if size != 4096 {
		t.Fatalf("expected 4096, got %d", size)
	}
}

func TestParseResume(t *testing.T) {
	c, ok := Parse("RESUME notes.txt 10.0.0.5 1234 2048")
	if !ok {
		t.Fatal("expected ok")
	}
	if c.Verb != Resume || c.Offset != "2048" {
		t.Fatalf("unexpected control: %+v", c)
	}
}

func TestParseNotControl(t *testing.T) {
	if _, ok := Parse("hey, got a sec?"); ok {
		t.Fatal("expected not ok for an ordinary chat message")
	}
	if _, ok := Parse(""); ok {
		t.Fatal("expected not ok for empty text")
	}
}

func TestParseWrongArity(t *testing.T) {
	if _, ok := Parse("CHAT 10.0.0.5"); ok {
		t.Fatal("expected not ok, missing port")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	cases := []string{
		"CHAT 10.0.0.5 1234",
		"CLOSE 10.0.0.5 1234",
		"SEND notes.txt 10.0.0.5 1234 4096",
		"ACCEPT notes.txt 10.0.0.5 1234",
		"RESUME notes.txt 10.0.0.5 1234 2048",
	}
	for _, text := range cases {
		c, ok := Parse(text)
		if !ok {
			t.Fatalf("Parse(%q) not ok", text)
		}
		if got := Format(c); got != text {
			t.Errorf("Format(Parse(%q)) = %q", text, got)
		}
	}
}

func TestParsedSizeWrongVerb(t *testing.T) {
	c, _ := Parse("CHAT 10.0.0.5 1234")
	if _, err := ParsedSize(c); err == nil {
		t.Fatal("expected error for non-SEND control")
	}
}
