package ircd

import "testing"

func TestValidChannelName(t *testing.T) {
	cases := map[string]bool{
		"channel1":                  false,
		"#c":                        true,
		"&local":                    true,
		"#a b":                      false,
		"#a,b":                      false,
	}
	for name, want := range cases {
		if got := ValidChannelName(name); got != want {
			t.Errorf("ValidChannelName(%q) = %v, want %v", name, got, want)
		}
	}

	if ValidChannelName(longName(201)) {
		t.Error("expected a 201-byte name to be rejected")
	}
}

func longName(n int) string {
	b := make([]byte, n)
	b[0] = '#'
	for i := 1; i < n; i++ {
		b[i] = 'a'
	}
	return string(b)
}

func TestLimitOneShot(t *testing.T) {
	c := NewChannel("#c")
	c.AddMember("a", true)
	c.AddMember("b", false)

	c.SetLimit(1) // below current membership of 2: silently ignored
	if c.Modes.LimitSet {
		t.Fatal("expected +l 1 on a 2-member channel to be ignored")
	}

	c.SetLimit(5)
	c.SetLimit(10) // one-shot until cleared: retains 5
	if c.Limit != 5 {
		t.Fatalf("expected limit to stay 5, got %d", c.Limit)
	}

	c.ClearLimit()
	c.SetLimit(10)
	if c.Limit != 10 {
		t.Fatalf("expected limit 10 after ClearLimit, got %d", c.Limit)
	}
}

func TestKeySetOnce(t *testing.T) {
	c := NewChannel("#c")
	if !c.SetKey("pw") {
		t.Fatal("expected first SetKey to succeed")
	}
	if c.SetKey("pw2") {
		t.Fatal("expected SetKey to fail while a key is already set")
	}
	c.ClearKey()
	if !c.SetKey("pw2") {
		t.Fatal("expected SetKey to succeed after ClearKey")
	}
}

func TestBanMaskMatching(t *testing.T) {
	c := NewChannel("#c")
	c.AddBan("!*@*.example.org")

	if !c.IsBanned("evil!user@host.example.org") {
		t.Error("expected suffix ban mask to match")
	}
	if c.IsBanned("ok!user@host.other.org") {
		t.Error("did not expect ban mask to match a different suffix")
	}
}

func TestBanListCap(t *testing.T) {
	c := NewChannel("#c")
	for i := 0; i < maxBans; i++ {
		if !c.AddBan(string(rune('a' + i))) {
			t.Fatalf("expected ban %d to be added", i)
		}
	}
	if c.AddBan("one-too-many") {
		t.Fatal("expected a 4th ban mask to be rejected")
	}
}

func TestAdminsSubsetOfMembers(t *testing.T) {
	c := NewChannel("#c")
	c.AddMember("a", true)
	c.RemoveMember("a")
	if len(c.Admins) != 0 || len(c.Members) != 0 {
		t.Fatal("expected admins and members to both be empty after removal")
	}
}

func TestJoinPartRoundTrip(t *testing.T) {
	d := testDaemon(t)
	a := testUser(d, "a")

	c, created := d.GetOrCreateChannel("#c")
	if !created {
		t.Fatal("expected channel creation")
	}
	c.AddMember(a.Nick, true)
	a.Channels["#c"] = struct{}{}

	c.RemoveMember(a.Nick)
	delete(a.Channels, "#c")

	if len(c.Members) != 0 {
		t.Fatalf("expected membership to return to empty, got %v", c.Members)
	}
	if len(a.Channels) != 0 {
		t.Fatalf("expected user's channel set to return to empty, got %v", a.Channels)
	}
}
