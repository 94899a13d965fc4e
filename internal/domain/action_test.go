package domain

import "testing"

func TestParseActionKind(t *testing.T) {
	cases := []struct {
		in   string
		want ActionKind
		ok   bool
	}{
		{"move", ActionMove, true},
		{" Delete ", ActionDelete, true},
		{"", 0, false},
		{"copy", 0, false},
	}
	for _, c := range cases {
		got, err := ParseActionKind(c.in)
		if (err == nil) != c.ok {
			t.Fatalf("ParseActionKind(%q) err=%v，期望 ok=%v", c.in, err, c.ok)
		}
		if got != c.want {
			t.Fatalf("ParseActionKind(%q)=%v，期望 %v", c.in, got, c.want)
		}
	}
}

func TestAction_String(t *testing.T) {
	if s := Move("/srv/done").String(); s != "move -> /srv/done" {
		t.Fatalf("意外的字符串：%q", s)
	}
	if s := Delete().String(); s != "delete" {
		t.Fatalf("意外的字符串：%q", s)
	}
}
