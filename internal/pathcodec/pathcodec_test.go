package pathcodec

import "testing"

func TestEncode(t *testing.T) {
	cases := map[string]string{
		"a.mp3":              "a.mp3",
		"sub/b.mp3":          "sub/b.mp3",
		"my song.mp3":        "my-song.mp3",
		"rock&roll/#1?.ogg":  "rock%26roll/%231%3F.ogg",
		"100%.txt":           "100%25.txt",
		"a~b+c.mp3":          "a%7Eb%2Bc.mp3",
		"żółw.mp3":           "%C5%BC%C3%B3%C5%82w.mp3",
		"already-hyphen.mp3": "already-hyphen.mp3",
	}
	for in, want := range cases {
		if got := Encode(in); got != want {
			t.Fatalf("Encode(%q)=%q，期望 %q", in, got, want)
		}
	}
}

func TestDecodeEncode_RoundTripUnreserved(t *testing.T) {
	for _, p := range []string{"a.mp3", "dir/sub_dir/file-1.ogg", "X.Y.Z", ""} {
		got, err := Decode(Encode(p))
		if err != nil {
			t.Fatalf("Decode 不期望错误：%v", err)
		}
		if got != p {
			t.Fatalf("round-trip 失败：%q -> %q", p, got)
		}
	}
}

func TestDecode_HyphenNotReversed(t *testing.T) {
	got, err := Decode(Encode("a b.mp3"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got != "a-b.mp3" {
		t.Fatalf("'-' 不应被还原为空格，实际 %q", got)
	}
}

func TestCanonical(t *testing.T) {
	got, ok := Canonical("a%7eb.mp3")
	if !ok || got != "a%7Eb.mp3" {
		t.Fatalf("Canonical 结果不符合预期：%q ok=%v", got, ok)
	}
	if _, ok := Canonical("bad%zz"); ok {
		t.Fatalf("非法编码应返回 ok=false")
	}
}
