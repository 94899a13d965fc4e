package feed

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/catfeed/internal/domain"
)

type parsedFeed struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Updated string `xml:"updated"`
	Links   []struct {
		Rel  string `xml:"rel,attr"`
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Author struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Entries []struct {
		ID      string `xml:"id"`
		Title   string `xml:"title"`
		Updated string `xml:"updated"`
		Links   []struct {
			Rel    string `xml:"rel,attr"`
			Type   string `xml:"type,attr"`
			Title  string `xml:"title,attr"`
			Href   string `xml:"href,attr"`
			Length string `xml:"length,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

func TestRender_OrderAndFields(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)
	entries := []domain.FileEntry{
		{RelPath: "a.mp3", Name: "a", ModTime: t1, Size: 500000, MIME: "audio/mpeg"},
		{RelPath: "sub/c.mp3", Name: "c", ModTime: t3, Size: 1, MIME: "audio/mpeg"},
		{RelPath: "sub/b b.mp3", Name: "b b", ModTime: t2, Size: 200000, MIME: "audio/mpeg"},
	}
	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

	b, err := Render(entries, Meta{BaseURL: "http://10.0.0.2:8888/", Title: "podcasts"}, now)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !bytes.HasPrefix(b, []byte(xml.Header)) {
		t.Fatalf("缺少 XML 头：%q", b[:40])
	}

	var f parsedFeed
	if err := xml.Unmarshal(b, &f); err != nil {
		t.Fatalf("输出不是合法 XML：%v\n%s", err, b)
	}
	if f.ID != "http://10.0.0.2:8888/" || f.Title != "podcasts" || f.Author.Name != AuthorName {
		t.Fatalf("feed 头部不符合预期：%+v", f)
	}
	if f.Updated != "2024-02-01T08:00:00Z" {
		t.Fatalf("updated 不符合预期：%q", f.Updated)
	}
	if len(f.Links) != 2 || f.Links[1].Rel != "self" {
		t.Fatalf("feed links 不符合预期：%+v", f.Links)
	}

	var titles []string
	for _, e := range f.Entries {
		titles = append(titles, e.Title)
	}
	if strings.Join(titles, ",") != "c,b b,a" {
		t.Fatalf("期望按时间降序 c,b b,a，实际 %v", titles)
	}

	e := f.Entries[1]
	if e.ID != "http://10.0.0.2:8888/sub/b-b.mp3" {
		t.Fatalf("entry id 不符合预期：%q", e.ID)
	}
	if len(e.Links) != 2 {
		t.Fatalf("期望 2 个 link，实际 %+v", e.Links)
	}
	enc := e.Links[1]
	if enc.Rel != "enclosure" || enc.Type != "audio/mpeg" || enc.Length != "200000" || enc.Href != e.ID || enc.Title != "b b" {
		t.Fatalf("enclosure 不符合预期：%+v", enc)
	}

	// 输入不应被修改（纯函数）。
	if entries[0].RelPath != "a.mp3" || entries[1].RelPath != "sub/c.mp3" {
		t.Fatalf("Render 修改了输入：%+v", entries)
	}
}

func TestRender_EscapesMarkup(t *testing.T) {
	entries := []domain.FileEntry{{RelPath: "<b>&.mp3", Name: `<b>&"x"`, ModTime: time.Unix(0, 0), MIME: "audio/mpeg"}}

	b, err := Render(entries, Meta{BaseURL: "http://h:1/", Title: "Tom & Jerry <live>"}, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var f parsedFeed
	if err := xml.Unmarshal(b, &f); err != nil {
		t.Fatalf("输出不是合法 XML：%v\n%s", err, b)
	}
	if f.Title != "Tom & Jerry <live>" {
		t.Fatalf("标题往返失败：%q", f.Title)
	}
	if f.Entries[0].Title != `<b>&"x"` || f.Entries[0].Links[1].Title != `<b>&"x"` {
		t.Fatalf("条目标题往返失败：%+v", f.Entries[0])
	}
	if f.Entries[0].ID != "http://h:1/%3Cb%3E%26.mp3" {
		t.Fatalf("条目链接不符合预期：%q", f.Entries[0].ID)
	}
}

func TestRender_EmptyCatalog(t *testing.T) {
	b, err := Render(nil, Meta{BaseURL: "http://h:1/", Title: "t"}, time.Now())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var f parsedFeed
	if err := xml.Unmarshal(b, &f); err != nil {
		t.Fatalf("输出不是合法 XML：%v", err)
	}
	if len(f.Entries) != 0 {
		t.Fatalf("不期望任何 entry：%+v", f.Entries)
	}
}

func TestRender_RejectsBaseWithoutSlash(t *testing.T) {
	if _, err := Render(nil, Meta{BaseURL: "http://h:1"}, time.Now()); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 2*3600))
	if got := FormatTime(ts, false); got != "2024-03-04T03:06:07Z" {
		t.Fatalf("UTC 格式不符合预期：%q", got)
	}

	legacy := FormatTime(ts, true)
	want := ts.Local().Format("2006-01-02T15:04:05") + "Z"
	if legacy != want {
		t.Fatalf("legacy 格式期望 %q，实际 %q", want, legacy)
	}

	withMicro := FormatTime(ts.Add(1500*time.Microsecond), true)
	if !strings.HasSuffix(withMicro, ".001500Z") {
		t.Fatalf("legacy 微秒格式不符合预期：%q", withMicro)
	}
}

func TestBaseURL(t *testing.T) {
	if got := BaseURL("192.168.1.15", 8888); got != "http://192.168.1.15:8888/" {
		t.Fatalf("意外结果：%q", got)
	}
	if got := BaseURL("::1", 80); got != "http://[::1]:80/" {
		t.Fatalf("IPv6 应加方括号：%q", got)
	}
}
