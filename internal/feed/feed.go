package feed

import (
	"encoding/xml"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/catfeed/internal/domain"
	"github.com/John-Robertt/catfeed/internal/pathcodec"
)

const (
	// AuthorName 固定写入 feed 级 <author>。
	AuthorName = "CatFeed"
	// ContentType 是 feed 响应的 Content-Type（沿用既有客户端的约定）。
	ContentType = "text/html"
)

// Meta 是 feed 级参数（来自启动配置，不随请求变化）。
type Meta struct {
	// BaseURL 形如 "http://192.168.1.15:8888/"，必须以 '/' 结尾。
	BaseURL string
	Title   string
	// LegacyTimestamps=true 时输出“本地时间 + 字面量 Z”（兼容旧消费者）；否则输出真正的 UTC。
	LegacyTimestamps bool
}

// BaseURL 由 host/port 拼出 feed 根地址。
func BaseURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}

func (m Meta) FeedURL() string { return m.BaseURL }

func (m Meta) ItemURL(e domain.FileEntry) string {
	return m.BaseURL + pathcodec.Encode(e.RelPath)
}

type atomFeed struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/Atom feed"`

	ID      string     `xml:"id"`
	Title   string     `xml:"title"`
	Updated string     `xml:"updated"`
	Links   []atomLink `xml:"link"`
	Author  atomAuthor `xml:"author"`

	Entries []atomEntry `xml:"entry"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Rel    string `xml:"rel,attr,omitempty"`
	Type   string `xml:"type,attr,omitempty"`
	Title  string `xml:"title,attr,omitempty"`
	Href   string `xml:"href,attr"`
	Length string `xml:"length,attr,omitempty"`
}

type atomEntry struct {
	ID      string     `xml:"id"`
	Title   string     `xml:"title"`
	Updated string     `xml:"updated"`
	Links   []atomLink `xml:"link"`
	Summary string     `xml:"summary"`
}

// Render 把条目序列化为 Atom 文档。
//
// 规则：
// - 按 ModTime 降序（相同时间保持输入顺序）
// - 每个条目的 id/link/enclosure href 都是 BaseURL + 编码后的相对路径
// - 标题与路径中的 XML 特殊字符由 encoding/xml 转义
// - 纯函数：不修改 entries，不做 I/O
func Render(entries []domain.FileEntry, m Meta, now time.Time) ([]byte, error) {
	if !strings.HasSuffix(m.BaseURL, "/") {
		return nil, fmt.Errorf("base url 必须以 '/' 结尾：%q", m.BaseURL)
	}

	sorted := append([]domain.FileEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ModTime.After(sorted[j].ModTime)
	})

	doc := atomFeed{
		ID:      m.FeedURL(),
		Title:   m.Title,
		Updated: FormatTime(now, m.LegacyTimestamps),
		Links: []atomLink{
			{Href: m.BaseURL},
			{Rel: "self", Href: m.FeedURL()},
		},
		Author:  atomAuthor{Name: AuthorName},
		Entries: make([]atomEntry, 0, len(sorted)),
	}

	for _, e := range sorted {
		link := m.ItemURL(e)
		doc.Entries = append(doc.Entries, atomEntry{
			ID:      link,
			Title:   e.Name,
			Updated: FormatTime(e.ModTime, m.LegacyTimestamps),
			Links: []atomLink{
				{Href: link},
				{
					Rel:    "enclosure",
					Type:   e.MIME,
					Title:  e.Name,
					Href:   link,
					Length: strconv.FormatInt(e.Size, 10),
				},
			},
		})
	}

	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}

// FormatTime 输出 feed 中的时间戳。
//
// legacy=true 时复刻旧格式：本地时间 + 字面量 'Z'（并未真正转换到 UTC），
// 微秒不为 0 时带 6 位小数。
func FormatTime(t time.Time, legacy bool) string {
	if !legacy {
		return t.UTC().Format(time.RFC3339)
	}
	lt := t.Local()
	if lt.Nanosecond()/1000 != 0 {
		return lt.Format("2006-01-02T15:04:05.000000") + "Z"
	}
	return lt.Format("2006-01-02T15:04:05") + "Z"
}
