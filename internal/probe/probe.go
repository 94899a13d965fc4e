package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Item 是 feed 中一个条目的最小可用视图。
type Item struct {
	ID      string
	Title   string
	Updated string
	Href    string
	Type    string
	Length  int64
}

// Feed 是解析得到的 feed 文档。
type Feed struct {
	ID      string
	Title   string
	Updated string
	Items   []Item
}

// HTTPStatusError 表示服务端返回了非 2xx 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d url=%s", e.StatusCode, e.URL)
}

// maxFeedBytes 限制一次读取的 feed 大小，避免误指向大文件时把它整个读进内存。
const maxFeedBytes = 32 << 20

// Fetch 以 GET 取回 feed 并解析。
//
// 注意：只能对 feed 根地址使用。对文件 URL 发 GET 会触发服务端投递（move/delete）。
func Fetch(ctx context.Context, c *http.Client, feedURL string) (Feed, error) {
	if c == nil {
		return Feed{}, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return Feed{}, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return Feed{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Feed{}, &HTTPStatusError{URL: feedURL, StatusCode: resp.StatusCode}
	}
	return Parse(io.LimitReader(resp.Body, maxFeedBytes))
}

// Head 以 HEAD 探测某个条目是否仍可下载；HEAD 不会触发投递。
func Head(ctx context.Context, c *http.Client, itemURL string) (status int, contentType string, err error) {
	if c == nil {
		return 0, "", errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, itemURL, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := c.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

// Parse 解析 Atom feed。
//
// goquery 按 HTML 规则建树：<link> 被当作 void 元素，正好对应 feed 中的自闭合 link。
func Parse(r io.Reader) (Feed, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Feed{}, err
	}

	root := doc.Find("feed").First()
	if root.Length() == 0 {
		return Feed{}, errors.New("文档中没有 <feed> 元素")
	}

	f := Feed{
		ID:      childText(root, "id"),
		Title:   childText(root, "title"),
		Updated: childText(root, "updated"),
	}

	var perr error
	root.Find("entry").EachWithBreak(func(i int, s *goquery.Selection) bool {
		it := Item{
			ID:      childText(s, "id"),
			Title:   childText(s, "title"),
			Updated: childText(s, "updated"),
		}
		enc := s.Find(`link[rel="enclosure"]`).First()
		if enc.Length() > 0 {
			it.Href = strings.TrimSpace(enc.AttrOr("href", ""))
			it.Type = strings.TrimSpace(enc.AttrOr("type", ""))
			if l := strings.TrimSpace(enc.AttrOr("length", "")); l != "" {
				n, err := strconv.ParseInt(l, 10, 64)
				if err != nil {
					perr = fmt.Errorf("第 %d 个 entry 的 length 非法：%q", i+1, l)
					return false
				}
				it.Length = n
			}
		}
		if it.Href == "" {
			it.Href = strings.TrimSpace(s.Find("link").First().AttrOr("href", ""))
		}
		f.Items = append(f.Items, it)
		return true
	})
	if perr != nil {
		return Feed{}, perr
	}
	return f, nil
}

func childText(s *goquery.Selection, name string) string {
	return strings.TrimSpace(s.ChildrenFiltered(name).First().Text())
}
