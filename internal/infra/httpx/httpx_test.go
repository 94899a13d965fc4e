package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type flakyRT struct {
	fails int
	calls int
	ua    string
}

func (f *flakyRT) RoundTrip(r *http.Request) (*http.Response, error) {
	f.calls++
	f.ua = r.Header.Get("User-Agent")
	if f.calls <= f.fails {
		return nil, errors.New("boom")
	}
	return &http.Response{StatusCode: 200, Body: http.NoBody, Request: r}, nil
}

func TestTransport_RetriesIdempotent(t *testing.T) {
	rt := &flakyRT{fails: 2}
	tr := &Transport{Base: rt, RetryMax: 2}

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if rt.calls != 3 {
		t.Fatalf("期望 3 次尝试，实际 %d", rt.calls)
	}
	if rt.ua != UserAgent {
		t.Fatalf("期望 UA=%q，实际 %q", UserAgent, rt.ua)
	}
}

func TestTransport_NoRetryWithBody(t *testing.T) {
	rt := &flakyRT{fails: 1}
	tr := &Transport{Base: rt, RetryMax: 2}

	req, _ := http.NewRequest(http.MethodPost, "http://example.test/", strings.NewReader("x"))
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if rt.calls != 1 {
		t.Fatalf("非幂等请求不应重试，实际 %d 次", rt.calls)
	}
}

func TestNewClient_Roundtrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer srv.Close()

	resp, err := NewClient(0).Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", resp.StatusCode)
	}
}
