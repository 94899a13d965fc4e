package httpx

import (
	"errors"
	"net/http"
	"time"
)

// DefaultTimeout 是 NewClient(timeout<=0) 时使用的单次请求总超时。
const DefaultTimeout = 30 * time.Second

const defaultRetryMax = 2

// UserAgent 由 cmd 在启动时写入版本号。
var UserAgent = "catfeed"

// Transport 把“固定 UA + 有界重试”固化为统一策略。
// probe 只负责“取文档 + 解析”，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只重试 HEAD 与无 body 的 GET。
	// 注意：对 catfeed 的文件 GET 会触发投递，因此 probe 只对 feed 本身用 GET。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", UserAgent)
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// NewClient 构造带有界重试与总超时的 HTTP client。timeout<=0 时使用默认值。
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	return &http.Client{
		Transport: &Transport{Base: base, RetryMax: defaultRetryMax},
		Timeout:   timeout,
	}
}
