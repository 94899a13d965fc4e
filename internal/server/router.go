package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/catfeed/internal/catalog"
	"github.com/John-Robertt/catfeed/internal/config"
	"github.com/John-Robertt/catfeed/internal/delivery"
	"github.com/John-Robertt/catfeed/internal/domain"
	"github.com/John-Robertt/catfeed/internal/feed"
	"github.com/John-Robertt/catfeed/internal/pathcodec"
)

// Observer 把“投递结果”从请求处理流程中解耦出来（CLI 输出、测试同步）。
// 实现必须并发安全：事件来自各个请求的 goroutine。
type Observer interface {
	// OnDelivered 在完整传输之后、投递动作执行完毕时调用；err 非空表示投递失败。
	OnDelivered(e domain.FileEntry, dst string, err error)
	// OnAborted 在传输中途失败（客户端断开、文件被截断等）时调用，此时不会投递。
	OnAborted(e domain.FileEntry, written int64, err error)
}

// Router 把每个请求映射为：feed / 文件流 + 投递 / 404。
//
// 约束：
// - 请求之间不共享任何状态；每个请求都重新扫描 catalog
// - HEAD 永远不触发投递
// - 只有文件内容全部写出后才投递；写失败即中止，不投递
// - 同一文件的并发下载不加锁：后完成的那次投递会因源文件缺失而失败，并记录日志
type Router struct {
	Scanner   catalog.Scanner
	Feed      feed.Meta
	Action    domain.Action
	ChunkSize int
	Logger    *zap.Logger
	Observer  Observer

	// Now 可替换，便于测试 feed 的 updated 字段。
	Now func() time.Time
}

// NewRouter 用最终配置装配 Router。
func NewRouter(eff config.EffectiveConfig, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		Scanner: catalog.Scanner{
			Root:        eff.Catalog,
			Action:      eff.Action,
			ExcludeDirs: eff.ExcludeDirs,
			TimeSource:  eff.TimeSource,
			Logger:      log.Named("catalog"),
		},
		Feed: feed.Meta{
			BaseURL:          feed.BaseURL(eff.Host, eff.Port),
			Title:            eff.Title,
			LegacyTimestamps: eff.LegacyTimestamps,
		},
		Action:    eff.Action,
		ChunkSize: eff.ChunkSize,
		Logger:    log.Named("http"),
		Now:       time.Now,
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := rt.logger()
	log.Debug("收到请求", zap.String("method", r.Method), zap.String("path", r.URL.EscapedPath()), zap.String("remote", r.RemoteAddr))

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path == "/" {
		rt.serveFeed(w, r)
		return
	}

	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/")
	urlPath, ok := pathcodec.Canonical(raw)
	if !ok {
		rt.serveNotFound(w, r)
		return
	}

	e, err := rt.Scanner.FindByURLPath(urlPath)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			rt.serveNotFound(w, r)
			return
		}
		log.Error("查找条目失败", zap.String("path", urlPath), zap.Error(err))
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	rt.serveFile(w, r, e)
}

func (rt *Router) serveFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", feed.ContentType)
		w.WriteHeader(http.StatusOK)
		return
	}

	entries, err := rt.Scanner.Scan()
	if err != nil {
		rt.logger().Error("扫描 catalog 失败", zap.Error(err))
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	body, err := feed.Render(entries, rt.Feed, rt.now())
	if err != nil {
		rt.logger().Error("生成 feed 失败", zap.Error(err))
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", feed.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		rt.logger().Debug("feed 写出中断", zap.Error(err))
	}
	rt.logger().Debug("已返回 feed", zap.Int("entries", len(entries)))
}

func (rt *Router) serveNotFound(w http.ResponseWriter, r *http.Request) {
	rt.logger().Debug("404", zap.String("method", r.Method), zap.String("path", r.URL.EscapedPath()))
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, "404 Not Found")
	}
}

func (rt *Router) serveFile(w http.ResponseWriter, r *http.Request, e domain.FileEntry) {
	log := rt.logger().With(zap.String("file", e.RelPath))

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", e.MIME)
		w.WriteHeader(http.StatusOK)
		return
	}

	f, err := os.Open(e.AbsPath)
	if err != nil {
		// 扫描与打开之间文件被移走（通常是并发下载已投递）。
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("文件在打开前已消失")
			rt.serveNotFound(w, r)
			return
		}
		log.Error("打开文件失败", zap.Error(err))
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		log.Error("stat 文件失败", zap.Error(err))
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	size := fi.Size()

	w.Header().Set("Content-Type", e.MIME)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	written, err := rt.stream(w, r, f, size)
	_ = f.Close()
	if err != nil {
		log.Debug("传输中止，跳过投递", zap.Int64("written", written), zap.Int64("size", size), zap.Error(err))
		if rt.Observer != nil {
			rt.Observer.OnAborted(e, written, err)
		}
		return
	}
	log.Debug("文件已完整传输", zap.Int64("bytes", written))

	dst, err := delivery.Apply(e, rt.Action)
	if err != nil {
		log.Error("投递失败", zap.Stringer("action", rt.Action.Kind), zap.Bool("source_missing", delivery.SourceMissing(err)), zap.Error(err))
	} else if dst != "" {
		log.Info("已投递（move）", zap.String("dst", dst))
	} else {
		log.Info("已投递（delete）")
	}
	if rt.Observer != nil {
		rt.Observer.OnDelivered(e, dst, err)
	}
}

var errShortRead = errors.New("文件在传输过程中被截断")

// stream 以固定大小的块写出文件，并在每块之后 flush，尽早发现客户端断开。
func (rt *Router) stream(w http.ResponseWriter, r *http.Request, src io.Reader, size int64) (int64, error) {
	chunk := rt.ChunkSize
	if chunk <= 0 {
		chunk = config.DefaultChunkSize
	}
	buf := make([]byte, chunk)
	rc := http.NewResponseController(w)

	// 只写出打开时 stat 到的长度，与 Content-Length 保持一致。
	src = io.LimitReader(src, size)

	var written int64
	for {
		// 客户端已断开：剩余块不再写出。数据写完之后不再看 ctx（对端读完即关闭连接属于正常情况）。
		if err := r.Context().Err(); err != nil && written < size {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return written, ferr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, rerr
		}
	}

	if written != size {
		return written, errShortRead
	}
	return written, nil
}

func (rt *Router) now() time.Time {
	if rt.Now == nil {
		return time.Now()
	}
	return rt.Now()
}

func (rt *Router) logger() *zap.Logger {
	if rt.Logger == nil {
		return zap.NewNop()
	}
	return rt.Logger
}
