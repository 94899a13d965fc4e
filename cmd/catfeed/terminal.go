package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/John-Robertt/catfeed/internal/config"
	"github.com/John-Robertt/catfeed/internal/domain"
	"github.com/John-Robertt/catfeed/internal/server"
)

var _ server.Observer = (*deliveryUI)(nil)

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// pickDeliveryWriter 只在交互终端启用投递进度输出；日志同样写 stderr，两者互不干扰。
func pickDeliveryWriter(stderr io.Writer) (io.Writer, bool) {
	if isTTY(stderr) {
		return stderr, true
	}
	return nil, false
}

// announce 打印 feed 地址；stdout 是终端时附带二维码，方便手机扫码订阅。
func announce(w io.Writer, feedURL string) {
	fmt.Fprintf(w, "Your feed is served on %s\n", feedURL)
	if !isTTY(w) {
		return
	}
	qr, err := renderQR(feedURL)
	if err != nil {
		// 二维码只是便利功能，失败不影响服务。
		return
	}
	fmt.Fprint(w, qr)
}

func renderQR(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("生成二维码失败：%w", err)
	}
	return q.ToSmallString(false), nil
}

func emitSettings(w io.Writer, eff config.EffectiveConfig) {
	fmt.Fprintf(w, "[%s] catfeed %s\n", time.Now().Format("15:04:05"), version)
	fmt.Fprintln(w, "配置（生效）:")
	fmt.Fprintf(w, "  catalog: %s\n", eff.Catalog)
	fmt.Fprintf(w, "  action: %s\n", eff.Action)
	fmt.Fprintf(w, "  title: %s\n", eff.Title)
	fmt.Fprintf(w, "  chunk_size: %d\n", eff.ChunkSize)
	if len(eff.ExcludeDirs) > 0 {
		fmt.Fprintf(w, "  exclude_dirs: %s\n", strings.Join(eff.ExcludeDirs, ", "))
	}
	if eff.ConfigFile != "" {
		fmt.Fprintf(w, "  config: %s\n", eff.ConfigFile)
	}
	fmt.Fprintln(w)
}

// deliveryUI 把每次投递/中止打印成一行，带累计计数。
type deliveryUI struct {
	w io.Writer

	mu      sync.Mutex
	ok      int
	fail    int
	aborted int
}

func newDeliveryUI(w io.Writer) *deliveryUI {
	return &deliveryUI{w: w}
}

func (u *deliveryUI) OnDelivered(e domain.FileEntry, dst string, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := time.Now().Format("15:04:05")
	if err != nil {
		u.fail++
		fmt.Fprintf(u.w, "[%s] FAIL %s: %s (ok=%d fail=%d)\n", now, e.RelPath, truncate(err.Error(), 160), u.ok, u.fail)
		return
	}
	u.ok++
	if dst == "" {
		fmt.Fprintf(u.w, "[%s] OK %s %s 已删除 (ok=%d fail=%d)\n", now, e.RelPath, formatSize(e.Size), u.ok, u.fail)
		return
	}
	fmt.Fprintf(u.w, "[%s] OK %s %s -> %s (ok=%d fail=%d)\n", now, e.RelPath, formatSize(e.Size), dst, u.ok, u.fail)
}

func (u *deliveryUI) OnAborted(e domain.FileEntry, written int64, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.aborted++
	fmt.Fprintf(u.w, "[%s] ABORT %s %s/%s，文件保留\n",
		time.Now().Format("15:04:05"), e.RelPath, formatSize(written), formatSize(e.Size),
	)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}
