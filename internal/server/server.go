package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server 负责监听与优雅退出；请求处理全部交给 Handler。
// 不对慢客户端设置读写超时（大文件下载可能持续很久）。
type Server struct {
	Addr    string
	Handler http.Handler
	Logger  *zap.Logger

	// Ready 在监听成功后收到实际地址（可选，测试用）。
	Ready chan<- net.Addr
}

// Run 监听 Addr 并阻塞直到 ctx 取消。
// 无法绑定端口时立即返回错误（由 cmd 决定退出码）。
func (s *Server) Run(ctx context.Context) error {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败：%w", s.Addr, err)
	}

	hs := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(log.Named("net/http")),
	}

	if s.Ready != nil {
		s.Ready <- ln.Addr()
	}
	log.Info("开始监听", zap.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() {
		errc <- hs.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("正在停止")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		// 仍有下载未结束：强制关闭（未完成的传输不会投递）。
		_ = hs.Close()
		log.Warn("优雅退出超时，已强制关闭连接", zap.Error(err))
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("已停止")
	return nil
}
