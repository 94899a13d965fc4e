package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/catfeed/internal/config"
	"github.com/John-Robertt/catfeed/internal/feed"
	"github.com/John-Robertt/catfeed/internal/infra/fsx"
	"github.com/John-Robertt/catfeed/internal/logx"
	"github.com/John-Robertt/catfeed/internal/server"
)

func newRenderCmd(stdout io.Writer) *cobra.Command {
	var (
		f   configFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "render [catalog]",
		Short: "扫描一次 catalog 并输出 feed（不启动服务，不移动文件）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := f.loadConfig(cmd, args)
			if err != nil {
				return err
			}
			return render(eff, out, stdout, cmd.ErrOrStderr())
		},
	}
	bindConfigFlags(cmd, &f)
	cmd.Flags().StringVarP(&out, "output", "o", "", "写入文件（原子替换）；默认输出到 stdout")
	return cmd
}

func render(eff config.EffectiveConfig, out string, stdout, stderr io.Writer) error {
	log, err := logx.NewTo(stderr, eff.Verbosity)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// 与服务端共用同一套装配，保证 URL/标题/时间格式一致。
	rt := server.NewRouter(eff, log)
	entries, err := rt.Scanner.Scan()
	if err != nil {
		return err
	}
	b, err := feed.Render(entries, rt.Feed, time.Now())
	if err != nil {
		return err
	}

	if out == "" {
		_, err := stdout.Write(b)
		return err
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	if err := fsx.WriteFileAtomicReplace(filepath.Dir(abs), filepath.Base(abs), b); err != nil {
		return fmt.Errorf("写入 %s 失败：%w", abs, err)
	}
	log.Info("feed 已写入", zap.String("path", abs), zap.Int("entries", len(entries)))
	return nil
}
