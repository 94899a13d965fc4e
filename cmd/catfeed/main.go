package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/catfeed/internal/config"
	"github.com/John-Robertt/catfeed/internal/infra/httpx"
	"github.com/John-Robertt/catfeed/internal/logx"
	"github.com/John-Robertt/catfeed/internal/server"
)

// version 在发布构建时通过 -ldflags "-X main.version=..." 注入。
var version = "dev"

// exitError 携带退出码；其余错误统一按 1 退出。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	httpx.UserAgent = "catfeed/" + version

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误：", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

// configFlags 收集与配置合并相关的命令行参数（serve 与 render 共用）。
type configFlags struct {
	configPath string
	host       string
	port       int
	moveTo     string
	del        bool
	title      string
	verbosity  int
	chunkSize  int
}

func bindConfigFlags(cmd *cobra.Command, f *configFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "配置文件路径（默认尝试 ./"+config.DefaultFileName+"）")
	fs.StringVarP(&f.host, "host", "H", config.DefaultHost, `监听地址；"auto" 表示自动探测本机出站 IP`)
	fs.IntVarP(&f.port, "port", "p", config.DefaultPort, "监听端口")
	fs.StringVarP(&f.moveTo, "moveto", "m", config.DefaultMoveTo, "下载完成后移动到的目录；相对路径先在当前目录下找已存在的目录，找不到则相对 catalog")
	fs.BoolVarP(&f.del, "delete", "d", false, "下载完成后删除文件（与 --moveto 互斥）")
	fs.StringVarP(&f.title, "title", "t", "", "feed 标题（默认取 catalog 目录名）")
	fs.IntVarP(&f.verbosity, "verbosity", "v", logx.DefaultVerbosity, "日志详细程度 0-3")
	fs.IntVar(&f.chunkSize, "chunk-size", config.DefaultChunkSize, "文件传输分块大小（字节）")
	cmd.MarkFlagsMutuallyExclusive("moveto", "delete")
}

// cliArgs 把 flag 值转换为 config.CLIArgs，只有显式给出的 flag 才覆盖配置文件。
func (f *configFlags) cliArgs(cmd *cobra.Command, args []string) config.CLIArgs {
	fs := cmd.Flags()
	ca := config.CLIArgs{
		ConfigPath: f.configPath,
		Host:       f.host,
		HostSet:    fs.Changed("host"),
		Port:       f.port,
		PortSet:    fs.Changed("port"),
		MoveTo:     f.moveTo,
		MoveToSet:  fs.Changed("moveto"),
		Delete:     f.del,
		Title:      f.title,
		TitleSet:   fs.Changed("title"),

		Verbosity:    f.verbosity,
		VerbositySet: fs.Changed("verbosity"),
		ChunkSize:    f.chunkSize,
		ChunkSizeSet: fs.Changed("chunk-size"),
	}
	if len(args) > 0 {
		ca.Catalog = args[0]
	}
	return ca
}

// loadConfig 以当前工作目录为基准合并配置；配置错误统一按退出码 2 返回。
func (f *configFlags) loadConfig(cmd *cobra.Command, args []string) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("获取工作目录失败：%w", err)
	}
	eff, err := config.LoadEffective(cwd, f.cliArgs(cmd, args))
	if err != nil {
		return config.EffectiveConfig{}, &exitError{code: 2, err: err}
	}
	return eff, nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f configFlags
	cmd := &cobra.Command{
		Use:   "catfeed [catalog]",
		Short: "把目录发布为 Atom feed，下载完成后移动或删除文件",
		Long: `catfeed 把 catalog 目录下的文件发布为 Atom feed（根路径 /），
并通过 HTTP 提供下载。文件被完整下载后会被移动到 --moveto 目录（默认），
或在 --delete 时直接删除。`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := f.loadConfig(cmd, args)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), eff, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	bindConfigFlags(cmd, &f)

	cmd.AddCommand(newRenderCmd(stdout))
	cmd.AddCommand(newProbeCmd(stdout))
	return cmd
}

func serve(ctx context.Context, eff config.EffectiveConfig, stdout, stderr io.Writer) error {
	log, err := logx.New(eff.Verbosity)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := server.NewRouter(eff, log)
	ui, interactive := pickDeliveryWriter(stderr)
	if interactive {
		rt.Observer = newDeliveryUI(ui)
	}

	ready := make(chan net.Addr, 1)
	srv := &server.Server{
		Addr:    net.JoinHostPort(eff.Host, strconv.Itoa(eff.Port)),
		Handler: rt,
		Logger:  log.Named("server"),
		Ready:   ready,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ready:
	}

	if interactive {
		emitSettings(ui, eff)
	}
	announce(stdout, rt.Feed.FeedURL())
	return <-errCh
}
