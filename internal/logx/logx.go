// Package logx 构造进程唯一的 zap.Logger。
//
// verbosity 沿用旧 CLI 的 0..3 阶梯：0=ERROR 1=WARN 2=INFO 3=DEBUG。
package logx

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	MinVerbosity     = 0
	MaxVerbosity     = 3
	DefaultVerbosity = 2
)

// Level 把 verbosity 映射为 zap 级别；越界返回错误。
func Level(verbosity int) (zapcore.Level, error) {
	switch verbosity {
	case 0:
		return zapcore.ErrorLevel, nil
	case 1:
		return zapcore.WarnLevel, nil
	case 2:
		return zapcore.InfoLevel, nil
	case 3:
		return zapcore.DebugLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("verbosity 只能在 %d..%d 之间，实际是 %d", MinVerbosity, MaxVerbosity, verbosity)
	}
}

// New 构造写到 stderr 的 console logger（日志永远不写 stdout）。
func New(verbosity int) (*zap.Logger, error) {
	return NewTo(os.Stderr, verbosity)
}

// NewTo 与 New 相同，但允许指定输出（测试用）。
func NewTo(w io.Writer, verbosity int) (*zap.Logger, error) {
	lvl, err := Level(verbosity)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)

	opts := []zap.Option{zap.ErrorOutput(zapcore.AddSync(w))}
	if verbosity >= MaxVerbosity {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...), nil
}
