package delivery

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/catfeed/internal/domain"
	"github.com/John-Robertt/catfeed/internal/infra/fsx"
)

// Error 是投递（move/delete）失败。
// 此时 HTTP 响应早已完整发出：客户端看到的是成功，失败只能交给运维日志。
type Error struct {
	Kind domain.ActionKind
	Src  string
	Dst  string // 仅 move
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == domain.ActionMove {
		return fmt.Sprintf("投递失败（move）：%q -> %q：%v", e.Src, e.Dst, e.Err)
	}
	return fmt.Sprintf("投递失败（%s）：%q：%v", e.Kind, e.Src, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// SourceMissing 判断失败是否因为源文件已不存在（通常是并发请求先一步完成了投递）。
func SourceMissing(err error) bool {
	var e *Error
	return errors.As(err, &e) && errors.Is(e.Err, fs.ErrNotExist)
}

// Apply 对已完整传输的文件执行投递动作。
//
// 约束：
// - 只能在文件内容全部写出之后调用；中途断开的传输不得触发
// - 不重试；源文件已消失（并发投递）直接返回错误
// - move 保持相对目录结构，缺失的中间目录会被创建；rename 必须原子，跨盘直接失败
func Apply(e domain.FileEntry, a domain.Action) (dst string, err error) {
	switch a.Kind {
	case domain.ActionDelete:
		if err := fsx.Remove(e.AbsPath); err != nil {
			return "", &Error{Kind: a.Kind, Src: e.AbsPath, Err: err}
		}
		return "", nil

	case domain.ActionMove:
		dst, err := Target(e, a.TargetRoot)
		if err != nil {
			return "", &Error{Kind: a.Kind, Src: e.AbsPath, Err: err}
		}
		if err := fsx.EnsureDir(filepath.Dir(dst)); err != nil {
			return "", &Error{Kind: a.Kind, Src: e.AbsPath, Dst: dst, Err: err}
		}
		if err := fsx.Rename(e.AbsPath, dst); err != nil {
			return "", &Error{Kind: a.Kind, Src: e.AbsPath, Dst: dst, Err: err}
		}
		return dst, nil

	default:
		return "", &Error{Kind: a.Kind, Src: e.AbsPath, Err: fmt.Errorf("未知 action：%v", a.Kind)}
	}
}

// Target 计算 move 的目标路径：<targetRoot>/<RelPath>，并保证结果仍在 targetRoot 之内。
func Target(e domain.FileEntry, targetRoot string) (string, error) {
	root := filepath.Clean(strings.TrimSpace(targetRoot))
	if root == "." || root == "" {
		return "", errors.New("move 目标目录不能为空")
	}
	rel := filepath.FromSlash(e.RelPath)
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("非法相对路径：%q", e.RelPath)
	}
	dst := filepath.Join(root, rel)
	prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	if !strings.HasPrefix(dst, prefix) {
		return "", fmt.Errorf("相对路径越出目标目录：%q", e.RelPath)
	}
	return dst, nil
}
