package domain

import (
	"fmt"
	"strings"
)

// ActionKind 是下载完成后的处理方式。
type ActionKind int

const (
	ActionMove ActionKind = iota + 1
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// ParseActionKind 解析配置中的 action 名称（move|delete）。
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "move":
		return ActionMove, nil
	case "delete":
		return ActionDelete, nil
	case "":
		return 0, fmt.Errorf("action 不能为空")
	default:
		return 0, fmt.Errorf("action 只能是 move 或 delete，实际是 %q", s)
	}
}

// Action 是投递动作：Move{TargetRoot} 或 Delete。
// 只在服务时与某个 FileEntry 绑定，从不持久化。
type Action struct {
	Kind ActionKind
	// TargetRoot 仅 Kind==ActionMove 时有意义（clean + absolute）。
	TargetRoot string
}

func Move(targetRoot string) Action { return Action{Kind: ActionMove, TargetRoot: targetRoot} }

func Delete() Action { return Action{Kind: ActionDelete} }

func (a Action) String() string {
	if a.Kind == ActionMove {
		return "move -> " + a.TargetRoot
	}
	return a.Kind.String()
}
