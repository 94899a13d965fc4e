package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/catfeed/internal/catalog"
	"github.com/John-Robertt/catfeed/internal/domain"
	"github.com/John-Robertt/catfeed/internal/infra/netx"
	"github.com/John-Robertt/catfeed/internal/logx"
)

const (
	// ErrCodeNotFound 表示显式指定的 --config 文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingCatalog 表示 CLI 与配置文件都没有给出 catalog。
	ErrCodeMissingCatalog = "config_missing_catalog"
)

const (
	DefaultFileName  = "catfeed.yaml"
	DefaultAction    = "move"
	DefaultMoveTo    = "Downloaded"
	DefaultHost      = "auto"
	DefaultPort      = 8888
	DefaultChunkSize = 1024 * 1024
	MaxChunkSize     = 64 * 1024 * 1024
)

// 可替换：测试里不依赖真实网络。
var outboundIP = netx.OutboundIP

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息，
// 保证 CLI 能覆盖配置文件中的同名字段（例如 --port 覆盖 port）。
type CLIArgs struct {
	ConfigPath string
	Catalog    string

	Host    string
	HostSet bool

	Port    int
	PortSet bool

	MoveTo    string
	MoveToSet bool

	Delete bool

	Title    string
	TitleSet bool

	Verbosity    int
	VerbositySet bool

	ChunkSize    int
	ChunkSizeSet bool
}

// FileConfig 对应 catfeed.yaml 的解析结构。
type FileConfig struct {
	Catalog          string   `yaml:"catalog"`
	Action           string   `yaml:"action"`
	MoveTo           string   `yaml:"move_to"`
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	Title            string   `yaml:"title"`
	ChunkSize        int      `yaml:"chunk_size"`
	Verbosity        *int     `yaml:"verbosity"`
	ExcludeDirs      []string `yaml:"exclude_dirs"`
	TimeSource       string   `yaml:"time_source"`
	LegacyTimestamps bool     `yaml:"legacy_timestamps"`
}

// EffectiveConfig 是合并并规范化后的最终配置：启动时构造一次，之后只读，按值传递给各组件。
type EffectiveConfig struct {
	Catalog string
	Action  domain.Action

	// Host 已解析（"auto" 会被替换为出站 IP）。
	Host string
	Port int

	Title            string
	ChunkSize        int
	Verbosity        int
	ExcludeDirs      []string
	TimeSource       catalog.TimeSource
	LegacyTimestamps bool

	// ConfigFile 是实际读取的配置文件路径（未读取则为空）。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingCatalog:
		return fmt.Sprintf("%s：未指定 catalog（命令行参数或配置文件 catalog 字段）", e.Code)
	case ErrCodeInvalid:
		if e.Path != "" && e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) --config 给出：必须存在
// 2) 否则尝试 <cwd>/catfeed.yaml（可选）
//
// 覆盖优先级：CLI > 配置文件 > 内置默认。
// 配置文件里的相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, DefaultFileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			cfgPath = ""
		}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	// catalog：CLI > config
	catalogPath := strings.TrimSpace(cli.Catalog)
	if catalogPath == "" {
		catalogPath = strings.TrimSpace(fc.Catalog)
	}
	if catalogPath == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingCatalog, Path: cfgPath}
	}
	catalogPath = absCleanFrom(cwdAbs, catalogPath)
	if fi, err := os.Stat(catalogPath); err != nil {
		return EffectiveConfig{}, invalid("catalog 不可读：%v", err)
	} else if !fi.IsDir() {
		return EffectiveConfig{}, invalid("catalog 不是目录：%q", catalogPath)
	}

	// action：--delete / --moveto > config > 默认 move
	actionName := DefaultAction
	if cli.Delete {
		actionName = "delete"
	} else if cli.MoveToSet {
		actionName = "move"
	} else if strings.TrimSpace(fc.Action) != "" {
		actionName = fc.Action
	}
	kind, err := domain.ParseActionKind(actionName)
	if err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}

	action := domain.Delete()
	if kind == domain.ActionMove {
		moveTo := DefaultMoveTo
		if cli.MoveToSet {
			moveTo = cli.MoveTo
		} else if strings.TrimSpace(fc.MoveTo) != "" {
			moveTo = fc.MoveTo
		}
		if strings.TrimSpace(moveTo) == "" {
			return EffectiveConfig{}, invalid("move_to 不能为空")
		}
		target := resolveMoveTo(cwdAbs, catalogPath, moveTo)
		if target == catalogPath {
			return EffectiveConfig{}, invalid("move_to 不能等于 catalog 本身：%q", target)
		}
		action = domain.Move(target)
	}

	host := DefaultHost
	if cli.HostSet {
		host = cli.Host
	} else if strings.TrimSpace(fc.Host) != "" {
		host = fc.Host
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return EffectiveConfig{}, invalid("host 不能为空")
	}
	if host == "auto" {
		host = outboundIP()
	}

	port := DefaultPort
	if cli.PortSet {
		port = cli.Port
	} else if fc.Port != 0 {
		port = fc.Port
	}
	if port < 1 || port > 65535 {
		return EffectiveConfig{}, invalid("port 必须在 1..65535 之间，实际是 %d", port)
	}

	title := filepath.Base(catalogPath)
	if cli.TitleSet {
		title = cli.Title
	} else if strings.TrimSpace(fc.Title) != "" {
		title = fc.Title
	}

	chunk := DefaultChunkSize
	if cli.ChunkSizeSet {
		chunk = cli.ChunkSize
	} else if fc.ChunkSize != 0 {
		chunk = fc.ChunkSize
	}
	if chunk < 1 || chunk > MaxChunkSize {
		return EffectiveConfig{}, invalid("chunk_size 必须在 1..%d 之间，实际是 %d", MaxChunkSize, chunk)
	}

	verbosity := logx.DefaultVerbosity
	if cli.VerbositySet {
		verbosity = cli.Verbosity
	} else if fc.Verbosity != nil {
		verbosity = *fc.Verbosity
	}
	if _, err := logx.Level(verbosity); err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}

	ts, err := parseTimeSource(fc.TimeSource)
	if err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}

	return EffectiveConfig{
		Catalog:          catalogPath,
		Action:           action,
		Host:             host,
		Port:             port,
		Title:            title,
		ChunkSize:        chunk,
		Verbosity:        verbosity,
		ExcludeDirs:      append([]string(nil), fc.ExcludeDirs...),
		TimeSource:       ts,
		LegacyTimestamps: fc.LegacyTimestamps,
		ConfigFile:       cfgPath,
	}, nil
}

func parseTimeSource(s string) (catalog.TimeSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mtime":
		return catalog.TimeMTime, nil
	case "ctime":
		return catalog.TimeCTime, nil
	default:
		return 0, fmt.Errorf("time_source 只能是 mtime 或 ctime，实际是 %q", s)
	}
}

// resolveMoveTo 决定投递目标目录：
// - 绝对路径：直接 Clean
// - 相对路径：若相对 cwd 已存在该目录则使用它，否则放在 catalog 之下
func resolveMoveTo(cwdAbs, catalogPath, move string) string {
	move = strings.TrimSpace(move)
	if filepath.IsAbs(move) {
		return filepath.Clean(move)
	}
	cand := absCleanFrom(cwdAbs, move)
	if fi, err := os.Stat(cand); err == nil && fi.IsDir() {
		return cand
	}
	return filepath.Clean(filepath.Join(catalogPath, move))
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
