package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/catfeed/internal/domain"
	"github.com/John-Robertt/catfeed/internal/pathcodec"
)

// ErrNotFound 表示没有任何条目的编码路径与请求路径一致（对应 404，不是系统错误）。
var ErrNotFound = errors.New("catalog: entry not found")

// DefaultMIME 是扩展名无法识别时的默认类型。
const DefaultMIME = "text/plain"

// TimeSource 决定 FileEntry.ModTime 取自哪个时间戳。
type TimeSource int

const (
	TimeMTime TimeSource = iota
	TimeCTime
)

// Scanner 遍历 catalog 根目录，产出 FileEntry 快照。
//
// 规则（硬约束）：
// - Action 为 move 时，整棵 move 目标子树被排除（防止已投递文件再次出现在 feed 中）
// - ExcludeDirs：相对 Root 的路径（若是绝对路径，则按绝对路径处理）
// - 单个文件 stat 失败只记 warning 并跳过，不影响整次扫描
// - 不持有任何锁；每次调用都重新扫描
type Scanner struct {
	Root        string
	Action      domain.Action
	ExcludeDirs []string
	TimeSource  TimeSource
	Logger      *zap.Logger
}

// Scan 按文件系统遍历顺序返回所有常规文件（不排序；排序由 feed 负责）。
// 只有 Root 本身不可读时才返回错误。
//
// Root 自身是 symlink 时沿链接遍历真实目录，但条目的 AbsPath 与排除判断仍以 Root 为前缀。
func (s Scanner) Scan() ([]domain.FileEntry, error) {
	root := filepath.Clean(s.Root)
	walkRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		walkRoot = resolved
	}
	excluded := s.excluded(root)
	log := s.logger()

	entries := make([]domain.FileEntry, 0, 64)
	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == walkRoot {
				return walkErr
			}
			// 遍历过程中目录/文件被外部删除或不可读：跳过，不致命。
			log.Warn("扫描时跳过不可访问的路径", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			log.Warn("无法计算相对路径，跳过该路径", zap.String("path", path), zap.Error(err))
			return nil
		}
		logical := filepath.Join(root, rel)

		if isExcluded(logical, excluded) || isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Warn("stat 失败，跳过该文件", zap.String("path", path), zap.Error(err))
			return nil
		}

		name := d.Name()
		entries = append(entries, domain.FileEntry{
			AbsPath: logical,
			RelPath: filepath.ToSlash(rel),
			Name:    displayName(name),
			ModTime: s.timeOf(info),
			Size:    info.Size(),
			MIME:    MIMEType(name),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("扫描 catalog 失败：%w", err)
	}
	warnDuplicateURLs(log, entries)
	return entries, nil
}

// warnDuplicateURLs 报告编码后 URL 相同的文件（例如 "a b.mp3" 与 "a-b.mp3"）：
// 只有遍历顺序靠前的那个能被下载，另一个会一直留在 feed 里。
func warnDuplicateURLs(log *zap.Logger, entries []domain.FileEntry) {
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		u := pathcodec.Encode(e.RelPath)
		if first, ok := seen[u]; ok {
			log.Warn("多个文件编码为同一 URL，后者无法下载",
				zap.String("url_path", u), zap.String("served", first), zap.String("shadowed", e.RelPath))
			continue
		}
		seen[u] = e.RelPath
	}
}

// displayName 去掉最后一个扩展名；只有前导点的名字（".hidden"）保持原样。
func displayName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if strings.TrimLeft(base, ".") == "" {
		return name
	}
	return base
}

// FindByURLPath 重新扫描，并返回编码后路径等于 urlPath 的第一个条目。
// 比较的是 Encode(文件系统真实路径)，从不把请求路径解码后拼到 Root 上。
func (s Scanner) FindByURLPath(urlPath string) (domain.FileEntry, error) {
	entries, err := s.Scan()
	if err != nil {
		return domain.FileEntry{}, err
	}
	for _, e := range entries {
		if pathcodec.Encode(e.RelPath) == urlPath {
			return e, nil
		}
	}
	return domain.FileEntry{}, ErrNotFound
}

// MIMEType 按扩展名推断 MIME，未知时回退 text/plain。
func MIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return DefaultMIME
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	// 系统 mime 表不一定齐全（容器镜像里经常缺 /etc/mime.types）。
	if t, ok := fallbackMIME[ext]; ok {
		return t
	}
	return DefaultMIME
}

var fallbackMIME = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".m4b":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".epub": "application/epub+zip",
	".zip":  "application/zip",
}

func (s Scanner) timeOf(info os.FileInfo) time.Time {
	if s.TimeSource == TimeCTime {
		if t, ok := changeTime(info); ok {
			return t
		}
	}
	return info.ModTime()
}

func (s Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s Scanner) excluded(root string) []string {
	excluded := make([]string, 0, 1+len(s.ExcludeDirs))
	if s.Action.Kind == domain.ActionMove && strings.TrimSpace(s.Action.TargetRoot) != "" {
		excluded = append(excluded, filepath.Clean(s.Action.TargetRoot))
	}

	for _, x := range s.ExcludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

// isUnder 按路径分量判断（"Downloaded2" 不算在 "Downloaded" 之下）。
func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, strings.TrimSuffix(base, sep)+sep)
}
