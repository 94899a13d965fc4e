package domain

import "time"

// FileEntry 描述一次扫描得到的可投递文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - RelPath 使用 '/' 分隔，是同一次扫描内的唯一标识（URL 编码、移动目标、排除判断都基于它）
// - FileEntry 只是快照：每次请求重新扫描生成，用完即弃，不做缓存
type FileEntry struct {
	AbsPath string
	RelPath string
	Name    string // filename without ext，仅用作 feed 标题
	ModTime time.Time
	Size    int64
	MIME    string
}
