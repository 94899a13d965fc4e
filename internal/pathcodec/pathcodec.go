// Package pathcodec 负责“相对路径 <-> URL 路径”的转换。
//
// 约束：
//   - Encode 是纯函数：空格先替换为 '-'，其余保留字符做百分号编码
//   - Decode 只还原百分号编码；'-' 不会还原为空格（该方向本来就有损）
//   - Decode 的结果只能用于和扫描结果比对，绝不能直接拼到 catalog 根目录上
package pathcodec

import (
	"net/url"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// Encode 把 '/' 分隔的相对路径编码为 URL 路径段（不含前导 '/'）。
func Encode(rel string) string {
	rel = strings.ReplaceAll(rel, " ", "-")

	var b strings.Builder
	b.Grow(len(rel))
	for i := 0; i < len(rel); i++ {
		c := rel[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

// Decode 只做百分号解码，得到“候选相对路径”。
func Decode(p string) (string, error) {
	return url.PathUnescape(p)
}

// Canonical 把客户端发来的路径规整为 Encode 的输出形态（例如小写 %7e -> %7E）。
// 非法的百分号编码返回 ok=false。
func Canonical(p string) (string, bool) {
	d, err := Decode(p)
	if err != nil {
		return "", false
	}
	return Encode(d), true
}

// unreserved 的取值与常见 quote() 的默认安全集合一致：字母数字与 "_.-/"。
func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '_', '.', '-', '/':
		return true
	}
	return false
}
