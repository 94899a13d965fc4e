//go:build !linux && !darwin

package catalog

import (
	"os"
	"time"
)

// 其它平台没有可移植的 ctime，回退 mtime。
func changeTime(info os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
