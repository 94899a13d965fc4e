package delivery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/catfeed/internal/domain"
)

func TestApply_Delete(t *testing.T) {
	root := t.TempDir()
	e := entry(t, root, "a.mp3")

	if _, err := Apply(e, domain.Delete()); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(e.AbsPath); !os.IsNotExist(err) {
		t.Fatalf("文件应已删除，Stat err=%v", err)
	}

	// 第二次投递（模拟并发）必须失败，且可识别为源文件缺失。
	_, err := Apply(e, domain.Delete())
	if err == nil || !SourceMissing(err) {
		t.Fatalf("期望 source-missing 错误，实际：%v", err)
	}
}

func TestApply_MoveCreatesIntermediateDirs(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "done")
	e := entry(t, root, "show/season 1/ep.mp3")

	dst, err := Apply(e, domain.Move(target))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := filepath.Join(target, "show", "season 1", "ep.mp3")
	if dst != want {
		t.Fatalf("期望 dst=%q，实际=%q", want, dst)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("目标文件不存在：%v", err)
	}
	if _, err := os.Stat(e.AbsPath); !os.IsNotExist(err) {
		t.Fatalf("源文件应已移走，Stat err=%v", err)
	}

	_, err = Apply(e, domain.Move(target))
	if !SourceMissing(err) {
		t.Fatalf("期望 source-missing 错误，实际：%v", err)
	}
}

func TestApply_MoveTargetDirIsFile(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	if err := os.WriteFile(filepath.Join(target, "show"), []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	e := entry(t, root, "show/ep.mp3")

	if _, err := Apply(e, domain.Move(target)); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := os.Stat(e.AbsPath); err != nil {
		t.Fatalf("失败时源文件必须保留：%v", err)
	}
}

func TestTarget_RejectsEscape(t *testing.T) {
	for _, rel := range []string{"../x.mp3", "a/../../x.mp3", ""} {
		if _, err := Target(domain.FileEntry{RelPath: rel}, "/srv/done"); err == nil {
			t.Fatalf("%q：期望错误，但得到 nil", rel)
		}
	}
	if _, err := Target(domain.FileEntry{RelPath: "a.mp3"}, ""); err == nil {
		t.Fatalf("空目标目录应报错")
	}
}

func entry(t *testing.T, root, rel string) domain.FileEntry {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(p, []byte("payload"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	return domain.FileEntry{AbsPath: p, RelPath: rel, Name: "x", Size: 7}
}
