package diag

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	logPrefix     = "lenbucket-"
	logCurrent    = logPrefix + "current.txt"
	defaultMaxLog = 1 << 20 // 单次运行只有少量事件，1 MiB 足够容纳大量运行
	defaultKeep   = 3
)

// RotatingFile 是跨运行累积的日志文件（io.Writer）。
// 事件追加到 dir/lenbucket-current.txt；写入将超过 maxBytes 时改名为
// lenbucket-<UTC时间戳>.txt 并新建 current，只保留最新的 keep 个历史文件。
// 首次 Write 时才创建目录与文件，没有事件的运行不留下任何文件。
type RotatingFile struct {
	dir      string
	maxBytes int64
	keep     int

	mu   sync.Mutex
	f    *os.File
	size int64
}

// NewRotatingFile 创建日志文件写入器；maxBytes/keep <= 0 时使用默认值（1 MiB / 3）。
func NewRotatingFile(dir string, maxBytes int64, keep int) *RotatingFile {
	if maxBytes <= 0 {
		maxBytes = defaultMaxLog
	}
	if keep <= 0 {
		keep = defaultKeep
	}
	return &RotatingFile{dir: dir, maxBytes: maxBytes, keep: keep}
}

// Write 写入一个完整事件；zerolog 每个事件只调用一次，事件不会被拆到两个文件。
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFile) open() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.Wrap(err, "log dir")
	}
	f, err := os.OpenFile(filepath.Join(w.dir, logCurrent), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.size = f, st.Size()
	return nil
}

func (w *RotatingFile) rotate() error {
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	// 纳秒时间戳保证同秒内多次轮转不互相覆盖，且字典序即时间序
	ts := time.Now().UTC().Format("20060102T150405.000000000")
	if err := os.Rename(filepath.Join(w.dir, logCurrent), filepath.Join(w.dir, logPrefix+ts+".txt")); err != nil {
		return errors.Wrap(err, "rotate log")
	}
	if err := w.prune(); err != nil {
		return err
	}
	return w.open()
}

// prune 删除超出 keep 的最旧历史文件。
func (w *RotatingFile) prune() error {
	ents, err := os.ReadDir(w.dir)
	if err != nil {
		return errors.Wrap(err, "list log dir")
	}
	var old []string
	for _, e := range ents {
		n := e.Name()
		if n != logCurrent && strings.HasPrefix(n, logPrefix) && strings.HasSuffix(n, ".txt") {
			old = append(old, n)
		}
	}
	if len(old) <= w.keep {
		return nil
	}
	sort.Strings(old)
	for _, n := range old[:len(old)-w.keep] {
		if err := os.Remove(filepath.Join(w.dir, n)); err != nil {
			return errors.Wrap(err, "prune log")
		}
	}
	return nil
}

// Close 关闭当前文件；可重复调用。
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
