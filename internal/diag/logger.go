package diag

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger 为最小结构化日志器：单行 JSON 事件（zerolog），字段固定为
// ts/corr_id/comp/stage/code/dur_ms/count/file_id/kv。
// nil *Logger 上的所有方法均为 no-op。
type Logger struct {
	zl zerolog.Logger
}

// NewLogger 通过配置的 level 初始化。w 为 nil 时写 stderr。
func NewLogger(corrID, level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).Level(ParseLevel(level)).With().Str("corr_id", corrID).Logger()
	return &Logger{zl: zl}
}

// ParseLevel 解析日志级别；空值或未知值回退为 info。
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ValidLevel 判断 s 是否为受支持的级别名（空值视为合法，表示默认）。
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// Event 为标准事件字段。
type Event struct {
	Comp   string
	Stage  string // start|finish|error
	Code   string
	DurMS  int64
	Count  int64
	FileID string
	Msg    string
	KV     map[string]string
}

func (l *Logger) log(lv zerolog.Level, ev Event) {
	if l == nil {
		return
	}
	e := l.zl.WithLevel(lv)
	if e == nil {
		return
	}
	e = e.Str("ts", NowUTC()).Str("comp", ev.Comp).Str("stage", ev.Stage)
	if ev.Code != "" {
		e = e.Str("code", ev.Code)
	}
	if ev.DurMS != 0 {
		e = e.Int64("dur_ms", ev.DurMS)
	}
	if ev.Count != 0 {
		e = e.Int64("count", ev.Count)
	}
	if ev.FileID != "" {
		e = e.Str("file_id", ev.FileID)
	}
	if len(ev.KV) > 0 {
		d := zerolog.Dict()
		keys := make([]string, 0, len(ev.KV))
		for k := range ev.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			d = d.Str(k, ev.KV[k])
		}
		e = e.Dict("kv", d)
	}
	e.Msg(ev.Msg)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(zerolog.InfoLevel, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id 与键值的 start。
func (l *Logger) StartWith(comp, msg, fileID string, kv map[string]string) *Timer {
	l.log(zerolog.InfoLevel, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "", nil)
}

// ErrorWith 支持 file_id 与键值（例如底层错误文本）。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(zerolog.ErrorLevel, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, FileID: fileID, KV: kv})
}

// Debug 输出调试级别事件（仅在 level=debug 时生效）。
func (l *Logger) Debug(comp, msg string, kv map[string]string) {
	l.log(zerolog.DebugLevel, Event{Comp: comp, Stage: "start", Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	t.FinishWith(msg, count, nil)
}

// FinishWith 记录带键值的 finish。
func (t *Timer) FinishWith(msg string, count int64, kv map[string]string) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(zerolog.InfoLevel, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID, Msg: msg, KV: kv})
}

// Since 返回计时起点（用于 Error 的 durSince）。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	t0 := t.t0
	return &t0
}
