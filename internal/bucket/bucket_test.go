package bucket

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"lenbucket/pkg/contract"
)

// 内存桩件 ----------------------------------------------------
type memFile struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (f *memFile) Close() error {
	f.closed = true
	return f.closeErr
}

type memSink struct {
	files    map[string]*memFile
	opens    int
	failOn   string
	closeErr map[string]error
}

func newMemSink() *memSink { return &memSink{files: make(map[string]*memFile)} }

func (s *memSink) Open(name string) (io.WriteCloser, error) {
	if name == s.failOn {
		return nil, errors.New("permission denied")
	}
	s.opens++
	f, ok := s.files[name]
	if !ok {
		f = &memFile{}
		s.files[name] = f
	}
	f.closed = false
	f.closeErr = s.closeErr[name]
	return f, nil
}

func lines(texts ...string) []contract.Line {
	out := make([]contract.Line, 0, len(texts))
	for i, t := range texts {
		out = append(out, contract.Line{Index: contract.Index(i), Text: t, Length: contract.LineLength(t)})
	}
	return out
}

func feed(t *testing.T, b *Bucketer, ls []contract.Line) {
	t.Helper()
	for _, l := range ls {
		if err := b.Add(l); err != nil {
			t.Fatalf("add %q: %v", l.Text, err)
		}
	}
}

// TestSingleBucket 三个等长行只产出一个输出，顺序不变
func TestSingleBucket(t *testing.T) {
	c := qt.New(t)
	s := newMemSink()
	b := New(s, "words.txt")
	feed(t, b, lines("ab\n", "cd\n", "ef\n"))
	c.Assert(b.Close(), qt.IsNil)

	c.Assert(s.files, qt.HasLen, 1)
	c.Assert(s.files["2-words.txt"].String(), qt.Equals, "ab\ncd\nef\n")
	c.Assert(s.files["2-words.txt"].closed, qt.IsTrue)
	c.Assert(s.opens, qt.Equals, 1)
}

// TestPartition 每行恰好写入一个与其长度一致的输出，无重复无遗漏
func TestPartition(t *testing.T) {
	c := qt.New(t)
	in := lines("a\n", "bcd\n", "\n", "ef\n", "ghi\n", "j\n", "klmno\n", "xy")
	s := newMemSink()
	b := New(s, contract.NormalizeFileID("lists/en.txt"))
	feed(t, b, in)
	c.Assert(b.Close(), qt.IsNil)

	want := map[string]string{
		"0-en.txt": "\n",
		"1-en.txt": "a\nj\nxy",
		"2-en.txt": "ef\n",
		"3-en.txt": "bcd\nghi\n",
		"5-en.txt": "klmno\n",
	}
	got := make(map[string]string, len(s.files))
	total := 0
	for name, f := range s.files {
		got[name] = f.String()
		for _, l := range strings.SplitAfter(f.String(), "\n") {
			if l != "" {
				total++
			}
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("buckets mismatch (-want +got):\n%s", diff)
	}
	c.Assert(total, qt.Equals, len(in))

	res := b.Result()
	c.Assert(res.Lines, qt.Equals, int64(len(in)))
	c.Assert(res.Buckets, qt.DeepEquals, map[int]int64{0: 1, 1: 3, 2: 1, 3: 2, 5: 1})
	c.Assert(res.Files, qt.DeepEquals, []string{"1-en.txt", "3-en.txt", "0-en.txt", "2-en.txt", "5-en.txt"})
}

func TestEmptyInputOpensNothing(t *testing.T) {
	c := qt.New(t)
	s := newMemSink()
	b := New(s, "w")
	c.Assert(b.Close(), qt.IsNil)
	c.Assert(s.opens, qt.Equals, 0)
	c.Assert(b.Result().Lines, qt.Equals, int64(0))
}

// TestOpenFailureKeepsCleanup 打开失败后 Close 仍释放已打开的句柄
func TestOpenFailureKeepsCleanup(t *testing.T) {
	c := qt.New(t)
	s := newMemSink()
	s.failOn = "3-w"
	b := New(s, "w")
	feed(t, b, lines("ab\n", "c\n"))
	err := b.Add(contract.Line{Index: 2, Text: "xyz\n", Length: 3})
	c.Assert(err, qt.ErrorMatches, `open bucket 3-w: permission denied`)
	c.Assert(b.Close(), qt.IsNil)
	for name, f := range s.files {
		c.Assert(f.closed, qt.IsTrue, qt.Commentf("%s not closed", name))
	}
}

// TestCloseAggregates 所有关闭错误都被保留，且每个句柄都尝试关闭
func TestCloseAggregates(t *testing.T) {
	c := qt.New(t)
	e1 := errors.New("disk full")
	e2 := errors.New("io error")
	s := newMemSink()
	s.closeErr = map[string]error{"1-w": e1, "4-w": e2}
	b := New(s, "w")
	feed(t, b, lines("a\n", "bb\n", "cccc\n"))
	err := b.Close()
	c.Assert(err, qt.IsNotNil)
	c.Assert(errors.Is(err, e1), qt.IsTrue)
	c.Assert(errors.Is(err, e2), qt.IsTrue)
	c.Assert(s.files["2-w"].closed, qt.IsTrue)

	// 再次 Close 为 no-op
	c.Assert(b.Close(), qt.IsNil)
}

func TestAddAfterClose(t *testing.T) {
	c := qt.New(t)
	b := New(newMemSink(), "w")
	c.Assert(b.Close(), qt.IsNil)
	err := b.Add(lines("a\n")[0])
	c.Assert(errors.Is(err, contract.ErrInvariantViolation), qt.IsTrue)
}

func TestNegativeLength(t *testing.T) {
	c := qt.New(t)
	s := newMemSink()
	b := New(s, "w")
	err := b.Add(contract.Line{Text: "", Length: -1})
	c.Assert(errors.Is(err, contract.ErrInvariantViolation), qt.IsTrue)
	c.Assert(s.opens, qt.Equals, 0)
}

// TestResultIsCopy 修改返回值不影响内部状态
func TestResultIsCopy(t *testing.T) {
	c := qt.New(t)
	b := New(newMemSink(), "w")
	feed(t, b, lines("ab\n"))
	res := b.Result()
	res.Buckets[2] = 99
	res.Files[0] = "x"
	c.Assert(b.Result().Buckets[2], qt.Equals, int64(1))
	c.Assert(b.Result().Files[0], qt.Equals, "2-w")
}
