package testdata

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	cfgpkg "lenbucket/internal/config"
	"lenbucket/internal/pipeline"
)

// expectedBuckets 独立地按 runes-1 拆分输入，得到 文件名 → 内容。
func expectedBuckets(t *testing.T, inPath string) map[string]string {
	t.Helper()
	b, err := os.ReadFile(inPath)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	base := filepath.Base(inPath)
	out := map[string]string{}
	for _, l := range strings.SplitAfter(string(b), "\n") {
		if l == "" {
			continue
		}
		name := strconv.Itoa(utf8.RuneCountInString(l)-1) + "-" + base
		out[name] += l
	}
	return out
}

func readDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	out := map[string]string{}
	for _, e := range ents {
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		out[e.Name()] = string(b)
	}
	return out
}

func loadFixture(t *testing.T, outDir string) cfgpkg.Config {
	t.Helper()
	base, err := cfgpkg.Load(filepath.Join("config", "basic.toml"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := cfgpkg.Merge(cfgpkg.Defaults(), base)
	cfg.OutputDir = outDir
	if err := cfgpkg.Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := cfgpkg.Preflight(cfg); err != nil {
		t.Fatalf("preflight: %v", err)
	}
	return cfg
}

func TestEndToEnd(t *testing.T) {
	c := qt.New(t)
	in := filepath.Join("files", "words.txt")
	out := t.TempDir()
	cfg := loadFixture(t, out)

	comp, err := cfgpkg.Assemble(cfg)
	c.Assert(err, qt.IsNil)
	res, err := pipeline.Run(context.Background(), comp, pipeline.Settings{Input: in}, nil)
	c.Assert(err, qt.IsNil)

	want := expectedBuckets(t, in)
	got := readDir(t, out)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("buckets mismatch (-want +got):\n%s", diff)
	}
	c.Assert(len(res.Files), qt.Equals, len(want))

	var total int64
	for _, n := range res.Buckets {
		total += n
	}
	c.Assert(total, qt.Equals, res.Lines)

	// perm_file 来自 basic.toml
	for name := range got {
		st, err := os.Stat(filepath.Join(out, name))
		c.Assert(err, qt.IsNil)
		if st.Mode().Perm()&0o077 != 0 {
			t.Fatalf("%s: unexpected perm %v", name, st.Mode().Perm())
		}
	}
}

func TestEndToEndAppendTwice(t *testing.T) {
	in := filepath.Join("files", "words.txt")
	out := t.TempDir()
	cfg := loadFixture(t, out)
	for i := 0; i < 2; i++ {
		comp, err := cfgpkg.Assemble(cfg)
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		if _, err := pipeline.Run(context.Background(), comp, pipeline.Settings{Input: in}, nil); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	want := expectedBuckets(t, in)
	for k, v := range want {
		want[k] = v + v
	}
	if diff := cmp.Diff(want, readDir(t, out)); diff != "" {
		t.Fatalf("append mismatch (-want +got):\n%s", diff)
	}
}

func TestEndToEndDryRunParity(t *testing.T) {
	c := qt.New(t)
	in := filepath.Join("files", "words.txt")

	out := t.TempDir()
	cfg := loadFixture(t, out)
	comp, err := cfgpkg.Assemble(cfg)
	c.Assert(err, qt.IsNil)
	fsRes, err := pipeline.Run(context.Background(), comp, pipeline.Settings{Input: in}, nil)
	c.Assert(err, qt.IsNil)

	dry := t.TempDir()
	cfg = loadFixture(t, dry)
	cfg.DryRun = true
	comp, err = cfgpkg.Assemble(cfg)
	c.Assert(err, qt.IsNil)
	res, err := pipeline.Run(context.Background(), comp, pipeline.Settings{Input: in}, nil)
	c.Assert(err, qt.IsNil)

	c.Assert(res.Buckets, qt.DeepEquals, fsRes.Buckets)
	c.Assert(res.Files, qt.DeepEquals, fsRes.Files)
	c.Assert(readDir(t, dry), qt.HasLen, 0)
}
