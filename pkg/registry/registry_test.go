package registry

import (
	"os"
	"testing"

	qt "github.com/frankban/quicktest"

	rfs "lenbucket/plugins/reader/filesystem"
	"lenbucket/plugins/writer/discard"
	wfs "lenbucket/plugins/writer/filesystem"
)

// TestStrictDecode 验证严格解码逻辑。
func TestStrictDecode(t *testing.T) {
	c := qt.New(t)
	type opt struct {
		A    int         `koanf:"a"`
		Perm os.FileMode `koanf:"perm"`
	}
	var o opt
	c.Assert(strictDecode(nil, &o), qt.IsNil)
	c.Assert(o.A, qt.Equals, 0)
	c.Assert(strictDecode(map[string]any{"a": int64(1), "perm": int64(0o600)}, &o), qt.IsNil)
	c.Assert(o, qt.Equals, opt{A: 1, Perm: 0o600})
	c.Assert(strictDecode(map[string]any{"a": 1, "b": 2}, &o), qt.ErrorMatches, `(?s).*invalid keys: b.*`)
}

// TestFactories 遍历注册表入口。
func TestFactories(t *testing.T) {
	c := qt.New(t)

	r, err := Reader["fs"](map[string]any{"buf_size": 128})
	c.Assert(err, qt.IsNil)
	c.Assert(r, qt.Satisfies, func(v any) bool { _, ok := v.(*rfs.FileSystem); return ok })
	_, err = Reader["fs"](map[string]any{"x": 1})
	c.Assert(err, qt.IsNotNil)

	s, err := Sink["fs"](map[string]any{"output_dir": "out", "perm_file": 0o600})
	c.Assert(err, qt.IsNil)
	c.Assert(s.(*wfs.FS).Root(), qt.Equals, "out")
	_, err = Sink["fs"](map[string]any{"atomic": true})
	c.Assert(err, qt.IsNotNil)

	d, err := Sink["discard"](nil)
	c.Assert(err, qt.IsNil)
	c.Assert(d, qt.Satisfies, func(v any) bool { _, ok := v.(*discard.Discard); return ok })
	_, err = Sink["discard"](map[string]any{"output_dir": "x"})
	c.Assert(err, qt.IsNotNil)
}
