package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"lenbucket/internal/diag"
	"lenbucket/internal/pipeline"
	"lenbucket/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if cfg.BufSize < 0 {
		return errors.New("config: buf_size must be >= 0")
	}
	if !diag.ValidLevel(cfg.Logging.Level) {
		return errors.Newf("config: unknown logging.level %q", cfg.Logging.Level)
	}
	if name := ReaderName(cfg); registry.Reader[name] == nil {
		return errors.Newf("config: reader %q not registered", name)
	}
	if name := SinkName(cfg); registry.Sink[name] == nil {
		return errors.Newf("config: sink %q not registered", name)
	}
	return nil
}

// ReaderName 返回生效的 reader 名称。
func ReaderName(cfg Config) string {
	return effName(cfg.Components.Reader, Defaults().Components.Reader)
}

// SinkName 返回生效的 sink 名称；dry-run 时固定为 discard。
func SinkName(cfg Config) string {
	if cfg.DryRun {
		return "discard"
	}
	return effName(cfg.Components.Sink, Defaults().Components.Sink)
}

// OutputDir 返回生效的输出目录：顶层 output_dir > options.sink.output_dir > "."。
func OutputDir(cfg Config) string {
	if s := strings.TrimSpace(cfg.OutputDir); s != "" {
		return s
	}
	if s, ok := cfg.Options.Sink["output_dir"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return "."
}

// Preflight 在使用文件系统 sink 时检查输出目录存在、是目录且可写。
// 目录不会被隐式创建。
func Preflight(cfg Config) error {
	if SinkName(cfg) != "fs" {
		return nil
	}
	dir := OutputDir(cfg)
	st, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return errors.Newf("output_dir is not a directory: %s", dir)
	}
	f, err := os.CreateTemp(dir, ".wcheck-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// Assemble 通过注册表构造运行组件。
func Assemble(cfg Config) (pipeline.Components, error) {
	var comp pipeline.Components

	rname := ReaderName(cfg)
	nr := registry.Reader[rname]
	if nr == nil {
		return comp, errors.Newf("reader %q not registered", rname)
	}
	ropts := cloneMap(cfg.Options.Reader)
	if cfg.BufSize > 0 {
		ropts = setDefault(ropts, "buf_size", cfg.BufSize)
	}
	r, err := nr(ropts)
	if err != nil {
		return comp, errors.Wrapf(err, "reader %q options", rname)
	}

	sname := SinkName(cfg)
	ns := registry.Sink[sname]
	if ns == nil {
		return comp, errors.Newf("sink %q not registered", sname)
	}
	var sopts map[string]any
	if sname == "fs" {
		sopts = cloneMap(cfg.Options.Sink)
		sopts = setValue(sopts, "output_dir", OutputDir(cfg))
		if cfg.BufSize > 0 {
			sopts = setDefault(sopts, "buf_size", cfg.BufSize)
		}
	} else if !cfg.DryRun {
		sopts = cloneMap(cfg.Options.Sink)
	}
	s, err := ns(sopts)
	if err != nil {
		return comp, errors.Wrapf(err, "sink %q options", sname)
	}

	comp.Reader = r
	comp.Sink = s
	return comp, nil
}

func effName(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func setDefault(m map[string]any, k string, v any) map[string]any {
	if m == nil {
		m = make(map[string]any)
	}
	if _, ok := m[k]; !ok {
		m[k] = v
	}
	return m
}

func setValue(m map[string]any, k string, v any) map[string]any {
	if m == nil {
		m = make(map[string]any)
	}
	m[k] = v
	return m
}
