package config

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix 为环境变量覆盖的统一前缀。
const EnvPrefix = "LENBUCKET_"

// DefaultFile 为工作目录下默认读取的配置文件名（若存在）。
const DefaultFile = "lenbucket.toml"

var tomlParser = toml.Parser()

// Defaults 返回带有安全默认值的 Config 雏形。
// 无任何覆盖时输出到当前目录并追加写入。
func Defaults() Config {
	return Config{
		Logging: Logging{Level: "warn"},
		Components: Components{
			Reader: "fs",
			Sink:   "fs",
		},
	}
}

// Load 从文件路径或原始 TOML 解析 Config（严格拒绝未知键）。
func Load(path string, raw []byte) (Config, error) {
	var cfg Config
	k := koanf.New(".")
	switch {
	case len(raw) > 0:
		if err := k.Load(rawbytes.Provider(raw), tomlParser); err != nil {
			return cfg, errors.Wrap(err, "parse raw config")
		}
	case path != "":
		if err := k.Load(file.Provider(path), tomlParser); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	default:
		return cfg, errors.New("no config source provided")
	}
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	cfg.DryRunSet = k.Exists("dry_run")
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/Options 子树为“替换”；不做深度合并。空值不覆盖。
// dry_run 例外：只要上层显式给出（DryRunSet），false 同样生效。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.OutputDir); s != "" {
		out.OutputDir = s
	}
	if over.BufSize != 0 {
		out.BufSize = over.BufSize
	}
	if over.DryRunSet || over.DryRun {
		out.DryRun = over.DryRun
		out.DryRunSet = true
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Sink != "" {
		out.Components.Sink = over.Components.Sink
	}
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneMap(over.Options.Reader)
	}
	if len(over.Options.Sink) > 0 {
		out.Options.Sink = cloneMap(over.Options.Sink)
	}
	return out
}

// EnvOverlay 从环境变量（KEY=VALUE 列表）构造覆盖层。
// 仅识别 LENBUCKET_ 前缀的固定键；CONFIG_FILE/CONFIG_TOML 由调用方处理。
func EnvOverlay(env []string) (Config, error) {
	var over Config
	for _, kv := range env {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			continue
		}
		key, val := kv[:eq], kv[eq+1:]
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		switch strings.TrimPrefix(key, EnvPrefix) {
		case "OUTPUT_DIR":
			over.OutputDir = val
		case "BUF_SIZE":
			n, err := strconv.Atoi(val)
			if err != nil {
				return over, errors.Wrapf(err, "env %s", key)
			}
			over.BufSize = n
		case "DRY_RUN":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, errors.Wrapf(err, "env %s", key)
			}
			over.DryRun = b
			over.DryRunSet = true
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_SINK":
			over.Components.Sink = val
		}
	}
	return over, nil
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
