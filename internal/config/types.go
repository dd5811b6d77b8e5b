package config

// Config: 运行期只读配置（一次解析，运行期不变）。
// TOML 使用 snake_case；未知键在解析期失败。
type Config struct {
	// OutputDir: 分桶文件输出目录；为空时取 options.sink.output_dir，再缺省为当前目录。
	OutputDir string `koanf:"output_dir"`
	// BufSize: 读/写缓冲区大小（字节）；0 表示组件默认。
	BufSize int `koanf:"buf_size"`
	// DryRun: 只统计不写文件（sink 强制为 discard）。
	DryRun bool `koanf:"dry_run"`
	// DryRunSet: 本层显式给出了 dry_run；此时 false 也会覆盖下层。
	DryRunSet bool    `koanf:"-"`
	Logging   Logging `koanf:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `koanf:"components"`

	// 各组件 Options 子树，原样传入工厂。
	Options Options `koanf:"options"`
}

// Logging: 日志等级与可选的轮转文件目录（为空写 stderr）。
type Logging struct {
	Level string `koanf:"level"`
	Dir   string `koanf:"dir"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader string `koanf:"reader"`
	Sink   string `koanf:"sink"`
}

// Options: 各组件的原样 Options。
type Options struct {
	Reader map[string]any `koanf:"reader"`
	Sink   map[string]any `koanf:"sink"`
}
