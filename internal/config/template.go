package config

// DefaultTemplate 返回 --init-config 生成的默认配置文件内容（TOML）。
// 所有值均与 Defaults() 一致，注释中列出可选项。
func DefaultTemplate() string {
	return `# lenbucket 配置（由 --init-config 生成）
# 优先级：CLI > ENV(LENBUCKET_*) > 本文件 > 内置默认

# 分桶文件输出目录；须已存在。留空表示当前目录。
output_dir = ""

# 读/写缓冲区大小（字节）；0 表示组件默认（64KiB）。
buf_size = 0

# 只统计不写文件。
dry_run = false

[logging]
# debug | info | warn | error
level = "warn"
# 非空时写入该目录下的 lenbucket-current.txt（10MiB 轮转）；为空写 stderr。
dir = ""

[components]
reader = "fs"
sink = "fs"

[options.reader]
# buf_size = 65536

[options.sink]
# perm_file = 0o644
# buf_size = 65536
`
}
