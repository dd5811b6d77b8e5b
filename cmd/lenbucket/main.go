package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/xid"
	"github.com/spf13/cobra"

	cfgpkg "lenbucket/internal/config"
	"lenbucket/internal/diag"
	"lenbucket/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 退出码
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
	exitConfig  = 3
)

// lenbucket [flags] <input>
// 唯一的位置参数为输入文件；每行按长度追加写入 {长度}-{输入基名}（默认当前目录）。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	config    string
	outputDir string
	logLevel  string
	logDir    string
	initDir   string
	dryRun    bool
	status    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := exitOK
	cmd := newRootCmd(&code, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		// cobra 自身的参数/旗标错误不会经过 RunE
		if code == exitOK {
			code = exitUsage
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(stderr, "lenbucket: %v\n", err)
		}
		if code == exitUsage {
			fprintf(stderr, "用法: %s\n", cmd.UseLine())
		}
	}
	return code
}

func newRootCmd(code *int, stderr io.Writer) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "lenbucket [flags] <input>",
		Short:         "按行长度把词表拆分为 {长度}-{文件名} 文件（追加写入）",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("init-config") {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("init-config") {
				if err := initConfig(o.initDir); err != nil {
					*code = exitConfig
					return errors.Wrap(err, "生成默认配置失败")
				}
				return nil
			}
			c, err := execute(cmd.Context(), cmd, o, args[0], stderr)
			*code = c
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&o.config, "config", "", "配置文件路径（TOML）；缺省读取 ./"+cfgpkg.DefaultFile+"（若存在）")
	fl.StringVar(&o.outputDir, "output-dir", "", "分桶文件输出目录（须已存在；覆盖配置）")
	fl.StringVar(&o.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	fl.StringVar(&o.logDir, "log-dir", "", "日志写入该目录的轮转文件（覆盖配置；缺省写 stderr）")
	fl.BoolVar(&o.dryRun, "dry-run", false, "只统计不写文件")
	fl.BoolVar(&o.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	fl.StringVar(&o.initDir, "init-config", "", "在指定目录生成默认配置 "+cfgpkg.DefaultFile+"（已存在则跳过）；不带值时为当前目录")
	fl.Lookup("init-config").NoOptDefVal = "."
	return cmd
}

func execute(ctx context.Context, cmd *cobra.Command, o options, input string, stderr io.Writer) (int, error) {
	start := time.Now()
	corrID := xid.New().String()

	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return exitConfig, err
	}

	var sink io.Writer = stderr
	if cfg.Logging.Dir != "" {
		rf := diag.NewRotatingFile(cfg.Logging.Dir, 0, 0)
		defer rf.Close()
		sink = rf
	}
	logger := diag.NewLogger(corrID, cfg.Logging.Level, sink)
	logger.Debug("config", "effective", map[string]string{
		"input":      input,
		"output_dir": cfgpkg.OutputDir(cfg),
		"reader":     cfgpkg.ReaderName(cfg),
		"sink":       cfgpkg.SinkName(cfg),
		"buf_size":   strconv.Itoa(cfg.BufSize),
		"dry_run":    strconv.FormatBool(cfg.DryRun),
	})

	if err := cfgpkg.Preflight(cfg); err != nil {
		logger.Error("config", string(diag.Classify(err)), "preflight", &start)
		return exitConfig, errors.Wrap(err, "输出目录不可用")
	}
	comp, err := cfgpkg.Assemble(cfg)
	if err != nil {
		logger.Error("config", string(diag.Classify(err)), "assemble", &start)
		return exitConfig, errors.Wrap(err, "装配失败")
	}

	term := diag.NewTerminal(stderr, o.status)
	term.RunStart(input, cfgpkg.OutputDir(cfg), cfg.DryRun)

	t := logger.Start("run", "bucket")
	res, err := pipelineRun(ctx, comp, pipeline.Settings{Input: input, Progress: term.Progress}, logger)
	if err != nil {
		logger.Error("run", string(diag.Classify(err)), "first error", &start)
		term.RunFinish(false, res.Lines, len(res.Buckets), time.Since(start))
		return exitRuntime, err
	}
	t.Finish("bucket", res.Lines)
	term.RunFinish(true, res.Lines, len(res.Buckets), time.Since(start))
	return exitOK, nil
}

// loadConfig 合并 默认 < 配置文件 < ENV < CLI，并校验。
func loadConfig(cmd *cobra.Command, o options) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := o.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	raw := []byte(os.Getenv(cfgpkg.EnvPrefix + "CONFIG_TOML"))
	if path == "" && len(raw) == 0 {
		if st, err := os.Stat(cfgpkg.DefaultFile); err == nil && !st.IsDir() {
			path = cfgpkg.DefaultFile
		}
	}
	if path != "" || len(raw) > 0 {
		base, err := cfgpkg.Load(path, raw)
		if err != nil {
			return cfg, errors.Wrap(err, "配置解析失败")
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	over, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, errors.Wrap(err, "环境变量解析失败")
	}
	cfg = cfgpkg.Merge(cfg, over)

	var cli cfgpkg.Config
	fl := cmd.Flags()
	if fl.Changed("output-dir") {
		cli.OutputDir = o.outputDir
	}
	if fl.Changed("log-level") {
		cli.Logging.Level = o.logLevel
	}
	if fl.Changed("log-dir") {
		cli.Logging.Dir = o.logDir
	}
	if fl.Changed("dry-run") {
		cli.DryRun = o.dryRun
		cli.DryRunSet = true
	}
	cfg = cfgpkg.Merge(cfg, cli)

	if err := cfgpkg.Validate(cfg); err != nil {
		return cfg, errors.Wrap(err, "配置校验失败")
	}
	return cfg, nil
}

// initConfig 在 dir 下生成默认配置；已存在则跳过，不覆盖。
func initConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, cfgpkg.DefaultFile), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(cfgpkg.DefaultTemplate())
	return err
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }
