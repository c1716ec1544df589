// Package cli okapi 命令行
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/internal/config"
	"github.com/nerdneilsfield/go-okapi/internal/logger"
	"github.com/nerdneilsfield/go-okapi/internal/progress"
	"github.com/nerdneilsfield/go-okapi/internal/registry"
	"github.com/nerdneilsfield/go-okapi/internal/tm"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// rootOptions 全局标志
type rootOptions struct {
	cfgFile         string
	sourceLocale    string
	targetLocale    string
	debug           bool
	logLevel        string
	tmPath          string
	filterConfigDir string
	watch           bool
	summary         bool
}

// app 一次命令执行共享的状态
type app struct {
	opts     *rootOptions
	cfg      *config.Config
	logger   *zap.Logger
	registry *registry.Registry
	memory   *tm.Memory
	out      io.Writer
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	title     = color.New(color.FgCyan, color.Bold)
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}
	a := &app{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "okapi",
		Short: "本地化过滤器与处理管道工具",
		Long: `okapi 把文档拆分为可翻译的文本单元，经过管道步骤处理后再写回原格式。

支持的格式:
  - 纯文本 (.txt)
  - HTML (.html, .htm, .xhtml)
  - Markdown (.md, .markdown)

用法示例:
  okapi extract --target fr guide.md guide.tmx
  okapi tm import --target fr translated.md
  okapi merge --target fr --leverage guide.md guide.fr.md
  okapi roundtrip docs/*.html`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "配置文件路径（默认 $HOME/.okapi.yaml）")
	flags.StringVarP(&opts.sourceLocale, "source", "s", "", "源语言")
	flags.StringVarP(&opts.targetLocale, "target", "t", "", "目标语言")
	flags.BoolVar(&opts.debug, "debug", false, "启用调试日志")
	flags.StringVar(&opts.logLevel, "log-level", "", "日志级别 (debug|info|warn|error)")
	flags.StringVar(&opts.tmPath, "tm", "", "翻译记忆库文件")
	flags.StringVar(&opts.filterConfigDir, "filter-config-dir", "", "自定义过滤器配置目录")
	flags.BoolVar(&opts.watch, "watch", false, "监视过滤器配置目录并自动重新加载")
	flags.BoolVar(&opts.summary, "summary", false, "处理结束后打印每个文档的统计表")

	rootCmd.AddCommand(
		newExtractCommand(a),
		newMergeCommand(a),
		newRoundTripCommand(a),
		newDiffLeverageCommand(a),
		newTMCommand(a),
		newFiltersCommand(a),
		newStepsCommand(a),
		newPipelineCommand(a),
		newConfigCommand(a),
	)
	return rootCmd
}

// setup 加载配置，标志覆盖配置文件，然后创建日志与注册表
func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	cfg, err := config.LoadConfig(a.opts.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceLocale = a.opts.sourceLocale
	}
	if flags.Changed("target") {
		cfg.TargetLocale = a.opts.targetLocale
	}
	if flags.Changed("debug") {
		cfg.Debug = a.opts.debug
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.opts.logLevel
	}
	if flags.Changed("tm") {
		cfg.TMPath = a.opts.tmPath
	}
	if flags.Changed("filter-config-dir") {
		cfg.FilterConfigDir = a.opts.filterConfigDir
	}
	if flags.Changed("watch") {
		cfg.WatchConfigDir = a.opts.watch
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	if a.logger, err = logger.NewLoggerWithLevel(level); err != nil {
		return err
	}

	a.registry = registry.NewDefault(a.logger, registry.Dependencies{
		Memory: lazyMemory{a},
		Sink:   lazyMemory{a},
	})
	if cfg.FilterConfigDir != "" {
		n, err := a.registry.Discover(cfg.FilterConfigDir)
		if err != nil {
			return err
		}
		a.logger.Debug("custom filter configurations loaded", zap.Int("count", n))
		if cfg.WatchConfigDir {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			go func() {
				if err := a.registry.Watch(ctx, cfg.FilterConfigDir, nil); err != nil {
					a.logger.Warn("watching filter configurations failed", zap.Error(err))
				}
			}()
		}
	}
	return nil
}

func (a *app) close() {
	if a.memory != nil {
		if err := a.memory.Close(); err != nil {
			a.logger.Warn("closing translation memory failed", zap.Error(err))
		}
		a.memory = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// openMemory 首次使用时打开翻译记忆库
func (a *app) openMemory() (*tm.Memory, error) {
	if a.memory != nil {
		return a.memory, nil
	}
	if a.cfg.TMPath == "" {
		return nil, errs.BadParameters("cli", "no translation memory configured (use --tm)", nil)
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.TMPath), 0o755); err != nil {
		return nil, errs.IO("cli", err)
	}
	m, err := tm.Open(a.cfg.TMPath, tm.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.memory = m
	return m, nil
}

func (a *app) locales() (resource.LocaleID, resource.LocaleID) {
	return resource.NewLocaleID(a.cfg.SourceLocale), resource.NewLocaleID(a.cfg.TargetLocale)
}

func (a *app) requireTarget() error {
	if a.cfg.TargetLocale == "" {
		return errs.BadParameters("cli", "target locale is required (use --target)", nil)
	}
	return nil
}

// document 为输入文件创建原始文档，过滤器配置未指定时按扩展名推断
func (a *app) document(path, configID string) (*resource.RawDocument, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errs.IO("cli", err)
	}
	if configID == "" {
		id, ok := a.registry.ConfigurationForPath(path)
		if !ok {
			return nil, errs.BadParameters("cli", fmt.Sprintf("no filter configuration for %s (use --filter)", path), nil)
		}
		configID = id
	}
	src, trg := a.locales()
	doc := resource.NewRawDocumentFromPath(path, a.cfg.InputEncoding, src, trg)
	doc.FilterConfigID = configID
	return doc, nil
}

func (a *app) outputEncoding() string {
	if a.cfg.OutputEncoding != "" {
		return a.cfg.OutputEncoding
	}
	return "UTF-8"
}

func (a *app) newDriver() *pipeline.Driver {
	return pipeline.NewDriver(nil, a.logger)
}

// run 处理批处理，收到 SIGINT 时取消管道
func (a *app) run(ctx context.Context, d *pipeline.Driver) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer d.Destroy()

	tracker := progress.NewTracker(a.logger)
	d.AddObserver(tracker)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sig:
			warnColor.Fprintln(a.out, "⚠ interrupted, canceling pipeline")
			d.Cancel()
		case <-done:
		}
	}()

	if err := d.ProcessBatch(ctx); err != nil {
		return err
	}
	total := tracker.Totals()
	a.logger.Info("batch finished",
		zap.Int("textUnits", total.TextUnits),
		zap.Int("translated", total.Translated),
		zap.Duration("duration", total.Duration()))
	if a.opts.summary {
		tracker.Render(a.out)
	}
	return nil
}

// lazyMemory 步骤真正查询时才打开翻译记忆库
type lazyMemory struct{ a *app }
