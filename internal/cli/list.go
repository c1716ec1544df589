package cli

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-okapi/internal/config"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
)

func newFiltersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "列出过滤器配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printFilters()
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "监视自定义配置目录，变化时重新加载并打印配置表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.FilterConfigDir == "" {
				return errs.BadParameters("cli", "no filter configuration directory (use --filter-config-dir)", nil)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.printFilters()
			return a.registry.Watch(ctx, a.cfg.FilterConfigDir, func(n int, err error) {
				if err != nil {
					failColor.Fprintf(a.out, "✗ reload failed: %v\n", err)
					return
				}
				okColor.Fprintf(a.out, "✓ reloaded %d custom configurations\n", n)
				a.printFilters()
			})
		},
	})
	return cmd
}

func (a *app) printFilters() {
	tw := table.NewWriter()
	tw.SetOutputMirror(a.out)
	tw.AppendHeader(table.Row{"Configuration", "Filter", "MIME Type", "Extensions", "Custom"})
	for _, c := range a.registry.Configurations() {
		custom := ""
		if c.Custom {
			custom = "yes"
		}
		tw.AppendRow(table.Row{c.ID, c.FilterName, c.MimeType, strings.Join(c.Extensions, " "), custom})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func newStepsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "列出可用的管道步骤",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table.NewWriter()
			tw.SetOutputMirror(a.out)
			tw.AppendHeader(table.Row{"Step", "Description"})
			for _, s := range a.registry.Steps() {
				tw.AppendRow(table.Row{s.ID, s.Description})
			}
			tw.SetStyle(table.StyleLight)
			tw.Render()
			return nil
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "查看或初始化配置",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "显示生效的配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg
			title.Fprintln(a.out, "⚙ Effective configuration")
			tw := table.NewWriter()
			tw.SetOutputMirror(a.out)
			tw.AppendRows([]table.Row{
				{"source_locale", c.SourceLocale},
				{"target_locale", c.TargetLocale},
				{"input_encoding", c.InputEncoding},
				{"output_encoding", c.OutputEncoding},
				{"log_level", c.LogLevel},
				{"debug", c.Debug},
			})
			tw.AppendSeparator()
			tw.AppendRows([]table.Row{
				{"tm_path", c.TMPath},
				{"filter_config_dir", c.FilterConfigDir},
				{"watch_config_dir", c.WatchConfigDir},
			})
			tw.AppendSeparator()
			tw.AppendRows([]table.Row{
				{"fuzzy_threshold", c.FuzzyThreshold},
				{"code_sensitive", c.CodeSensitive},
				{"segmentation_rules", c.SegmentationRules},
				{"fallback", c.Fallback},
				{"quote_mode", c.QuoteMode},
				{"escape_gt", c.EscapeGT},
			})
			tw.SetStyle(table.StyleLight)
			tw.Render()
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "把当前生效的配置写入文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveConfig(a.cfg, args[0]); err != nil {
				return err
			}
			okColor.Fprintf(a.out, "✓ configuration written to %s\n", args[0])
			return nil
		},
	})
	return cmd
}
