package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/diffleverage"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/leverage"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/segmentation"
)

// Lookup 实现 leverage.Memory
func (l lazyMemory) Lookup(ctx context.Context, q leverage.Query) ([]leverage.Candidate, error) {
	m, err := l.a.openMemory()
	if err != nil {
		return nil, err
	}
	return m.Lookup(ctx, q)
}

// Store 实现 leverage.Sink
func (l lazyMemory) Store(ctx context.Context, source, target *resource.TextFragment, srcLoc, trgLoc resource.LocaleID, origin string) error {
	m, err := l.a.openMemory()
	if err != nil {
		return err
	}
	return m.Store(ctx, source, target, srcLoc, trgLoc, origin)
}

func newTMCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tm",
		Short: "翻译记忆库",
	}
	cmd.AddCommand(newTMImportCommand(a), newTMLookupCommand(a), newTMCountCommand(a))
	return cmd
}

func newTMImportCommand(a *app) *cobra.Command {
	var (
		filterID  string
		noSegment bool
		origin    string
	)
	cmd := &cobra.Command{
		Use:   "import <source> <translation> [<source> <translation>...]",
		Short: "把源文档与其译文文档按文本单元配对导入翻译记忆库",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expects source/translation pairs, received %d arg(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireTarget(); err != nil {
				return err
			}
			memory, err := a.openMemory()
			if err != nil {
				return err
			}

			// 源文档同时作为差异复用的新旧文档，译文文档按文本单元顺序配对
			pairing := diffleverage.NewStep(a.registry)
			steps := []pipeline.Step{a.extractionStep(), pairing}
			if !noSegment {
				seg := segmentation.NewStep()
				p := segmentation.NewParameters()
				p.RulesPath = a.cfg.SegmentationRules
				p.SegmentTarget = true
				if err := seg.SetParameters(p); err != nil {
					return err
				}
				steps = append(steps, seg)
			}
			importer := leverage.NewImportStep(memory)
			importer.SetContext(cmd.Context())
			importer.Origin = origin
			steps = append(steps, importer)

			d := a.newDriver()
			if err := a.addSteps(d, steps...); err != nil {
				return err
			}
			for i := 0; i < len(args); i += 2 {
				src, err := a.document(args[i], filterID)
				if err != nil {
					return err
				}
				again, err := a.document(args[i], filterID)
				if err != nil {
					return err
				}
				trg, err := a.document(args[i+1], filterID)
				if err != nil {
					return err
				}
				d.AddBatchItem(pipeline.NewBatchItem(src, again, trg))
			}

			if err := a.run(cmd.Context(), d); err != nil {
				return err
			}
			total, err := memory.Count(cmd.Context())
			if err != nil {
				return err
			}
			okColor.Fprintf(a.out, "✓ imported %d entries into %s (%d total)\n", importer.Stored(), a.cfg.TMPath, total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filterID, "filter", "f", "", "过滤器配置标识，默认按扩展名推断")
	cmd.Flags().BoolVar(&noSegment, "no-segment", false, "按整个文本单元导入，不分句")
	cmd.Flags().StringVar(&origin, "origin", "", "记录的来源，默认使用文档名")
	return cmd
}

func newTMLookupCommand(a *app) *cobra.Command {
	var threshold, limit int
	cmd := &cobra.Command{
		Use:   "lookup <text>",
		Short: "在翻译记忆库中查找匹配",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireTarget(); err != nil {
				return err
			}
			memory, err := a.openMemory()
			if err != nil {
				return err
			}
			src, trg := a.locales()
			candidates, err := memory.Lookup(cmd.Context(), leverage.Query{
				Source:       resource.NewTextFragment(args[0]),
				SourceLocale: src,
				TargetLocale: trg,
				Threshold:    threshold,
				Limit:        limit,
			})
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				warnColor.Fprintf(a.out, "no match for %q\n", args[0])
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(a.out)
			tw.AppendHeader(table.Row{"Score", "Type", "Source", "Target", "Origin"})
			for _, c := range candidates {
				tw.AppendRow(table.Row{c.Score, c.Type, c.Source.Text(), c.Target.Text(), c.Origin})
			}
			tw.SetStyle(table.StyleLight)
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 70, "最低匹配分数 (0-100)")
	cmd.Flags().IntVar(&limit, "limit", 5, "最多返回的匹配数")
	return cmd
}

func newTMCountCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "显示翻译记忆库的条目数",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			memory, err := a.openMemory()
			if err != nil {
				return err
			}
			n, err := memory.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %d entries\n", a.cfg.TMPath, n)
			return nil
		},
	}
}
