package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/filtertest"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/common"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/diffleverage"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/formatconversion"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/leverage"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/segmentation"
)

func (a *app) extractionStep() pipeline.Step {
	return common.NewRawDocumentToFilterEventsStep(a.registry)
}

func (a *app) segmentationStep() (pipeline.Step, error) {
	step := segmentation.NewStep()
	p := segmentation.NewParameters()
	p.RulesPath = a.cfg.SegmentationRules
	if err := step.SetParameters(p); err != nil {
		return nil, err
	}
	return step, nil
}

func (a *app) writerStep() (pipeline.Step, error) {
	step := common.NewFilterEventsWriterStep()
	p := common.NewWriterParameters()
	p.Fallback = a.cfg.Fallback
	if err := step.SetParameters(p); err != nil {
		return nil, err
	}
	return step, nil
}

func (a *app) addSteps(d *pipeline.Driver, steps ...pipeline.Step) error {
	for _, s := range steps {
		if err := d.AddStep(s); err != nil {
			return err
		}
	}
	return nil
}

func newExtractCommand(a *app) *cobra.Command {
	var (
		filterID  string
		noSegment bool
		exclusion string
	)
	cmd := &cobra.Command{
		Use:   "extract <input> <output.tmx>",
		Short: "把文档的可翻译内容导出为 TMX",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireTarget(); err != nil {
				return err
			}
			doc, err := a.document(args[0], filterID)
			if err != nil {
				return err
			}

			d := a.newDriver()
			steps := []pipeline.Step{a.extractionStep()}
			if !noSegment {
				seg, err := a.segmentationStep()
				if err != nil {
					return err
				}
				steps = append(steps, seg)
			}
			conv := formatconversion.NewStep()
			p := formatconversion.NewParameters()
			p.QuoteMode = encoder.QuoteMode(a.cfg.QuoteMode)
			p.EscapeGT = a.cfg.EscapeGT
			p.ExclusionPattern = exclusion
			if err := conv.SetParameters(p); err != nil {
				return err
			}
			steps = append(steps, conv)
			if err := a.addSteps(d, steps...); err != nil {
				return err
			}
			d.AddInput(doc, args[1], "UTF-8")

			if err := a.run(cmd.Context(), d); err != nil {
				return err
			}
			okColor.Fprintf(a.out, "✓ extracted %s → %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&filterID, "filter", "f", "", "过滤器配置标识，默认按扩展名推断")
	cmd.Flags().BoolVar(&noSegment, "no-segment", false, "不进行句子分段")
	cmd.Flags().StringVar(&exclusion, "exclude", "", "源文完全匹配该正则时不输出")
	return cmd
}

func newMergeCommand(a *app) *cobra.Command {
	var (
		filterID  string
		useTM     bool
		threshold int
	)
	cmd := &cobra.Command{
		Use:   "merge <input> <output>",
		Short: "把文档写回原格式，可先从翻译记忆库复用译文",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireTarget(); err != nil {
				return err
			}
			doc, err := a.document(args[0], filterID)
			if err != nil {
				return err
			}

			d := a.newDriver()
			steps := []pipeline.Step{a.extractionStep()}
			var lev *leverage.Step
			if useTM {
				seg, err := a.segmentationStep()
				if err != nil {
					return err
				}
				memory, err := a.openMemory()
				if err != nil {
					return err
				}
				lev = leverage.NewStep(memory)
				lev.SetContext(cmd.Context())
				p := leverage.NewParameters()
				p.Threshold = threshold
				p.FillTargetThreshold = threshold
				if err := lev.SetParameters(p); err != nil {
					return err
				}
				steps = append(steps, seg, lev)
			}
			w, err := a.writerStep()
			if err != nil {
				return err
			}
			steps = append(steps, w)
			if err := a.addSteps(d, steps...); err != nil {
				return err
			}
			d.AddInput(doc, args[1], a.outputEncoding())

			if err := a.run(cmd.Context(), d); err != nil {
				return err
			}
			okColor.Fprintf(a.out, "✓ merged %s → %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&filterID, "filter", "f", "", "过滤器配置标识，默认按扩展名推断")
	cmd.Flags().BoolVar(&useTM, "leverage", false, "写出前从翻译记忆库复用译文（需要 --tm 或配置中的 tm_path）")
	cmd.Flags().IntVar(&threshold, "threshold", 95, "复用译文的最低匹配分数 (0-100)")
	return cmd
}

func newRoundTripCommand(a *app) *cobra.Command {
	var filterID string
	cmd := &cobra.Command{
		Use:   "roundtrip <input...>",
		Short: "检查文档经过提取与合并后是否逐字节不变",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := a.roundTrip(path, filterID); err != nil {
					failed++
					failColor.Fprintf(a.out, "✗ %s: %v\n", path, err)
					continue
				}
				okColor.Fprintf(a.out, "✓ %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed the round trip", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filterID, "filter", "f", "", "过滤器配置标识，默认按扩展名推断")
	return cmd
}

func (a *app) roundTrip(path, filterID string) error {
	want, err := os.ReadFile(path)
	if err != nil {
		return errs.IO("cli.roundtrip", err)
	}
	doc, err := a.document(path, filterID)
	if err != nil {
		return err
	}
	f, err := a.registry.CreateFilter(doc.FilterConfigID)
	if err != nil {
		return err
	}
	got, err := filtertest.RoundTrip(f, doc)
	if err != nil {
		return err
	}
	if err := filtertest.Compare(want, got); err != nil {
		return err
	}
	a.logger.Debug("round trip ok", zap.String("path", path), zap.Int("bytes", len(got)))
	return nil
}

func newDiffLeverageCommand(a *app) *cobra.Command {
	var (
		filterID  string
		oldTarget string
		diffOnly  bool
	)
	cmd := &cobra.Command{
		Use:   "diff-leverage <old> <new> <output>",
		Short: "把旧版本文档的译文复制到新版本中未改动的文本单元",
		Long: `diff-leverage 对齐旧文档与新文档的文本单元，把旧译文复制到匹配的新文本单元后写出新文档。

旧文档本身没有目标语言内容时（例如源文与译文是两个文件），用 --old-target 指定旧译文文档，
两者按文本单元顺序配对。`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireTarget(); err != nil {
				return err
			}
			oldDoc, err := a.document(args[0], filterID)
			if err != nil {
				return err
			}
			newDoc, err := a.document(args[1], filterID)
			if err != nil {
				return err
			}
			inputs := []*resource.RawDocument{newDoc, oldDoc}
			if oldTarget != "" {
				trgDoc, err := a.document(oldTarget, filterID)
				if err != nil {
					return err
				}
				inputs = append(inputs, trgDoc)
			}

			dl := diffleverage.NewStep(a.registry)
			p := diffleverage.NewParameters()
			p.FuzzyThreshold = a.cfg.FuzzyThreshold
			p.CodeSensitive = a.cfg.CodeSensitive
			p.DiffOnly = diffOnly
			if err := dl.SetParameters(p); err != nil {
				return err
			}
			w, err := a.writerStep()
			if err != nil {
				return err
			}
			d := a.newDriver()
			if err := a.addSteps(d, a.extractionStep(), dl, w); err != nil {
				return err
			}
			item := pipeline.NewBatchItem(inputs...)
			item.OutputPath = args[2]
			item.OutputEncoding = a.outputEncoding()
			d.AddBatchItem(item)

			if err := a.run(cmd.Context(), d); err != nil {
				return err
			}
			okColor.Fprintf(a.out, "✓ leveraged %s into %s → %s\n", args[0], args[1], args[2])
			return nil
		},
	}
	cmd.Flags().StringVarP(&filterID, "filter", "f", "", "过滤器配置标识，默认按扩展名推断")
	cmd.Flags().StringVar(&oldTarget, "old-target", "", "旧文档的译文文档")
	cmd.Flags().BoolVar(&diffOnly, "diff-only", false, "只标注匹配，不复制译文")
	return cmd
}
