package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
)

func newPipelineCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "运行或查看保存的管道定义",
	}
	cmd.AddCommand(newPipelineRunCommand(a), newPipelineShowCommand(a))
	return cmd
}

func newPipelineRunCommand(a *app) *cobra.Command {
	var (
		filterID  string
		outputDir string
		extension string
	)
	cmd := &cobra.Command{
		Use:   "run <pipeline.toml|yaml> <input...>",
		Short: "按管道定义处理输入文档",
		Long: `run 读取 TOML 或 YAML 管道定义，按步骤标识从注册表创建步骤，然后依次处理每个输入。

每个输入的输出路径为 <output-dir>/<输入文件名>，--ext 可以替换扩展名（例如写出 TMX 时）。`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := pipeline.LoadDefinition(args[0])
			if err != nil {
				return err
			}
			p, err := a.registry.BuildPipeline(def, pipeline.WithLogger(a.logger))
			if err != nil {
				return err
			}
			d := pipeline.NewDriver(p, a.logger)

			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return errs.IO("cli.pipeline", err)
				}
			}
			for _, in := range args[1:] {
				doc, err := a.document(in, filterID)
				if err != nil {
					d.Destroy()
					return err
				}
				d.AddInput(doc, outputPath(in, outputDir, extension), a.outputEncoding())
			}

			a.logger.Info("running pipeline", zap.String("pipeline", p.Name()), zap.Int("inputs", len(args)-1))
			if err := a.run(cmd.Context(), d); err != nil {
				return err
			}
			for _, item := range d.Items() {
				okColor.Fprintf(a.out, "✓ %s → %s\n", item.Main().Path(), item.OutputPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filterID, "filter", "f", "", "过滤器配置标识，默认按扩展名推断")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "out", "输出目录")
	cmd.Flags().StringVar(&extension, "ext", "", "替换输出文件的扩展名，例如 .tmx")
	return cmd
}

func newPipelineShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <pipeline.toml|yaml>",
		Short: "实例化管道定义并打印生效的参数",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := pipeline.LoadDefinition(args[0])
			if err != nil {
				return err
			}
			p, err := a.registry.BuildPipeline(def, pipeline.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer p.Destroy()
			format, err := pipeline.FormatFromPath(args[0])
			if err != nil {
				return err
			}
			data, err := pipeline.MarshalDefinition(pipeline.Describe(p), format)
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}
}

func outputPath(input, dir, ext string) string {
	name := filepath.Base(input)
	if ext != "" {
		name = name[:len(name)-len(filepath.Ext(name))] + ext
	}
	return filepath.Join(dir, name)
}
