package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ByLCY/titledoc/binding"
	"github.com/ByLCY/titledoc/config"
	"github.com/ByLCY/titledoc/layout"
	"github.com/ByLCY/titledoc/renderer"
	canvasrenderer "github.com/ByLCY/titledoc/renderer/canvas"
	"github.com/ByLCY/titledoc/template"
)

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)
	root := &cobra.Command{
		Use:          "titledoc",
		Short:        "titledoc 根据模板与 XML/JSON 数据生成土地产权证书 PDF",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "运行时配置文件（TOML）")

	root.AddCommand(newRenderCmd(&configPath))
	root.AddCommand(newComposeCmd(&configPath))
	root.AddCommand(newCheckCmd())
	root.AddCommand(newFontsCmd(&configPath))
	return root
}

type renderOpts struct {
	template string
	output   string
	debug    string
	noQR     bool
}

func newRenderCmd(configPath *string) *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "render [data]",
		Short: "排版并渲染 PDF",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if opts.noQR {
				off := false
				cfg.QR.Enabled = &off
			}
			data := ""
			if len(args) == 1 {
				data = args[0]
			}
			return runRender(cmd.Context(), cfg, data, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "模板文件（.json 或 .toml）")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "output/title.pdf", "PDF 输出路径")
	cmd.Flags().StringVar(&opts.debug, "debug", "", "排版调试 JSON 输出路径")
	cmd.Flags().BoolVar(&opts.noQR, "no-qr", false, "不绘制文档标识二维码")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

// runRender 串联模板解析、数据加载、排版与渲染。
func runRender(ctx context.Context, cfg *config.Config, dataPath string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	tpl, err := template.Load(opts.template)
	if err != nil {
		return fmt.Errorf("解析模板失败: %w", err)
	}
	doc, raw, err := loadData(dataPath)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("加载字体失败: %w", err)
	}

	r := canvasrenderer.NewRenderer(canvasrenderer.Options{
		BaseDir: filepath.Dir(opts.template),
		Fonts:   reg,
		QR:      cfg.QROptions(),
		Logger:  logger,
	})
	result, err := layout.Compose(tpl, source(doc), layout.Options{Metrics: r, Logger: logger})
	if err != nil {
		return fmt.Errorf("排版失败: %w", err)
	}
	result.Meta = cfg.Meta(evaluator(doc), documentID(raw))
	logger.Info("排版完成", "pages", len(result.Pages))

	if opts.debug != "" {
		if err := writeDebug(result, opts.debug); err != nil {
			return err
		}
	}
	return writePDF(r, result, opts.output, logger)
}

func writePDF(r renderer.Renderer, result *layout.Result, path string, logger *log.Logger) error {
	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	logger.Info("已生成 PDF", "path", path, "bytes", len(pdfBytes))
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func newComposeCmd(configPath *string) *cobra.Command {
	var tplPath string
	cmd := &cobra.Command{
		Use:   "compose [data]",
		Short: "只排版，将绘制指令以 JSON 输出到标准输出",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			data := ""
			if len(args) == 1 {
				data = args[0]
			}
			return runCompose(cmd.Context(), cfg, tplPath, data, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&tplPath, "template", "t", "", "模板文件（.json 或 .toml）")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

// runCompose 使用字体注册表直接测量，不需要 PDF 渲染器。
func runCompose(ctx context.Context, cfg *config.Config, tplPath, dataPath string, w io.Writer) error {
	logger := loggerFromContext(ctx)
	tpl, err := template.Load(tplPath)
	if err != nil {
		return fmt.Errorf("解析模板失败: %w", err)
	}
	doc, raw, err := loadData(dataPath)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("加载字体失败: %w", err)
	}
	result, err := layout.Compose(tpl, source(doc), layout.Options{Metrics: reg, Logger: logger})
	if err != nil {
		return fmt.Errorf("排版失败: %w", err)
	}
	result.Meta = cfg.Meta(evaluator(doc), documentID(raw))
	return layout.EncodeDebugJSON(w, result)
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <template>",
		Short: "校验模板",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := template.Load(args[0])
			if err != nil {
				return err
			}
			kinds := map[template.Kind]int{}
			for _, el := range tpl.Elements {
				kinds[el.Kind()]++
			}
			loggerFromContext(cmd.Context()).Info("模板有效",
				"elements", len(tpl.Elements),
				"page", fmt.Sprintf("%gx%g", tpl.Page.Width, tpl.Page.Height),
				"tables", kinds[template.KindRepeatingTable])
			return nil
		},
	}
}

func newFontsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fonts",
		Short: "列出可用字体",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(reg.Names(), "\n"))
			return err
		},
	}
}

// loadData 读取 XML 或 JSON 数据；path 为空时没有数据源。
func loadData(path string) (*binding.Document, []byte, error) {
	if path == "" {
		return nil, nil, nil
	}
	return binding.Load(path)
}

// documentID 是数据原始字节的 SHA-256 十六进制串，相同数据总得到相同标识。
func documentID(raw []byte) string {
	if raw == nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// source 与 evaluator 避免把 nil 的 *Document 装进非 nil 接口。
func source(doc *binding.Document) layout.DataSource {
	if doc == nil {
		return nil
	}
	return doc
}

func evaluator(doc *binding.Document) binding.Evaluator {
	if doc == nil {
		return nil
	}
	return doc
}
