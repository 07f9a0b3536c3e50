package layout

import (
	"io"

	"github.com/charmbracelet/log"
)

// Options 配置排版阶段所需的依赖。
type Options struct {
	Metrics Metrics
	// Logger 为 nil 时不输出任何日志。排版只在 Debug 级别记录分页、跳过的元素与字体回退。
	Logger *log.Logger
}

// Metrics 负责测量文本宽度（pt）。实现必须对未知字体回退到默认字体，而不是报错。
type Metrics interface {
	Measure(text, font string, size float64) float64
}

// FontResolver 是 Metrics 的可选扩展：报告字体名解析结果，用于记录回退。
type FontResolver interface {
	Resolve(name string) (resolved string, ok bool)
}

// Node 是数据源中的不透明节点，仅在 DataSource 内部有意义。
type Node = any

// DataSource 是绑定表达式的求值能力。ctx 为 nil 时相对文档根求值。
// 实现不得返回错误：无法解析或无匹配时分别返回空串与空集合。
type DataSource interface {
	EvalString(ctx Node, expr string) string
	EvalNodes(ctx Node, expr string) []Node
}

// ListSource 是 DataSource 的可选扩展：逐项返回匹配文本。
// 实现它的数据源在表格单元格中以空格连接多个相对匹配，而不是直接拼接。
type ListSource interface {
	EvalStrings(ctx Node, expr string) []string
}

type emptySource struct{}

func (emptySource) EvalString(Node, string) string { return "" }
func (emptySource) EvalNodes(Node, string) []Node  { return nil }

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard)
}
