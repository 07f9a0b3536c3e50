// Package template 定义产权证书版式模板：页面几何与按声明顺序排列的版式元素。
//
// 模板在构造时完成默认值填充与校验，之后视为不可变输入。
package template

import "strings"

// 与原有证书模板保持一致的默认值（单位：pt）。
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
	DefaultMargin     = 36.0
	DefaultFont       = "Helvetica"
	DefaultBoldFont   = "Helvetica-Bold"
	DefaultSize       = 10.0
	DefaultTableSize  = 9.0
	DefaultCellPad    = 2.0
	DefaultColWidth   = 60.0
	DefaultRuleWidth  = 0.5
	leadingFactor     = 1.2
)

// Template 描述一份文档的页面配置与元素列表。
type Template struct {
	Page     PageConfig
	Elements []Element
}

// PageConfig 记录页面尺寸、边距与可选的基线网格。
type PageConfig struct {
	Width    float64
	Height   float64
	Margins  Margins
	Baseline *Baseline
}

// Margins 以 pt 为单位。
type Margins struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// Baseline 描述基线网格：行距与首条网格线距页顶的偏移。
type Baseline struct {
	Leading float64
	Offset  float64
}

// Align 表示水平对齐方式。
type Align string

const (
	AlignLeft    Align = "left"
	AlignRight   Align = "right"
	AlignCenter  Align = "center"
	AlignJustify Align = "justify"
)

// ParseAlign 规范化对齐方式（支持 start/end 别名），无法识别时回退为 left。
func ParseAlign(v string) Align {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "right", "end":
		return AlignRight
	case "center", "centre", "middle":
		return AlignCenter
	case "justify":
		return AlignJustify
	default:
		return AlignLeft
	}
}

// Kind 是元素类型的判别值。
type Kind string

const (
	KindStaticText     Kind = "StaticText"
	KindDynamicText    Kind = "DynamicText"
	KindTextBox        Kind = "TextBox"
	KindImage          Kind = "Image"
	KindRule           Kind = "Rule"
	KindRepeatingTable Kind = "RepeatingTable"
)

// Element 是六种版式元素的封闭和类型。
type Element interface {
	Kind() Kind
	isElement()
}

// StaticText 绘制一行字面文本。
type StaticText struct {
	X, Y     float64
	Text     string
	Font     string
	Size     float64
	Align    Align
	MaxWidth float64 // 0 表示未设置
	// TabLeader 非空时，从文本末尾重复绘制该字符串直到 LeaderTargetX。
	TabLeader     string
	LeaderTargetX float64
}

// DynamicText 绘制一行由绑定表达式求值得到的文本。
type DynamicText struct {
	X, Y     float64
	Binding  string
	Font     string
	Size     float64
	Align    Align
	MaxWidth float64
}

// TextBox 在固定尺寸的框内折行排版文本，超出行数时截断并可追加省略号。
type TextBox struct {
	X, Y          float64
	Width, Height float64
	Binding       string
	Text          *string // 非 nil 时优先于 Binding
	Font          string
	Size          float64
	Leading       float64
	Align         Align
	Hyphenate     bool
	Ellipsis      bool
	PaddingTop    float64
	PaddingLeft   float64
	PaddingRight  float64
}

// Image 以 (X, Y) 为左上角绘制图片。
type Image struct {
	X, Y          float64
	Width, Height float64
	Path          string
}

// Rule 绘制一条直线。
type Rule struct {
	X1, Y1 float64
	X2, Y2 float64
	Width  float64
}

// RepeatingTable 为绑定结果中的每个节点绘制一行，跨页时重复表头。
type RepeatingTable struct {
	X, Y          float64
	Binding       string
	Columns       []Column
	RowFont       string
	RowSize       float64
	RowLeading    float64
	HeaderFont    string
	HeaderSize    float64
	HeaderLeading float64
	HeaderGap     float64
	Padding       Padding
}

// Column 描述表格的一列。Binding 以 "/" 开头时相对文档根求值，否则相对当前行节点。
type Column struct {
	Header  string
	Binding string
	Width   float64
	Align   Align
}

// Padding 是单元格内边距。
type Padding struct {
	Top, Right, Bottom, Left float64
}

func (StaticText) Kind() Kind     { return KindStaticText }
func (DynamicText) Kind() Kind    { return KindDynamicText }
func (TextBox) Kind() Kind        { return KindTextBox }
func (Image) Kind() Kind          { return KindImage }
func (Rule) Kind() Kind           { return KindRule }
func (RepeatingTable) Kind() Kind { return KindRepeatingTable }

func (StaticText) isElement()     {}
func (DynamicText) isElement()    {}
func (TextBox) isElement()        {}
func (Image) isElement()          {}
func (Rule) isElement()           {}
func (RepeatingTable) isElement() {}
