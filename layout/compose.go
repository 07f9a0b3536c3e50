package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/titledoc/template"
)

// Compose 按声明顺序排版模板中的元素，返回逐页的绘制指令。
// 绑定失败、内容超宽或几何缺失都按既定策略降级，不会报错；只有模板本身不一致时返回错误。
// 每次调用都使用全新的排版状态，可并发调用。
func Compose(tpl *template.Template, src DataSource, opts Options) (*Result, error) {
	if tpl == nil {
		return nil, fmt.Errorf("layout: 模板为空")
	}
	if opts.Metrics == nil {
		return nil, fmt.Errorf("layout: 缺少文本测量 Metrics")
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = emptySource{}
	}

	c := &composer{
		pc:      newPageCollector(tpl.Page),
		src:     src,
		metrics: opts.Metrics,
		log:     opts.logger(),
		warned:  map[string]bool{},
	}
	for i, el := range tpl.Elements {
		if err := c.compose(i, el); err != nil {
			return nil, err
		}
	}
	c.log.Debug("排版完成", "pages", len(c.pc.pages), "elements", len(tpl.Elements))

	return &Result{
		Width:  tpl.Page.Width,
		Height: tpl.Page.Height,
		Pages:  c.pc.allPages(),
	}, nil
}

type composer struct {
	pc      *pageCollector
	src     DataSource
	metrics Metrics
	log     *log.Logger
	warned  map[string]bool
}

func (c *composer) compose(i int, el template.Element) error {
	switch e := el.(type) {
	case template.StaticText:
		c.textLine(e.X, e.Y, e.Text, e.Font, e.Size, e.Align, e.MaxWidth, e.TabLeader, e.LeaderTargetX)
	case template.DynamicText:
		text := c.src.EvalString(nil, e.Binding)
		c.textLine(e.X, e.Y, text, e.Font, e.Size, e.Align, e.MaxWidth, "", 0)
	case template.TextBox:
		c.textBox(i, e)
	case template.Image:
		c.image(i, e)
	case template.Rule:
		x1, y1 := c.pc.toDevice(e.X1, e.Y1)
		x2, y2 := c.pc.toDevice(e.X2, e.Y2)
		c.pc.add(LineOp{X1: x1, Y1: y1, X2: x2, Y2: y2, Width: e.Width})
	case template.RepeatingTable:
		c.table(i, e)
	default:
		return &template.ElementError{Index: i, Kind: fmt.Sprintf("%T", el), Field: "type", Err: template.ErrUnknownElement}
	}
	return nil
}

func (c *composer) measure(text, font string, size float64) float64 {
	if r, ok := c.metrics.(FontResolver); ok && !c.warned[font] {
		c.warned[font] = true
		if resolved, found := r.Resolve(font); !found {
			c.log.Debug("字体未注册，使用默认字体测量", "font", font, "fallback", resolved)
		}
	}
	return c.metrics.Measure(text, font, size)
}

func (c *composer) textLine(x, y float64, text, font string, size float64, align template.Align, maxWidth float64, leader string, leaderTarget float64) {
	if maxWidth > 0 && c.measure(text, font, size) > maxWidth {
		text = Ellipsize(c.metrics, text, maxWidth, font, size)
	}
	dx, dy := c.pc.toDevice(x, y)
	op := TextOp{X: dx, Y: dy, Text: text, Font: font, Size: size, Align: align}
	if maxWidth > 0 {
		op.Width = maxWidth
	}
	c.justify(&op)
	if leader != "" && leaderTarget > 0 {
		op.Leader = leader
		op.LeaderFrom = c.textEnd(op)
		op.LeaderTo = leaderTarget
	}
	c.pc.add(op)
}

// justify 计算两端对齐的词间距；没有宽度或少于两个单词时退化为左对齐。
func (c *composer) justify(op *TextOp) {
	if op.Align != template.AlignJustify {
		return
	}
	words := strings.Fields(op.Text)
	if op.Width <= 0 || len(words) < 2 {
		op.Align = template.AlignLeft
		return
	}
	total := 0.0
	for _, w := range words {
		total += c.measure(w, op.Font, op.Size)
	}
	gaps := float64(len(words) - 1)
	space := c.measure(" ", op.Font, op.Size)
	op.WordGap = math.Max(space, (op.Width-total)/gaps)
}

// textEnd 返回文本在设备坐标中的结束 x。
func (c *composer) textEnd(op TextOp) float64 {
	if op.Align == template.AlignJustify {
		words := strings.Fields(op.Text)
		end := op.X + op.WordGap*float64(len(words)-1)
		for _, w := range words {
			end += c.measure(w, op.Font, op.Size)
		}
		return end
	}
	w := c.measure(op.Text, op.Font, op.Size)
	switch op.Align {
	case template.AlignRight:
		return op.X
	case template.AlignCenter:
		return op.X + w/2
	default:
		return op.X + w
	}
}

// anchorX 把框左边缘与宽度换算为对齐方式对应的锚点。
func anchorX(left, width float64, align template.Align) float64 {
	switch align {
	case template.AlignRight:
		return left + width
	case template.AlignCenter:
		return left + width/2
	default:
		return left
	}
}

func (c *composer) textBox(i int, tb template.TextBox) {
	if tb.Width <= 0 || tb.Height <= 0 {
		c.log.Debug("TextBox 缺少有效尺寸，跳过", "element", i)
		return
	}
	text := ""
	if tb.Text != nil {
		text = *tb.Text
	} else {
		text = c.src.EvalString(nil, tb.Binding)
	}

	effective := math.Max(0, tb.Width-(tb.PaddingLeft+tb.PaddingRight))
	lines := Wrap(c.metrics, text, effective, tb.Font, tb.Size, tb.Hyphenate)

	maxLines := int(math.Floor((tb.Height - tb.PaddingTop) / tb.Leading))
	if maxLines < 1 {
		maxLines = 1
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		if tb.Ellipsis {
			lines[maxLines-1] = Ellipsize(c.metrics, lines[maxLines-1], effective, tb.Font, tb.Size)
		}
	}

	top := tb.Y + tb.PaddingTop + tb.Size
	left := tb.X + tb.PaddingLeft
	for idx, line := range lines {
		op := TextOp{
			X:     anchorX(left, effective, tb.Align),
			Y:     c.pc.baselineToDevice(top + float64(idx)*tb.Leading),
			Text:  line,
			Font:  tb.Font,
			Size:  tb.Size,
			Align: tb.Align,
			Width: effective,
		}
		c.justify(&op)
		c.pc.add(op)
	}
}

func (c *composer) image(i int, img template.Image) {
	if img.Path == "" || img.Width <= 0 || img.Height <= 0 {
		c.log.Debug("Image 缺少路径或尺寸，跳过", "element", i)
		return
	}
	x, y := c.pc.toDevice(img.X, img.Y+img.Height)
	c.pc.add(ImageOp{Path: img.Path, X: x, Y: y, Width: img.Width, Height: img.Height})
}
