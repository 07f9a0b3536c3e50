package layout

import (
	"math"
	"strings"

	"github.com/ByLCY/titledoc/template"
)

// table 逐行排版 RepeatingTable。行高由各列折行后的最大行数决定；
// 放不下的行整体移到新页，并在新页重绘表头。
func (c *composer) table(i int, t template.RepeatingTable) {
	rows := c.src.EvalNodes(nil, t.Binding)
	if len(rows) == 0 {
		c.log.Debug("表格绑定无数据，跳过", "element", i, "binding", t.Binding)
		return
	}

	var cols []template.Column
	for _, col := range t.Columns {
		if col.Width > 0 {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		c.log.Debug("表格没有正宽度的列，跳过", "element", i)
		return
	}

	pad := t.Padding
	cellWidth := func(col template.Column) float64 {
		return math.Max(0, col.Width-(pad.Left+pad.Right))
	}

	header := func() {
		y := c.pc.baselineToDevice(t.Y + t.HeaderLeading)
		x := t.X
		for _, col := range cols {
			w := cellWidth(col)
			op := TextOp{
				X:     anchorX(x+pad.Left, w, col.Align),
				Y:     y,
				Text:  col.Header,
				Font:  t.HeaderFont,
				Size:  t.HeaderSize,
				Align: col.Align,
				Width: w,
			}
			c.justify(&op)
			c.pc.add(op)
			x += col.Width
		}
	}

	top := t.Y + t.HeaderLeading + t.HeaderGap
	header()
	cursor := top
	// 表格自己新开的页且尚无数据行时，即使放不下也直接绘制，避免无限翻页。
	freshPage := false
	for r, row := range rows {
		cells := make([][]string, len(cols))
		maxLines := 1
		for j, col := range cols {
			cells[j] = Wrap(c.metrics, c.cellText(row, col.Binding), cellWidth(col), t.RowFont, t.RowSize, true)
			if len(cells[j]) > maxLines {
				maxLines = len(cells[j])
			}
		}
		rowHeight := float64(maxLines)*t.RowLeading + pad.Top + pad.Bottom

		if cursor+rowHeight > c.pc.bottomLimit() && !freshPage {
			c.pc.newPage()
			c.log.Debug("表格分页", "element", i, "row", r, "page", len(c.pc.pages))
			header()
			cursor = top
			freshPage = true
		}

		x := t.X
		for j, col := range cols {
			w := cellWidth(col)
			for li, line := range cells[j] {
				baseline := cursor + pad.Top + float64(li)*t.RowLeading + t.RowSize
				op := TextOp{
					X:     anchorX(x+pad.Left, w, col.Align),
					Y:     c.pc.baselineToDevice(baseline),
					Text:  line,
					Font:  t.RowFont,
					Size:  t.RowSize,
					Align: col.Align,
					Width: w,
				}
				c.justify(&op)
				c.pc.add(op)
			}
			x += col.Width
		}
		cursor += rowHeight
		freshPage = false
	}
}

// cellText 解析单元格绑定：以 "/" 开头的绑定相对文档根，其余相对当前行节点。
func (c *composer) cellText(row Node, binding string) string {
	switch {
	case strings.TrimSpace(binding) == "":
		return ""
	case strings.HasPrefix(strings.TrimSpace(binding), "/"):
		return c.src.EvalString(nil, binding)
	default:
		ls, ok := c.src.(ListSource)
		if !ok {
			return c.src.EvalString(row, binding)
		}
		// 相对绑定匹配多项时以空格连接，空值不计入。
		var parts []string
		for _, s := range ls.EvalStrings(row, binding) {
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
}
