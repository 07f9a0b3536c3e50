package layout

import (
	"math"

	"github.com/ByLCY/titledoc/template"
)

// BaselineGrid 把基线吸附到 Offset + n*Leading 的网格线上。
type BaselineGrid struct {
	Leading float64
	Offset  float64
}

// Align 返回距页顶 b 最近的网格线；不会早于 Offset。Leading 非正时原样返回。
func (g BaselineGrid) Align(b float64) float64 {
	if g.Leading <= 0 {
		return b
	}
	if b <= g.Offset {
		return g.Offset
	}
	steps := math.RoundToEven((b - g.Offset) / g.Leading)
	return g.Offset + steps*g.Leading
}

// pageCollector 持有页面几何与只追加的页面列表；当前页总是最后一页。
type pageCollector struct {
	width   float64
	height  float64
	margins template.Margins
	grid    *BaselineGrid
	pages   []*Page
}

func newPageCollector(cfg template.PageConfig) *pageCollector {
	pc := &pageCollector{
		width:   cfg.Width,
		height:  cfg.Height,
		margins: cfg.Margins,
	}
	if cfg.Baseline != nil {
		pc.grid = &BaselineGrid{Leading: cfg.Baseline.Leading, Offset: cfg.Baseline.Offset}
	}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *Page {
	p := &Page{}
	pc.pages = append(pc.pages, p)
	return p
}

func (pc *pageCollector) curr() *Page {
	return pc.pages[len(pc.pages)-1]
}

func (pc *pageCollector) add(op Op) {
	p := pc.curr()
	p.Ops = append(p.Ops, op)
}

// toDevice 把文档坐标（左上角原点，y 向下）换算为设备坐标。
func (pc *pageCollector) toDevice(x, y float64) (float64, float64) {
	return x, pc.height - y
}

// baselineToDevice 先按基线网格对齐（如有），再换算为设备 y。
func (pc *pageCollector) baselineToDevice(b float64) float64 {
	if pc.grid != nil {
		b = pc.grid.Align(b)
	}
	return pc.height - b
}

// bottomLimit 是文档坐标中可绘制区域的最低位置。
func (pc *pageCollector) bottomLimit() float64 {
	return pc.height - pc.margins.Bottom
}

func (pc *pageCollector) allPages() []Page {
	out := make([]Page, len(pc.pages))
	for i, p := range pc.pages {
		out[i] = *p
	}
	return out
}
