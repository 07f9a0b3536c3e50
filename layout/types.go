package layout

import (
	"encoding/json"

	"github.com/ByLCY/titledoc/template"
)

// 该文件定义排版结果：按页组织的绘制指令，供渲染与调试 JSON 共用。
// 所有坐标均为设备坐标（pt，左下角为原点，y 向上）。

// Result 保存排版后的页面与文档元信息。
type Result struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Pages  []Page       `json:"pages"`
	Meta   DocumentMeta `json:"meta"`
}

// Page 是一页的绘制指令，顺序即绘制顺序。
type Page struct {
	Ops []Op `json:"ops"`
}

// Op 是三种绘制指令的封闭和类型。
type Op interface {
	isOp()
}

// TextOp 在基线 (X, Y) 处绘制一行文本。
// Align 决定 X 的含义：left 为起点，right 为终点，center 为中点，justify 为起点。
type TextOp struct {
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Text  string         `json:"text"`
	Font  string         `json:"font"`
	Size  float64        `json:"size"`
	Align template.Align `json:"align"`
	// Width 是文本所在框的宽度，0 表示未限定。
	Width float64 `json:"width,omitempty"`
	// WordGap 仅用于 justify：相邻单词之间的实际间距。
	WordGap float64 `json:"word_gap,omitempty"`
	// Leader 非空时，从 LeaderFrom 起以自身宽度为步长重复绘制，直到 LeaderTo。
	Leader     string  `json:"leader,omitempty"`
	LeaderFrom float64 `json:"leader_from,omitempty"`
	LeaderTo   float64 `json:"leader_to,omitempty"`
}

// LineOp 绘制一条线段。
type LineOp struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Width float64 `json:"width"`
}

// ImageOp 以 (X, Y) 为左下角绘制图片。
type ImageOp struct {
	Path   string  `json:"path"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (TextOp) isOp()  {}
func (LineOp) isOp()  {}
func (ImageOp) isOp() {}

// MarshalJSON 为调试输出附加 "op" 判别字段。
func (o TextOp) MarshalJSON() ([]byte, error) {
	type plain TextOp
	return json.Marshal(struct {
		Op string `json:"op"`
		plain
	}{"text", plain(o)})
}

// MarshalJSON 为调试输出附加 "op" 判别字段。
func (o LineOp) MarshalJSON() ([]byte, error) {
	type plain LineOp
	return json.Marshal(struct {
		Op string `json:"op"`
		plain
	}{"line", plain(o)})
}

// MarshalJSON 为调试输出附加 "op" 判别字段。
func (o ImageOp) MarshalJSON() ([]byte, error) {
	type plain ImageOp
	return json.Marshal(struct {
		Op string `json:"op"`
		plain
	}{"image", plain(o)})
}

// DocumentMeta 保存 PDF 元信息。DocumentID 通常是数据源字节的 SHA-256。
type DocumentMeta struct {
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Subject    string   `json:"subject"`
	Creator    string   `json:"creator"`
	Producer   string   `json:"producer"`
	Keywords   []string `json:"keywords"`
	DocumentID string   `json:"document_id"`
}
