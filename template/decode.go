package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type rawTemplate struct {
	Page     rawPage           `json:"page"`
	Elements []json.RawMessage `json:"elements"`
}

type rawPage struct {
	Width   *Pt `json:"width"`
	Height  *Pt `json:"height"`
	Margins struct {
		L *Pt `json:"l"`
		R *Pt `json:"r"`
		T *Pt `json:"t"`
		B *Pt `json:"b"`
	} `json:"margins"`
	Baseline *struct {
		Leading *Pt `json:"leading"`
		Offset  *Pt `json:"offset"`
	} `json:"baseline"`
}

type rawPadding struct {
	Top    *Pt `json:"top"`
	Right  *Pt `json:"right"`
	Bottom *Pt `json:"bottom"`
	Left   *Pt `json:"left"`
}

type rawColumn struct {
	Header  string `json:"header"`
	Binding string `json:"binding"`
	Width   *Pt    `json:"width"`
	Align   string `json:"align"`
}

// rawElement 汇总六种元素可能出现的全部字段，按 type 再取各自需要的部分。
type rawElement struct {
	Type string `json:"type"`

	X *Pt `json:"x"`
	Y *Pt `json:"y"`

	Text          *string `json:"text"`
	Binding       string  `json:"binding"`
	Font          string  `json:"font"`
	Size          *Pt     `json:"size"`
	Align         string  `json:"align"`
	MaxWidth      *Pt     `json:"max_width"`
	TabLeader     string  `json:"tab_leader"`
	LeaderTargetX *Pt     `json:"leader_target_x"`

	Width        *Pt   `json:"width"`
	Height       *Pt   `json:"height"`
	Leading      *Pt   `json:"leading"`
	Hyphenate    *bool `json:"hyphenate"`
	Ellipsis     *bool `json:"ellipsis"`
	PaddingTop   *Pt   `json:"padding_top"`
	PaddingLeft  *Pt   `json:"padding_left"`
	PaddingRight *Pt   `json:"padding_right"`

	Path string `json:"path"`

	X1 *Pt `json:"x1"`
	Y1 *Pt `json:"y1"`
	X2 *Pt `json:"x2"`
	Y2 *Pt `json:"y2"`

	Columns       []rawColumn `json:"columns"`
	RowFont       string      `json:"row_font"`
	RowSize       *Pt         `json:"row_size"`
	RowLeading    *Pt         `json:"row_leading"`
	HeaderFont    string      `json:"header_font"`
	HeaderSize    *Pt         `json:"header_size"`
	HeaderLeading *Pt         `json:"header_leading"`
	HeaderGap     *Pt         `json:"header_gap"`
	Padding       *rawPadding `json:"padding"`
}

// Load 读取模板文件，按扩展名选择 JSON 或 TOML 解析。
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取模板 %s 失败: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(data)
	default:
		return Parse(data)
	}
}

// ParseTOML 解析 TOML 形式的模板，结构与 JSON 模板一致。
func ParseTOML(data []byte) (*Template, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return Parse(asJSON)
}

// Parse 解析 JSON 模板，填充默认值并校验。
func Parse(data []byte) (*Template, error) {
	var raw rawTemplate
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	page := PageConfig{
		Width:  ptOr(raw.Page.Width, DefaultPageWidth),
		Height: ptOr(raw.Page.Height, DefaultPageHeight),
		Margins: Margins{
			Left:   ptOr(raw.Page.Margins.L, DefaultMargin),
			Right:  ptOr(raw.Page.Margins.R, DefaultMargin),
			Top:    ptOr(raw.Page.Margins.T, DefaultMargin),
			Bottom: ptOr(raw.Page.Margins.B, DefaultMargin),
		},
	}
	// 没有给出正的行距时不启用基线网格；偏移缺省为上边距。
	if bl := raw.Page.Baseline; bl != nil {
		if leading := ptOr(bl.Leading, 0); leading > 0 {
			page.Baseline = &Baseline{
				Leading: leading,
				Offset:  ptOr(bl.Offset, page.Margins.Top),
			}
		}
	}

	tpl := &Template{Page: page}
	for i, msg := range raw.Elements {
		var re rawElement
		if err := json.Unmarshal(msg, &re); err != nil {
			return nil, elementErr(i, "?", "", fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
		el, err := buildElement(i, re, page.Margins)
		if err != nil {
			return nil, err
		}
		tpl.Elements = append(tpl.Elements, el)
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return tpl, nil
}

func buildElement(i int, re rawElement, m Margins) (Element, error) {
	x := ptOr(re.X, m.Left)
	y := ptOr(re.Y, m.Top)
	font := nonEmpty(re.Font, DefaultFont)
	size := ptOr(re.Size, DefaultSize)

	switch Kind(re.Type) {
	case KindStaticText:
		text := ""
		if re.Text != nil {
			text = *re.Text
		}
		return StaticText{
			X: x, Y: y,
			Text:          text,
			Font:          font,
			Size:          size,
			Align:         ParseAlign(re.Align),
			MaxWidth:      ptOr(re.MaxWidth, 0),
			TabLeader:     re.TabLeader,
			LeaderTargetX: ptOr(re.LeaderTargetX, 0),
		}, nil

	case KindDynamicText:
		return DynamicText{
			X: x, Y: y,
			Binding:  re.Binding,
			Font:     font,
			Size:     size,
			Align:    ParseAlign(re.Align),
			MaxWidth: ptOr(re.MaxWidth, 0),
		}, nil

	case KindTextBox:
		return TextBox{
			X: x, Y: y,
			Width:        ptOr(re.Width, 0),
			Height:       ptOr(re.Height, 0),
			Binding:      re.Binding,
			Text:         re.Text,
			Font:         font,
			Size:         size,
			Leading:      ptOr(re.Leading, size*leadingFactor),
			Align:        ParseAlign(re.Align),
			Hyphenate:    boolOr(re.Hyphenate, true),
			Ellipsis:     boolOr(re.Ellipsis, true),
			PaddingTop:   ptOr(re.PaddingTop, 0),
			PaddingLeft:  ptOr(re.PaddingLeft, 0),
			PaddingRight: ptOr(re.PaddingRight, 0),
		}, nil

	case KindImage:
		return Image{
			X: x, Y: y,
			Width:  ptOr(re.Width, 0),
			Height: ptOr(re.Height, 0),
			Path:   re.Path,
		}, nil

	case KindRule:
		for _, f := range []struct {
			name string
			v    *Pt
		}{{"x1", re.X1}, {"y1", re.Y1}, {"x2", re.X2}, {"y2", re.Y2}} {
			if f.v == nil {
				return nil, elementErr(i, re.Type, f.name, ErrMissingField)
			}
		}
		return Rule{
			X1: float64(*re.X1), Y1: float64(*re.Y1),
			X2: float64(*re.X2), Y2: float64(*re.Y2),
			Width: ptOr(re.Width, DefaultRuleWidth),
		}, nil

	case KindRepeatingTable:
		if len(re.Columns) == 0 {
			return nil, elementErr(i, re.Type, "columns", ErrEmptyColumns)
		}
		rowSize := ptOr(re.RowSize, DefaultTableSize)
		rowLeading := ptOr(re.RowLeading, rowSize*leadingFactor)
		headerSize := ptOr(re.HeaderSize, DefaultTableSize)
		t := RepeatingTable{
			X: x, Y: y,
			Binding:       re.Binding,
			RowFont:       nonEmpty(re.RowFont, DefaultFont),
			RowSize:       rowSize,
			RowLeading:    rowLeading,
			HeaderFont:    nonEmpty(re.HeaderFont, DefaultBoldFont),
			HeaderSize:    headerSize,
			HeaderLeading: ptOr(re.HeaderLeading, headerSize*leadingFactor),
			HeaderGap:     ptOr(re.HeaderGap, rowLeading),
			Padding:       Padding{Top: DefaultCellPad, Right: DefaultCellPad, Bottom: DefaultCellPad, Left: DefaultCellPad},
		}
		if p := re.Padding; p != nil {
			t.Padding = Padding{
				Top:    ptOr(p.Top, DefaultCellPad),
				Right:  ptOr(p.Right, DefaultCellPad),
				Bottom: ptOr(p.Bottom, DefaultCellPad),
				Left:   ptOr(p.Left, DefaultCellPad),
			}
		}
		for _, c := range re.Columns {
			t.Columns = append(t.Columns, Column{
				Header:  c.Header,
				Binding: c.Binding,
				Width:   ptOr(c.Width, DefaultColWidth),
				Align:   ParseAlign(c.Align),
			})
		}
		return t, nil

	case "":
		return nil, elementErr(i, "", "type", ErrMissingField)
	default:
		return nil, elementErr(i, re.Type, "type", ErrUnknownElement)
	}
}

func nonEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
