package template

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TestParseLengthUnits 覆盖带单位长度到 pt 的换算。
func TestParseLengthUnits(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"36", 36},
		{"12pt", 12},
		{"1in", 72},
		{"25.4mm", 72},
		{"2.54cm", 72},
	}
	for _, c := range cases {
		l, err := ParseLength(c.in)
		if err != nil {
			t.Fatalf("ParseLength(%q) 失败: %v", c.in, err)
		}
		if got := l.Points(); math.Abs(got-c.want) > 1e-3 {
			t.Fatalf("ParseLength(%q).Points() = %g, want %g", c.in, got, c.want)
		}
	}
	if _, err := ParseLength("abc"); err == nil {
		t.Fatalf("非法长度应返回错误")
	}
}

// TestParseDefaults 验证缺省页面与元素默认值。
func TestParseDefaults(t *testing.T) {
	tpl, err := Parse([]byte(`{"elements":[
		{"type":"StaticText","text":"Hello"},
		{"type":"TextBox","width":100,"height":40,"binding":"/a"},
		{"type":"RepeatingTable","binding":"/r","columns":[{"header":"H","binding":"c"}]}
	]}`))
	if err != nil {
		t.Fatalf("Parse 失败: %v", err)
	}
	if tpl.Page.Width != DefaultPageWidth || tpl.Page.Height != DefaultPageHeight {
		t.Fatalf("页面默认尺寸错误: %+v", tpl.Page)
	}
	if tpl.Page.Margins.Left != 36 || tpl.Page.Margins.Bottom != 36 {
		t.Fatalf("页边距默认值错误: %+v", tpl.Page.Margins)
	}
	if tpl.Page.Baseline != nil {
		t.Fatalf("未配置 baseline 时不应启用网格")
	}

	st, ok := tpl.Elements[0].(StaticText)
	if !ok {
		t.Fatalf("元素 0 类型错误: %T", tpl.Elements[0])
	}
	if st.X != 36 || st.Y != 36 || st.Font != "Helvetica" || st.Size != 10 || st.Align != AlignLeft {
		t.Fatalf("StaticText 默认值错误: %+v", st)
	}

	tb := tpl.Elements[1].(TextBox)
	if math.Abs(tb.Leading-12) > 1e-9 || !tb.Hyphenate || !tb.Ellipsis || tb.Text != nil {
		t.Fatalf("TextBox 默认值错误: %+v", tb)
	}

	tbl := tpl.Elements[2].(RepeatingTable)
	if tbl.HeaderFont != "Helvetica-Bold" || tbl.RowFont != "Helvetica" || tbl.RowSize != 9 {
		t.Fatalf("表格字体默认值错误: %+v", tbl)
	}
	if tbl.Columns[0].Width != DefaultColWidth || tbl.Padding.Left != DefaultCellPad {
		t.Fatalf("表格列宽或内边距默认值错误: %+v", tbl)
	}
	if tbl.HeaderGap != tbl.RowLeading {
		t.Fatalf("header_gap 默认应等于 row_leading: %g vs %g", tbl.HeaderGap, tbl.RowLeading)
	}
}

// TestParseBaselineOffsetDefault 验证基线偏移缺省为上边距。
func TestParseBaselineOffsetDefault(t *testing.T) {
	tpl, err := Parse([]byte(`{"page":{"margins":{"t":"0.5in"},"baseline":{"leading":12}},"elements":[]}`))
	if err != nil {
		t.Fatalf("Parse 失败: %v", err)
	}
	if tpl.Page.Baseline == nil {
		t.Fatalf("baseline 未启用")
	}
	if tpl.Page.Baseline.Offset != 36 || tpl.Page.Margins.Top != 36 {
		t.Fatalf("baseline offset 期望 36，实际 %+v", tpl.Page.Baseline)
	}
}

// TestParseErrors 覆盖各类模板配置缺陷。
func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		json  string
		want  error
		field string
	}{
		{"unknown type", `{"elements":[{"type":"Barcode"}]}`, ErrUnknownElement, "type"},
		{"missing type", `{"elements":[{"x":1}]}`, ErrMissingField, "type"},
		{"rule endpoint", `{"elements":[{"type":"Rule","x1":0,"y1":0,"x2":10}]}`, ErrMissingField, "y2"},
		{"empty columns", `{"elements":[{"type":"RepeatingTable","binding":"/r","columns":[]}]}`, ErrEmptyColumns, "columns"},
		{"zero size", `{"elements":[{"type":"StaticText","text":"x","size":0}]}`, ErrInvalidValue, "size"},
		{"bad length", `{"elements":[{"type":"StaticText","x":"abc"}]}`, ErrInvalidValue, ""},
		{"nan leading", `{"elements":[{"type":"RepeatingTable","binding":"/r","row_leading":"nan","columns":[{"header":"a"}]}]}`, ErrInvalidValue, ""},
		{"infinite x", `{"elements":[{"type":"StaticText","text":"x","x":"infmm"}]}`, ErrInvalidValue, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.json))
			if !errors.Is(err, c.want) {
				t.Fatalf("期望 %v，实际 %v", c.want, err)
			}
			var ee *ElementError
			if !errors.As(err, &ee) {
				t.Fatalf("期望 ElementError，实际 %T", err)
			}
			if ee.Index != 0 || ee.Field != c.field {
				t.Fatalf("错误定位不正确: %+v", ee)
			}
		})
	}

	if _, err := Parse([]byte(`{"page":{"width":0},"elements":[]}`)); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("页面宽度为 0 应报 ErrInvalidTemplate，实际 %v", err)
	}
	if _, err := Parse([]byte(`not json`)); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("非法 JSON 应报 ErrInvalidTemplate，实际 %v", err)
	}
}

// TestParseTOML 验证 TOML 模板与 JSON 模板解析为同一结构。
func TestParseTOML(t *testing.T) {
	src := `
[page]
width = 300
height = "5in"

[page.margins]
l = 20

[[elements]]
type = "Rule"
x1 = 0
y1 = 10
x2 = 100
y2 = 10

[[elements]]
type = "RepeatingTable"
binding = "/Title/Owners/Owner"
row_leading = 11

[[elements.columns]]
header = "Name"
binding = "Name"
width = 120
align = "right"
`
	tpl, err := ParseTOML([]byte(src))
	if err != nil {
		t.Fatalf("ParseTOML 失败: %v", err)
	}
	if tpl.Page.Width != 300 || tpl.Page.Height != 360 || tpl.Page.Margins.Left != 20 {
		t.Fatalf("页面配置错误: %+v", tpl.Page)
	}
	r := tpl.Elements[0].(Rule)
	if r.X2 != 100 || r.Width != DefaultRuleWidth {
		t.Fatalf("Rule 解析错误: %+v", r)
	}
	tbl := tpl.Elements[1].(RepeatingTable)
	if len(tbl.Columns) != 1 || tbl.Columns[0].Align != AlignRight || tbl.HeaderGap != 11 {
		t.Fatalf("表格解析错误: %+v", tbl)
	}
}

// TestLoadByExtension 验证 Load 按扩展名选择解析器。
func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "t.json")
	tomlPath := filepath.Join(dir, "t.toml")
	if err := os.WriteFile(jsonPath, []byte(`{"elements":[{"type":"Image","path":"seal.png"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tomlPath, []byte("[[elements]]\ntype = \"Image\"\npath = \"seal.png\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{jsonPath, tomlPath} {
		tpl, err := Load(p)
		if err != nil {
			t.Fatalf("Load(%s) 失败: %v", p, err)
		}
		if img := tpl.Elements[0].(Image); img.Path != "seal.png" || img.Width != 0 {
			t.Fatalf("Load(%s) 图片元素错误: %+v", p, img)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("不存在的文件应返回错误")
	}
}

// TestValidateConstructed 验证直接构造的模板同样经过校验。
func TestValidateConstructed(t *testing.T) {
	tpl := &Template{
		Page:     PageConfig{Width: 100, Height: 100},
		Elements: []Element{TextBox{Width: 10, Height: 10, Size: 10}},
	}
	err := tpl.Validate()
	var ee *ElementError
	if !errors.As(err, &ee) || ee.Field != "leading" {
		t.Fatalf("leading 为 0 应报错，实际 %v", err)
	}
	tpl.Elements = []Element{RepeatingTable{RowSize: 9, HeaderSize: 9}}
	if err := tpl.Validate(); !errors.Is(err, ErrEmptyColumns) {
		t.Fatalf("空列应报 ErrEmptyColumns，实际 %v", err)
	}
}

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度，渲染器依赖它在两种单位间转换。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%g back=%g diff=%g", pt, back, diff)
		}
	}
}

// TestNonFiniteLengths 断言 NaN 与无穷大不会作为长度进入模板。
func TestNonFiniteLengths(t *testing.T) {
	for _, v := range []string{"nan", "NaN", "inf", "-inf", "infmm", "+Inf pt", "nanin"} {
		if _, err := ParseLength(v); err == nil {
			t.Fatalf("ParseLength(%q) 应失败", v)
		}
	}
	if _, err := Parse([]byte(`{"page":{"height":"inf"},"elements":[]}`)); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("无穷大页高应报 ErrInvalidTemplate，实际 %v", err)
	}

	// 代码中直接构造的模板同样在校验时被拒绝。
	tpl := &Template{
		Page: PageConfig{Width: 612, Height: 792},
		Elements: []Element{RepeatingTable{
			Columns: []Column{{Header: "a", Width: 60}},
			RowSize: 9, HeaderSize: 9, RowLeading: math.NaN(),
		}},
	}
	if err := tpl.Validate(); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("NaN 行距应报 ErrInvalidValue，实际 %v", err)
	}
	tpl.Page.Height = math.Inf(1)
	if err := tpl.Validate(); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("无穷大页高应报 ErrInvalidTemplate，实际 %v", err)
	}
}
