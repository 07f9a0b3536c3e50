package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/titledoc/fonts"
	"github.com/ByLCY/titledoc/layout"
	"github.com/ByLCY/titledoc/template"
)

func sampleResult() *layout.Result {
	return &layout.Result{
		Width:  612,
		Height: 792,
		Pages: []layout.Page{
			{Ops: []layout.Op{
				layout.TextOp{X: 72, Y: 720, Text: "Certificate of Title", Font: "Helvetica-Bold", Size: 14, Align: template.AlignLeft},
				layout.TextOp{X: 540, Y: 700, Text: "No. 0012345", Font: "Helvetica", Size: 10, Align: template.AlignRight},
				layout.TextOp{X: 72, Y: 680, Text: "Land Titles Office", Font: "Times-Roman", Size: 10, Align: template.AlignJustify, Width: 200, WordGap: 40},
				layout.TextOp{X: 72, Y: 660, Text: "Total", Font: "Courier", Size: 10, Align: template.AlignLeft, Leader: ".", LeaderFrom: 102, LeaderTo: 300},
				layout.LineOp{X1: 72, Y1: 650, X2: 540, Y2: 650, Width: 0.5},
			}},
			{Ops: []layout.Op{
				layout.TextOp{X: 306, Y: 400, Text: "page two", Font: "Unknown-Font", Size: 12, Align: template.AlignCenter},
			}},
		},
		Meta: layout.DocumentMeta{Title: "Certificate of Title", Author: "Alberta Land Titles", Keywords: []string{"title"}},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer(Options{})
	data, err := r.Render(sampleResult())
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("输出不是 PDF: %q", data[:min(len(data), 16)])
	}
}

func TestRenderRejectsEmpty(t *testing.T) {
	r := NewRenderer(Options{})
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("nil 结果应报错")
	}
	if _, err := r.Render(&layout.Result{Width: 612, Height: 792}); err == nil {
		t.Fatalf("没有页面时应报错")
	}
}

func TestRenderQRStamp(t *testing.T) {
	res := sampleResult()
	res.Meta.DocumentID = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

	plain, err := NewRenderer(Options{}).Render(res)
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	stamped, err := NewRenderer(Options{QR: DefaultQR()}).Render(res)
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if len(stamped) <= len(plain) {
		t.Fatalf("启用二维码后输出应包含额外图像: %d <= %d", len(stamped), len(plain))
	}

	// 没有文档标识时不绘制二维码。
	res.Meta.DocumentID = ""
	noID, err := NewRenderer(Options{QR: DefaultQR()}).Render(res)
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if len(noID) >= len(stamped) {
		t.Fatalf("缺少文档标识时不应绘制二维码")
	}
}

func TestDefaultQRGeometry(t *testing.T) {
	q := DefaultQR()
	if !q.Enabled || math.Abs(q.Size-64.8) > 1e-9 || math.Abs(q.MarginX-100.8) > 1e-9 || math.Abs(q.MarginY-43.2) > 1e-9 {
		t.Fatalf("默认二维码参数错误: %+v", q)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: 80, B: 160, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建图片失败: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("写入图片失败: %v", err)
	}
}

func TestRenderImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "seal.png"), 10, 10)

	res := &layout.Result{Width: 300, Height: 300, Pages: []layout.Page{{Ops: []layout.Op{
		layout.ImageOp{Path: "seal.png", X: 10, Y: 10, Width: 80, Height: 40},
		// 缺失的图片只记录警告，不影响整体渲染。
		layout.ImageOp{Path: "missing.png", X: 10, Y: 100, Width: 20, Height: 20},
	}}}}
	data, err := NewRenderer(Options{BaseDir: dir}).Render(res)
	if err != nil {
		t.Fatalf("图片缺失不应导致渲染失败: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("输出不是 PDF")
	}
}

func TestFitAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	got := fitAspect(src, 2)
	if b := got.Bounds(); b.Dx() != 10 || b.Dy() != 5 {
		t.Fatalf("重新采样尺寸错误: %v", b)
	}
	if fitAspect(src, 1) != image.Image(src) {
		t.Fatalf("纵横比一致时不应重新采样")
	}
}

// TestMeasureMatchesRegistry 断言渲染器测量与字体注册表的 sfnt 测量基本一致，
// 排版阶段使用任一实现都不会让绘制结果超出框宽。
func TestMeasureMatchesRegistry(t *testing.T) {
	reg := fonts.Builtin()
	r := NewRenderer(Options{Fonts: reg})
	for _, font := range []string{"Helvetica", "Times-Bold", "Courier"} {
		text := "Certificate of Title"
		got := r.Measure(text, font, 12)
		want := reg.Measure(text, font, 12)
		if got <= 0 || want <= 0 {
			t.Fatalf("%s 宽度应为正: %g %g", font, got, want)
		}
		if math.Abs(got-want)/want > 0.05 {
			t.Fatalf("%s 测量差异过大: renderer=%g registry=%g", font, got, want)
		}
	}
	if r.Measure("", "Helvetica", 12) != 0 {
		t.Fatalf("空串宽度应为 0")
	}
	if r.Measure("ab", "Helvetica", 12) <= r.Measure("a", "Helvetica", 12) {
		t.Fatalf("宽度应随文本增长")
	}
}

func TestResolveFallback(t *testing.T) {
	r := NewRenderer(Options{})
	if name, ok := r.Resolve("No-Such-Font"); ok || name != fonts.DefaultFont {
		t.Fatalf("未知字体应回退到 %s: %s %v", fonts.DefaultFont, name, ok)
	}
	// 未知字体与默认字体测量一致。
	if r.Measure("abc", "No-Such-Font", 10) != r.Measure("abc", fonts.DefaultFont, 10) {
		t.Fatalf("回退字体测量不一致")
	}
}
