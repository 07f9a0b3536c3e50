package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/charmbracelet/log"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/titledoc/fonts"
	"github.com/ByLCY/titledoc/layout"
	"github.com/ByLCY/titledoc/renderer"
	"github.com/ByLCY/titledoc/template"
)

// qrPixels 是二维码位图的边长，绘制时再按 QROptions.Size 缩放。
const qrPixels = 256

// Renderer 通过 github.com/tdewolff/canvas 把排版结果绘制为 PDF。
// 它同时实现 layout.Metrics，使排版与绘制使用同一套字体度量。
type Renderer struct {
	baseDir string
	fonts   *fonts.Registry
	qr      QROptions
	log     *log.Logger

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily
}

var (
	_ renderer.Renderer   = (*Renderer)(nil)
	_ layout.Metrics      = (*Renderer)(nil)
	_ layout.FontResolver = (*Renderer)(nil)
)

// Options 配置 canvas 渲染器。
type Options struct {
	// BaseDir 用于解析相对图片路径。
	BaseDir string
	// Fonts 为 nil 时只使用内置字体。
	Fonts  *fonts.Registry
	QR     QROptions
	Logger *log.Logger
}

// QROptions 控制每页右下角的文档标识二维码，单位均为 pt。
// 二维码左下角位于 (页宽 - MarginX, MarginY)。
type QROptions struct {
	Enabled bool
	Size    float64
	MarginX float64
	MarginY float64
}

// DefaultQR 是 0.9in 见方、距右边缘 1.4in、距底边 0.6in 的二维码。
func DefaultQR() QROptions {
	return QROptions{
		Enabled: true,
		Size:    0.9 * template.PointsPerInch,
		MarginX: 1.4 * template.PointsPerInch,
		MarginY: 0.6 * template.PointsPerInch,
	}
}

// NewRenderer 创建渲染器。
func NewRenderer(opts Options) *Renderer {
	reg := opts.Fonts
	if reg == nil {
		reg = fonts.Builtin()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Renderer{
		baseDir:      opts.BaseDir,
		fonts:        reg,
		qr:           opts.QR,
		log:          logger,
		fontFamilies: map[string]*canvas.FontFamily{},
	}
}

// Render 把结果渲染为 PDF 字节切片。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	if result.Width <= 0 || result.Height <= 0 {
		return nil, fmt.Errorf("页面尺寸无效: %gx%g", result.Width, result.Height)
	}

	qrImage, err := r.qrImage(result.Meta.DocumentID)
	if err != nil {
		return nil, err
	}

	w, h := toMm(result.Width), toMm(result.Height)
	var buf bytes.Buffer
	writer := pdf.New(&buf, w, h, nil)
	r.applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		if err := r.drawPage(ctx, page); err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", i+1, err)
		}
		if qrImage != nil {
			r.drawQR(ctx, qrImage, result.Width)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	r.log.Debug("PDF 渲染完成", "pages", len(result.Pages), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	creator := meta.Creator
	if creator == "" {
		creator = meta.Producer
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, creator)
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page) error {
	for _, op := range page.Ops {
		switch o := op.(type) {
		case layout.TextOp:
			r.drawText(ctx, o)
		case layout.LineOp:
			r.drawLine(ctx, o)
		case layout.ImageOp:
			if err := r.drawImage(ctx, o); err != nil {
				r.log.Warn("图片绘制失败，已跳过", "path", o.Path, "err", err)
			}
		default:
			return fmt.Errorf("未知的绘制指令 %T", op)
		}
	}
	return nil
}

func (r *Renderer) drawText(ctx *canvas.Context, op layout.TextOp) {
	if op.Size <= 0 {
		return
	}
	face := r.face(op.Font, op.Size)
	x, y := toMm(op.X), toMm(op.Y)

	switch op.Align {
	case template.AlignJustify:
		// 词间距已在排版阶段算好，这里逐词绘制。
		gap := toMm(op.WordGap)
		cursor := x
		for _, word := range strings.Fields(op.Text) {
			ctx.DrawText(cursor, y, canvas.NewTextLine(face, word, canvas.Left))
			cursor += face.TextWidth(word) + gap
		}
	case template.AlignRight:
		ctx.DrawText(x, y, canvas.NewTextLine(face, op.Text, canvas.Right))
	case template.AlignCenter:
		ctx.DrawText(x, y, canvas.NewTextLine(face, op.Text, canvas.Center))
	default:
		ctx.DrawText(x, y, canvas.NewTextLine(face, op.Text, canvas.Left))
	}

	if op.Leader != "" && op.LeaderTo > op.LeaderFrom {
		step := face.TextWidth(op.Leader)
		if step <= 0 {
			return
		}
		to := toMm(op.LeaderTo)
		for cur := toMm(op.LeaderFrom); cur < to; cur += step {
			ctx.DrawText(cur, y, canvas.NewTextLine(face, op.Leader, canvas.Left))
		}
	}
}

func (r *Renderer) drawLine(ctx *canvas.Context, op layout.LineOp) {
	w := op.Width
	if w <= 0 {
		return
	}
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(canvas.Black)
	ctx.SetStrokeWidth(toMm(w))
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(op.X2-op.X1), toMm(op.Y2-op.Y1))
	ctx.DrawPath(toMm(op.X1), toMm(op.Y1), p)
}

func (r *Renderer) drawImage(ctx *canvas.Context, op layout.ImageOp) error {
	if op.Path == "" || op.Width <= 0 || op.Height <= 0 {
		return fmt.Errorf("图片缺少路径或尺寸")
	}
	path := op.Path
	if !filepath.IsAbs(path) && r.baseDir != "" {
		path = filepath.Join(r.baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("读取图片 %s 失败: %w", op.Path, err)
	}
	img, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("解码图片 %s 失败: %w", op.Path, err)
	}

	img = fitAspect(img, op.Width/op.Height)
	px := float64(img.Bounds().Dx())
	if px <= 0 {
		return fmt.Errorf("图片 %s 为空", op.Path)
	}
	ctx.DrawImage(toMm(op.X), toMm(op.Y), img, canvas.DPMM(px/toMm(op.Width)))
	return nil
}

// fitAspect 在纵横比与目标不一致时按宽度重新采样，使绘制结果恰好填满目标框。
func fitAspect(img image.Image, aspect float64) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || aspect <= 0 {
		return img
	}
	h := int(math.Round(float64(b.Dx()) / aspect))
	if h < 1 {
		h = 1
	}
	if h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func (r *Renderer) qrImage(docID string) (image.Image, error) {
	if !r.qr.Enabled || docID == "" || r.qr.Size <= 0 {
		return nil, nil
	}
	code, err := qr.Encode(docID, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}
	scaled, err := barcode.Scale(code, qrPixels, qrPixels)
	if err != nil {
		return nil, fmt.Errorf("缩放二维码失败: %w", err)
	}
	return scaled, nil
}

func (r *Renderer) drawQR(ctx *canvas.Context, img image.Image, pageWidth float64) {
	x := toMm(pageWidth - r.qr.MarginX)
	y := toMm(r.qr.MarginY)
	ctx.DrawImage(x, y, img, canvas.DPMM(float64(qrPixels)/toMm(r.qr.Size)))
}

// Measure 实现 layout.Metrics：size 与返回值均为 pt。
func (r *Renderer) Measure(text, font string, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}
	return toPt(r.face(font, size).TextWidth(text))
}

// Resolve 实现 layout.FontResolver。
func (r *Renderer) Resolve(name string) (string, bool) {
	return r.fonts.Resolve(name)
}

func (r *Renderer) face(font string, size float64) *canvas.FontFace {
	return r.family(font).Face(size, canvas.Black, canvas.FontRegular, canvas.FontNormal)
}

// family 按解析后的字体名缓存字体族；每个字体文件作为独立族的常规字重加载。
func (r *Renderer) family(font string) *canvas.FontFamily {
	name, data := r.fonts.Data(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if fam, ok := r.fontFamilies[name]; ok {
		return fam
	}
	fam := canvas.NewFontFamily(name)
	if err := fam.LoadFont(data, 0, canvas.FontRegular); err != nil {
		r.log.Warn("加载字体失败，使用默认字体", "font", name, "err", err)
		_, fallback := r.fonts.Data(fonts.DefaultFont)
		fam = canvas.NewFontFamily(fonts.DefaultFont)
		if err := fam.LoadFont(fallback, 0, canvas.FontRegular); err != nil {
			// 内置字体随二进制分发，加载失败属于构建错误。
			panic(err)
		}
	}
	r.fontFamilies[name] = fam
	return fam
}

// toMm 将点(pt)转换为 canvas 使用的毫米(mm)。
func toMm(pt float64) float64 { return pt * template.PtToMm }

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * template.MmToPt }
