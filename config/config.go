// Package config 读取运行时 TOML 配置：字体目录与别名、二维码印章、文档元信息默认值。
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/ByLCY/titledoc/binding"
	"github.com/ByLCY/titledoc/fonts"
	"github.com/ByLCY/titledoc/layout"
	canvasrenderer "github.com/ByLCY/titledoc/renderer/canvas"
	"github.com/ByLCY/titledoc/template"
)

// 元信息默认值。
const (
	DefaultTitle   = "Certificate of Title"
	DefaultAuthor  = "Alberta Land Titles"
	DefaultCreator = "Title Document Creator Pro"
)

// Config 是 --config 指向的 TOML 文件内容。
type Config struct {
	FontDir  string                 `toml:"font_dir"`
	Fonts    map[string]fonts.Alias `toml:"fonts"`
	QR       QR                     `toml:"qr"`
	Metadata Metadata               `toml:"metadata"`

	// dir 是配置文件所在目录，相对的 font_dir 与字体文件据此解析。
	dir string
}

// QR 的尺寸字段与模板几何一样接受数字（pt）或带单位的字符串。
type QR struct {
	Enabled *bool       `toml:"enabled"`
	Size    template.Pt `toml:"size"`
	MarginX template.Pt `toml:"margin_x"`
	MarginY template.Pt `toml:"margin_y"`
}

// Metadata 中的字符串支持 ${expr} 插值，渲染前对数据源求值。
type Metadata struct {
	Title    string   `toml:"title"`
	Author   string   `toml:"author"`
	Subject  string   `toml:"subject"`
	Creator  string   `toml:"creator"`
	Keywords []string `toml:"keywords"`
}

// Default 返回未提供配置文件时使用的配置。
func Default() *Config {
	return &Config{
		Metadata: Metadata{
			Title:   DefaultTitle,
			Author:  DefaultAuthor,
			Creator: DefaultCreator,
		},
	}
}

// Load 读取配置文件；path 为空时返回默认配置。未出现的键保留默认值。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	if err := Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置 %s 失败: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Decode 把 TOML 内容叠加到 cfg 上。
func Decode(data []byte, cfg *Config) error {
	_, err := toml.Decode(string(data), cfg)
	return err
}

// Registry 按配置构造字体注册表。
func (c *Config) Registry() (*fonts.Registry, error) {
	opts := fonts.Options{Dir: c.resolve(c.FontDir), Aliases: map[string]fonts.Alias{}}
	for name, alias := range c.Fonts {
		if alias.File != "" && opts.Dir == "" {
			alias.File = c.resolve(alias.File)
		}
		opts.Aliases[name] = alias
	}
	return fonts.New(opts)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// QROptions 把配置转换为渲染器参数；未设置的字段使用默认几何。
func (c *Config) QROptions() canvasrenderer.QROptions {
	q := canvasrenderer.DefaultQR()
	if c.QR.Enabled != nil {
		q.Enabled = *c.QR.Enabled
	}
	if c.QR.Size > 0 {
		q.Size = float64(c.QR.Size)
	}
	if c.QR.MarginX > 0 {
		q.MarginX = float64(c.QR.MarginX)
	}
	if c.QR.MarginY > 0 {
		q.MarginY = float64(c.QR.MarginY)
	}
	return q
}

// Meta 对元信息做插值并附上文档标识。src 为 nil 时原样使用。
func (c *Config) Meta(src binding.Evaluator, documentID string) layout.DocumentMeta {
	m := c.Metadata
	keywords := make([]string, 0, len(m.Keywords))
	for _, k := range m.Keywords {
		if k = binding.Interpolate(k, src); k != "" {
			keywords = append(keywords, k)
		}
	}
	return layout.DocumentMeta{
		Title:      binding.Interpolate(m.Title, src),
		Author:     binding.Interpolate(m.Author, src),
		Subject:    binding.Interpolate(m.Subject, src),
		Creator:    binding.Interpolate(m.Creator, src),
		Producer:   DefaultCreator,
		Keywords:   keywords,
		DocumentID: documentID,
	}
}
