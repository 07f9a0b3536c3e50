// Package fonts 提供只读的字体注册表：别名解析、内置 Go 字体以及基于 sfnt 的文本测量。
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Alias 把模板中使用的字体名映射到字体目录中的文件或某个内置字体。
type Alias struct {
	File     string `toml:"file"`
	FontName string `toml:"font_name"`
	Builtin  string `toml:"builtin"`
}

// Options 描述注册表的构造参数。
type Options struct {
	// Dir 下的 *.ttf / *.otf 以文件名（去掉扩展名）注册。
	Dir     string
	Aliases map[string]Alias
}

type face struct {
	name string
	data []byte
	font *sfnt.Font
}

// Registry 在构造后不可变，可被并发的排版与渲染安全共享。
type Registry struct {
	faces map[string]*face
	bufs  sync.Pool
}

// Builtin 返回只包含内置字体的注册表。
func Builtin() *Registry {
	r, err := New(Options{})
	if err != nil {
		// 内置字体随二进制分发，解析失败属于构建错误。
		panic(err)
	}
	return r
}

// New 构造注册表：内置字体 → 字体目录 → 别名，后者覆盖前者。
func New(opts Options) (*Registry, error) {
	r := &Registry{faces: map[string]*face{}}
	r.bufs.New = func() any { return new(sfnt.Buffer) }

	for _, name := range BuiltinNames() {
		if err := r.add(name, name, builtins[name]); err != nil {
			return nil, err
		}
	}

	if opts.Dir != "" {
		entries, err := os.ReadDir(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("读取字体目录 %s 失败: %w", opts.Dir, err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
				continue
			}
			stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			data, err := os.ReadFile(filepath.Join(opts.Dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("读取字体 %s 失败: %w", e.Name(), err)
			}
			if err := r.add(stem, stem, data); err != nil {
				return nil, err
			}
		}
	}

	aliases := make([]string, 0, len(opts.Aliases))
	for a := range opts.Aliases {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		def := opts.Aliases[alias]
		switch {
		case def.Builtin != "":
			f, ok := r.faces[def.Builtin]
			if !ok {
				return nil, fmt.Errorf("字体别名 %s: 未知内置字体 %s", alias, def.Builtin)
			}
			r.faces[alias] = f
		case def.File != "":
			path := def.File
			if !filepath.IsAbs(path) && opts.Dir != "" {
				path = filepath.Join(opts.Dir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("字体别名 %s: 读取 %s 失败: %w", alias, def.File, err)
			}
			name := def.FontName
			if name == "" {
				name = alias
			}
			if err := r.add(alias, name, data); err != nil {
				return nil, err
			}
			if def.FontName != "" && def.FontName != alias {
				r.faces[def.FontName] = r.faces[alias]
			}
		default:
			return nil, fmt.Errorf("字体别名 %s 需要 file 或 builtin", alias)
		}
	}
	return r, nil
}

func (r *Registry) add(key, name string, data []byte) error {
	f, err := sfnt.Parse(data)
	if err != nil {
		return fmt.Errorf("解析字体 %s 失败: %w", key, err)
	}
	r.faces[key] = &face{name: name, data: data, font: f}
	return nil
}

// Resolve 返回 name 实际对应的字体名；未注册时回退到 DefaultFont 并返回 ok=false。
func (r *Registry) Resolve(name string) (string, bool) {
	if f, ok := r.faces[name]; ok {
		return f.name, true
	}
	return r.faces[DefaultFont].name, false
}

// Data 返回 name 解析后的字体名与字体文件字节，供渲染器加载。
func (r *Registry) Data(name string) (string, []byte) {
	f := r.lookup(name)
	return f.name, f.data
}

// Names 按字典序列出所有可用的字体名（含别名）。
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.faces))
	for n := range r.faces {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) lookup(name string) *face {
	if f, ok := r.faces[name]; ok {
		return f
	}
	return r.faces[DefaultFont]
}

// Measure 返回 text 以 size（pt）排版时的前进宽度（pt），包含字距调整。
func (r *Registry) Measure(text, fontName string, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}
	f := r.lookup(fontName).font
	buf := r.bufs.Get().(*sfnt.Buffer)
	defer r.bufs.Put(buf)

	upem := f.UnitsPerEm()
	ppem := fixed.I(int(upem))
	var total fixed.Int26_6
	var prev sfnt.GlyphIndex
	hasPrev := false
	for _, ch := range text {
		idx, err := f.GlyphIndex(buf, ch)
		if err != nil {
			idx = 0
		}
		if hasPrev {
			if k, err := f.Kern(buf, prev, idx, ppem, font.HintingNone); err == nil {
				total += k
			}
		}
		adv, err := f.GlyphAdvance(buf, idx, ppem, font.HintingNone)
		if err == nil {
			total += adv
		}
		prev, hasPrev = idx, true
	}
	return float64(total) / 64 / float64(upem) * size
}
