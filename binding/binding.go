// Package binding 实现模板绑定表达式：一个受限的路径查询子集，
// 在只读的 XML（或由 JSON 转换而来的）数据树上求值。
package binding

import (
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Document 是只读的数据树，可被多个排版调用并发共享。
type Document struct {
	root  *xmlquery.Node
	cache *exprCache
}

// NewDocument 包装一棵已解析的树。
func NewDocument(root *xmlquery.Node) *Document {
	return &Document{root: root, cache: &exprCache{}}
}

// Root 返回文档根节点。
func (d *Document) Root() *xmlquery.Node {
	if d == nil {
		return nil
	}
	return d.root
}

// EvalString 求值为字符串：string(p) 取首个匹配节点的文本，裸路径拼接所有匹配节点的文本。
// 表达式为空、无法解析或无匹配时返回空串。ctx 为 nil 时相对文档根求值。
func (d *Document) EvalString(ctx any, expr string) string {
	if d == nil || d.root == nil {
		return ""
	}
	e, ok := d.cache.get(expr)
	if !ok {
		return ""
	}
	if e.StringFn != nil {
		items := evalPath(e.StringFn, contextNode(ctx), d.root)
		if len(items) == 0 {
			return ""
		}
		return items[0].text()
	}
	items := evalPath(e.Path, contextNode(ctx), d.root)
	var b strings.Builder
	for _, it := range items {
		b.WriteString(it.text())
	}
	return b.String()
}

// EvalNodes 返回匹配的元素节点（按求值顺序），属性值与文本值不计入。
func (d *Document) EvalNodes(ctx any, expr string) []any {
	if d == nil || d.root == nil {
		return nil
	}
	e, ok := d.cache.get(expr)
	if !ok || e.Path == nil {
		return nil
	}
	var out []any
	for _, it := range evalPath(e.Path, contextNode(ctx), d.root) {
		if !it.value {
			out = append(out, it.node)
		}
	}
	return out
}

// EvalStrings 返回每个匹配项各自的文本（含属性与 text() 值），按文档顺序。
// string(p) 只返回首项；无法解析或无匹配时返回 nil。
func (d *Document) EvalStrings(ctx any, expr string) []string {
	if d == nil || d.root == nil {
		return nil
	}
	e, ok := d.cache.get(expr)
	if !ok {
		return nil
	}
	if e.StringFn != nil {
		items := evalPath(e.StringFn, contextNode(ctx), d.root)
		if len(items) == 0 {
			return nil
		}
		return []string{items[0].text()}
	}
	items := evalPath(e.Path, contextNode(ctx), d.root)
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.text())
	}
	return out
}

func contextNode(ctx any) *xmlquery.Node {
	n, _ := ctx.(*xmlquery.Node)
	return n
}

// Evaluator 是 Interpolate 所需的最小求值能力。
type Evaluator interface {
	EvalString(ctx any, expr string) string
}

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${expr} 替换为 src 上的求值结果（相对文档根）。
// 无匹配时替换为空串；src 为 nil 时原样返回。
func Interpolate(text string, src Evaluator) string {
	if src == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		expr := strings.TrimSpace(groups[1])
		if expr == "" {
			return ""
		}
		return src.EvalString(nil, expr)
	})
}
