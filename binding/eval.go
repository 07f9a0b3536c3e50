package binding

import (
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
)

// item 是一次求值的结果：树节点本身，或取自属性 / text() 的字符串值。
type item struct {
	node  *xmlquery.Node
	attr  string // 非空时表示 node 上名为 attr 的属性值
	value bool
}

type itemKey struct {
	node *xmlquery.Node
	attr string
}

func (it item) text() string {
	if it.attr != "" {
		v, _ := attrValue(it.node, it.attr)
		return v
	}
	if it.value {
		return it.node.Data
	}
	return strings.TrimSpace(it.node.InnerText())
}

// evalPath 按 path 从 ctx（相对路径）或 root（绝对路径）出发求值。
func evalPath(p *Path, ctx, root *xmlquery.Node) []item {
	if p == nil {
		return nil
	}
	start := ctx
	if p.Absolute() || start == nil {
		start = root
	}
	if start == nil {
		return nil
	}

	rootSep, head, tail := p.parts()
	current := []item{{node: start}}
	if head == nil {
		if rootSep == "" {
			return nil
		}
		// 单独的 "/" 选中文档根。
		return current
	}

	current = applyStep(current, rootSep == "//", head)
	for _, hop := range tail {
		if len(current) == 0 {
			break
		}
		current = applyStep(current, hop.Sep == "//", hop.Step)
	}
	return current
}

func applyStep(in []item, deep bool, step *Step) []item {
	seen := make(map[itemKey]struct{})
	var out []item
	add := func(it item) {
		k := itemKey{node: it.node, attr: it.attr}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}

	for _, ctx := range in {
		if ctx.value {
			continue
		}
		contexts := []*xmlquery.Node{ctx.node}
		if deep {
			contexts = descendantsOrSelf(ctx.node)
		}
		for _, n := range contexts {
			for _, it := range filter(selectStep(n, step), step.Predicates) {
				add(it)
			}
		}
	}
	// 多个上下文（含 "//" 展开出的嵌套上下文）的结果需要重新按文档顺序排列。
	if len(out) > 1 && (deep || len(in) > 1) {
		sortDocOrder(out)
	}
	return out
}

// sortDocOrder 按节点在文档中的先序位置稳定排序；同一元素上的属性按声明顺序排在其后。
func sortDocOrder(items []item) {
	root := items[0].node
	for root.Parent != nil {
		root = root.Parent
	}
	pos := make(map[*xmlquery.Node]int)
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		pos[n] = len(pos)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := pos[items[i].node], pos[items[j].node]
		if pi != pj {
			return pi < pj
		}
		return attrIndex(items[i]) < attrIndex(items[j])
	})
}

func attrIndex(it item) int {
	if it.attr == "" {
		return -1
	}
	for i, a := range it.node.Attr {
		if a.Name.Local == it.attr {
			return i
		}
	}
	return len(it.node.Attr)
}

func selectStep(n *xmlquery.Node, step *Step) []item {
	sel := step.Sel
	switch {
	case sel.Parent:
		if n.Parent == nil {
			return nil
		}
		return []item{{node: n.Parent}}
	case sel.Self:
		return []item{{node: n}}
	case sel.Text:
		var out []item
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
				out = append(out, item{node: c, value: true})
			}
		}
		return out
	case sel.Attr != "":
		if n.Type != xmlquery.ElementNode {
			return nil
		}
		if sel.Attr == "*" {
			out := make([]item, 0, len(n.Attr))
			for _, a := range n.Attr {
				out = append(out, item{node: n, attr: a.Name.Local, value: true})
			}
			return out
		}
		if _, ok := attrValue(n, sel.Attr); ok {
			return []item{{node: n, attr: sel.Attr, value: true}}
		}
		return nil
	default:
		var out []item
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			if sel.Name == "*" || c.Data == sel.Name {
				out = append(out, item{node: c})
			}
		}
		return out
	}
}

// filter 依次应用谓词；位置谓词相对于同一上下文节点的候选集合。
func filter(items []item, preds []*Predicate) []item {
	for _, p := range preds {
		if len(items) == 0 {
			return nil
		}
		switch {
		case p.Index != nil:
			idx := *p.Index
			if idx < 1 || idx > len(items) {
				return nil
			}
			items = []item{items[idx-1]}
		case p.Test != nil:
			kept := items[:0:0]
			for _, it := range items {
				if !it.value && p.Test.match(it.node) {
					kept = append(kept, it)
				}
			}
			items = kept
		}
	}
	return items
}

func (t *Test) match(n *xmlquery.Node) bool {
	if t.Attr {
		v, ok := attrValue(n, t.Name)
		return ok && (t.Value == nil || v == string(*t.Value))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode || c.Data != t.Name {
			continue
		}
		if t.Value == nil || strings.TrimSpace(c.InnerText()) == string(*t.Value) {
			return true
		}
	}
	return false
}

func attrValue(n *xmlquery.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Name.Local == name || (a.Name.Space != "" && a.Name.Space+":"+a.Name.Local == name) {
			return a.Value, true
		}
	}
	return "", false
}

func descendantsOrSelf(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	var walk func(*xmlquery.Node)
	walk = func(cur *xmlquery.Node) {
		out = append(out, cur)
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode {
				walk(c)
			}
		}
	}
	walk(n)
	return out
}
