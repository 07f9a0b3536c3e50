package binding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
)

// FromXML 解析 XML 数据源。
func FromXML(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析 XML 数据失败: %w", err)
	}
	return NewDocument(root), nil
}

// FromJSON 将 JSON 数据转换为等价的元素树：对象的键（排序后）成为子元素，
// 数组展开为与键同名的重复元素，标量成为文本内容。
// 顶层数组的元素命名为 item。
func FromJSON(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("解析 JSON 数据失败: %w", err)
	}
	root := &xmlquery.Node{Type: xmlquery.DocumentNode}
	switch val := v.(type) {
	case map[string]any:
		appendObject(root, val)
	default:
		appendValue(root, "item", val)
	}
	return NewDocument(root), nil
}

// Load 读取数据文件，.json 按 JSON 解析，其余按 XML 解析。同时返回原始字节，供调用方计算文档摘要。
func Load(path string) (*Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据 %s 失败: %w", path, err)
	}
	var doc *Document
	if strings.EqualFold(filepath.Ext(path), ".json") {
		doc, err = FromJSON(bytes.NewReader(data))
	} else {
		doc, err = FromXML(bytes.NewReader(data))
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

func appendObject(parent *xmlquery.Node, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendValue(parent, k, obj[k])
	}
}

func appendValue(parent *xmlquery.Node, name string, v any) {
	if arr, ok := v.([]any); ok {
		for _, el := range arr {
			appendValue(parent, name, el)
		}
		return
	}
	el := &xmlquery.Node{Type: xmlquery.ElementNode, Data: name}
	xmlquery.AddChild(parent, el)
	switch val := v.(type) {
	case nil:
	case map[string]any:
		appendObject(el, val)
	case string:
		xmlquery.AddChild(el, &xmlquery.Node{Type: xmlquery.TextNode, Data: val})
	default:
		xmlquery.AddChild(el, &xmlquery.Node{Type: xmlquery.TextNode, Data: fmt.Sprint(val)})
	}
}
