package renderer

import "github.com/ByLCY/titledoc/layout"

// Renderer 将排版结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误；同一个 Result 多次渲染应得到相同的页面内容。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
