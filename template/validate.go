package template

import (
	"fmt"
	"math"
)

// Validate 检查模板是否可以被排版。Parse 会自动调用；在代码中直接构造模板时需要手动调用。
func (t *Template) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil template", ErrInvalidTemplate)
	}
	p := t.Page
	if !positive(p.Width) || !positive(p.Height) {
		return fmt.Errorf("%w: page size %.2fx%.2f", ErrInvalidTemplate, p.Width, p.Height)
	}
	if p.Margins.Top+p.Margins.Bottom >= p.Height {
		return fmt.Errorf("%w: vertical margins leave no content area", ErrInvalidTemplate)
	}
	if p.Baseline != nil && !positive(p.Baseline.Leading) {
		return fmt.Errorf("%w: baseline leading must be positive", ErrInvalidTemplate)
	}

	for i, el := range t.Elements {
		if el == nil {
			return elementErr(i, "", "", ErrUnknownElement)
		}
		kind := string(el.Kind())
		switch e := el.(type) {
		case StaticText:
			if !positive(e.Size) {
				return elementErr(i, kind, "size", ErrInvalidValue)
			}
		case DynamicText:
			if !positive(e.Size) {
				return elementErr(i, kind, "size", ErrInvalidValue)
			}
		case TextBox:
			if !positive(e.Size) {
				return elementErr(i, kind, "size", ErrInvalidValue)
			}
			if !positive(e.Leading) {
				return elementErr(i, kind, "leading", ErrInvalidValue)
			}
		case Image, Rule:
		case RepeatingTable:
			if len(e.Columns) == 0 {
				return elementErr(i, kind, "columns", ErrEmptyColumns)
			}
			if !positive(e.RowSize) {
				return elementErr(i, kind, "row_size", ErrInvalidValue)
			}
			if !positive(e.HeaderSize) {
				return elementErr(i, kind, "header_size", ErrInvalidValue)
			}
			if !finite(e.RowLeading) || e.RowLeading < 0 {
				return elementErr(i, kind, "row_leading", ErrInvalidValue)
			}
		default:
			return elementErr(i, kind, "type", ErrUnknownElement)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// positive 对 NaN 与无穷大返回 false。
func positive(v float64) bool { return finite(v) && v > 0 }
