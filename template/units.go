package template

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 模板中的几何量统一以点（pt，1/72 英寸）为单位保存。
// JSON/TOML 中既可以写纯数字（视为 pt），也可以写带单位的字符串，例如 "12mm"。

// Unit represents the original unit of a length value as written in a template.
type Unit int

const (
	UnitNone Unit = iota // bare numbers, already in points
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm        = 0.352777
	MmToPt        = 1.0 / PtToMm
	PointsPerInch = 72.0
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Points converts the length to points. Bare numbers are taken as points.
func (l Length) Points() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value * MmToPt
	case UnitCM:
		return l.Value * 10 * MmToPt
	case UnitIN:
		return l.Value * PointsPerInch
	default:
		return l.Value
	}
}

// ParseLength parses a length string such as "12mm", "1in" or "36" preserving its unit.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Length{}, fmt.Errorf("无法解析长度 %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// Pt is a length in points that decodes from either a JSON number or a unit string.
type Pt float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pt) UnmarshalJSON(b []byte) error {
	var num float64
	if err := json.Unmarshal(b, &num); err == nil {
		*p = Pt(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("长度必须是数字或带单位的字符串: %s", string(b))
	}
	l, err := ParseLength(s)
	if err != nil {
		return err
	}
	*p = Pt(l.Points())
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler with the same rules as UnmarshalJSON.
func (p *Pt) UnmarshalTOML(v any) error {
	switch n := v.(type) {
	case int64:
		*p = Pt(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("长度必须是有限数值: %v", n)
		}
		*p = Pt(n)
	case string:
		l, err := ParseLength(n)
		if err != nil {
			return err
		}
		*p = Pt(l.Points())
	default:
		return fmt.Errorf("长度必须是数字或带单位的字符串: %v", v)
	}
	return nil
}

// ptOr returns *p in points, or def when p is absent.
func ptOr(p *Pt, def float64) float64 {
	if p == nil {
		return def
	}
	return float64(*p)
}
