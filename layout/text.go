package layout

import "strings"

const ellipsis = "..."

// Wrap 将 text 按 width（pt）贪心折行。
// 每个换行符开始一个新段落，空段落产生一个空行。单个超宽单词在 hyphenate 为 true 时
// 拆成带连字符的片段，否则原样独占一行。
func Wrap(m Metrics, text string, width float64, font string, size float64, hyphenate bool) []string {
	measure := func(s string) float64 { return m.Measure(s, font, size) }

	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if measure(candidate) <= width {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			if measure(word) <= width {
				current = word
				continue
			}
			if !hyphenate {
				lines = append(lines, word)
				continue
			}
			segments := splitLongWord(measure, word, width)
			lines = append(lines, segments[:len(segments)-1]...)
			current = segments[len(segments)-1]
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

// splitLongWord 反复截取最长的、加上 "-" 后仍不超宽的前缀（至少 2 个字符）。
// 找不到这样的前缀时截取 1 个字符且不加连字符，保证每轮都有进展。
// 最后一段是余下部分，不加连字符。
func splitLongWord(measure func(string) float64, word string, width float64) []string {
	rest := []rune(word)
	var segments []string
	for len(rest) > 1 && measure(string(rest)) > width {
		split := 0
		for i := len(rest) - 1; i >= 2; i-- {
			if measure(string(rest[:i])+"-") <= width {
				split = i
				break
			}
		}
		if split == 0 {
			segments = append(segments, string(rest[:1]))
			rest = rest[1:]
			continue
		}
		segments = append(segments, string(rest[:split])+"-")
		rest = rest[split:]
	}
	return append(segments, string(rest))
}

// Ellipsize 从末尾逐字符删除，直到 line+"..." 不超过 width；删空时只返回 "..."。
// 结果总以 "..." 结尾。
func Ellipsize(m Metrics, line string, width float64, font string, size float64) string {
	runes := []rune(line)
	for len(runes) > 0 && m.Measure(string(runes)+ellipsis, font, size) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ellipsis
}
