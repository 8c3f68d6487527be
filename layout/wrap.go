package layout

import "strings"

// Wrap 贪心换行：先按显式换行拆分，再逐词追加。
// 追加前测量候选行（当前行 + " " + 单词），超过 maxWidth 时该词另起一行。
// 单个超宽的词不再拆分；空行保留。maxWidth <= 0 时只按显式换行拆分。
func Wrap(text string, maxWidth int, measure MeasureFunc) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := strings.Split(text, "\n")
	if maxWidth <= 0 || measure == nil {
		return paragraphs
	}

	lines := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if measure(candidate) > maxWidth {
				lines = append(lines, current)
				current = word
				continue
			}
			current = candidate
		}
		lines = append(lines, current)
	}
	return lines
}
