package layout

// MeasureFunc returns the pixel width of a single line of text.
type MeasureFunc func(line string) int
