package template

import "strings"

// segmentKind distinguishes the three kinds of top-level chunk the
// template source splits into before expression parsing.
type segmentKind int

const (
	segText segmentKind = iota
	segOutput
	segTag
)

// segment is one `{{ ... }}`, `{% ... %}`, or literal-text chunk.
type segment struct {
	kind segmentKind
	text string // literal text, or the trimmed content between delimiters
	pos  int
}

// splitSegments scans src for {{ }} and {% %} delimiters, returning
// the ordered sequence of text/output/tag segments.
func splitSegments(src string) ([]segment, error) {
	var segs []segment
	i := 0
	for i < len(src) {
		openOutput := strings.Index(src[i:], "{{")
		openTag := strings.Index(src[i:], "{%")

		next := -1
		isTag := false
		switch {
		case openOutput < 0 && openTag < 0:
			segs = append(segs, segment{kind: segText, text: src[i:], pos: i})
			return segs, nil
		case openOutput < 0:
			next, isTag = openTag, true
		case openTag < 0:
			next, isTag = openOutput, false
		case openTag < openOutput:
			next, isTag = openTag, true
		default:
			next, isTag = openOutput, false
		}

		if next > 0 {
			segs = append(segs, segment{kind: segText, text: src[i : i+next], pos: i})
		}
		i += next

		closeDelim := "}}"
		kind := segOutput
		if isTag {
			closeDelim = "%}"
			kind = segTag
		}
		end := strings.Index(src[i:], closeDelim)
		if end < 0 {
			return nil, &SyntaxError{Reason: "unterminated tag", Pos: i}
		}
		content := src[i+2 : i+end]
		segs = append(segs, segment{kind: kind, text: strings.TrimSpace(content), pos: i})
		i += end + len(closeDelim)
	}
	return segs, nil
}
