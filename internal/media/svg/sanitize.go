package svg

import (
	"bytes"
	"errors"
	"regexp"
)

var ErrNotSVG = errors.New("not an svg document")

var (
	scriptTagPattern     = regexp.MustCompile(`(?is)<\s*script\b.*?<\s*/\s*script\s*>`)
	selfClosingScript    = regexp.MustCompile(`(?is)<\s*script\b[^>]*/\s*>`)
	foreignObjectPattern = regexp.MustCompile(`(?is)<\s*foreignObject\b.*?<\s*/\s*foreignObject\s*>`)
	eventAttrPattern     = regexp.MustCompile(`(?is)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	jsHrefPattern        = regexp.MustCompile(`(?is)\s+(xlink:)?href\s*=\s*("\s*javascript:[^"]*"|'\s*javascript:[^']*')`)
)

// Sanitize strips scripts, foreign objects, event handler attributes and
// javascript: links from an SVG document.
func Sanitize(input []byte) ([]byte, error) {
	if !bytes.Contains(bytes.ToLower(input), []byte("<svg")) {
		return nil, ErrNotSVG
	}

	clean := scriptTagPattern.ReplaceAll(input, nil)
	clean = selfClosingScript.ReplaceAll(clean, nil)
	clean = foreignObjectPattern.ReplaceAll(clean, nil)
	clean = eventAttrPattern.ReplaceAll(clean, nil)
	clean = jsHrefPattern.ReplaceAll(clean, nil)

	return clean, nil
}
