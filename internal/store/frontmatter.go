package store

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// splitFrontmatter separates YAML frontmatter (`---` delimited) from the
// Markdown body. When the document does not open with a delimiter, the whole
// input is body.
func splitFrontmatter(content []byte) (frontmatter []byte, body []byte, err error) {
	nl := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = "\r\n"
	}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return nil, content[start+len(open):], nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the last line without a trailing newline.
		closing := []byte(nl + "---")
		if bytes.HasSuffix(content, closing) {
			return content[start : len(content)-len(closing)], nil, nil
		}
		return nil, nil, ErrMissingClosingDelimiter
	}

	return content[start : start+idx+len(nl)], content[start+idx+len(closeSeq):], nil
}

// parseYAML parses a YAML mapping into normalized fields.
func parseYAML(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return map[string]any{}, nil
	}
	return normalizeMap(fields), nil
}
