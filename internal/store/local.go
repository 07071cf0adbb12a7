package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/conneroisu/lectern/internal/errors"
)

// Fields added to Markdown records.
const (
	FieldContent    = "content"
	FieldContentRaw = "content_raw"
)

// LocalProvider reads collections from a directory tree: each collection is
// a directory under Dir and each file in it is a record. Files are read in
// lexical file-name order, which is the store order.
//
// Supported files:
//
//	*.md, *.markdown  YAML frontmatter fields; the body is stored as
//	                  content_raw and rendered to HTML as content
//	*.yml, *.yaml     a YAML mapping
//	*.toml            a TOML table
//	*.json            a JSON object
//
// Dotfiles, subdirectories and other extensions are skipped.
type LocalProvider struct {
	Dir string

	markdown goldmark.Markdown
}

// NewLocalProvider creates a provider rooted at dir.
func NewLocalProvider(dir string) *LocalProvider {
	return &LocalProvider{
		Dir:      dir,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Records implements Provider.
func (p *LocalProvider) Records(collection string) ([]Record, error) {
	dir := filepath.Join(p.Dir, collection)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapFilesystem(err, errors.ErrCodeRecordRead, "read collection directory", dir)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if !supportedExt(ext) {
			continue
		}

		path := filepath.Join(dir, name)
		// #nosec G304 -- path is built from a directory listing under Dir.
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFilesystem(err, errors.ErrCodeRecordRead, "read record", path)
		}

		data, err := p.decode(ext, raw)
		if err != nil {
			return nil, errors.WrapFilesystem(err, errors.ErrCodeRecordDecode, "decode record", path)
		}

		records = append(records, Record{
			ID:         strings.TrimSuffix(name, filepath.Ext(name)),
			Collection: collection,
			FileName:   name,
			Data:       data,
		})
	}

	return records, nil
}

func supportedExt(ext string) bool {
	switch ext {
	case ".md", ".markdown", ".yml", ".yaml", ".toml", ".json":
		return true
	default:
		return false
	}
}

func (p *LocalProvider) decode(ext string, raw []byte) (map[string]any, error) {
	switch ext {
	case ".md", ".markdown":
		return p.decodeMarkdown(raw)
	case ".yml", ".yaml":
		return parseYAML(raw)
	case ".toml":
		var fields map[string]any
		if err := toml.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		return normalizeMap(fields), nil
	default:
		var fields map[string]any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return nil, err
		}
		return normalizeMap(fields), nil
	}
}

func (p *LocalProvider) decodeMarkdown(raw []byte) (map[string]any, error) {
	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, err
	}

	fields, err := parseYAML(fm)
	if err != nil {
		return nil, err
	}

	md := p.markdown
	if md == nil {
		md = goldmark.New(goldmark.WithExtensions(extension.GFM))
	}

	var html bytes.Buffer
	if err := md.Convert(body, &html); err != nil {
		return nil, err
	}

	fields[FieldContentRaw] = string(body)
	fields[FieldContent] = html.String()
	return fields, nil
}
