package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// ErrParse is returned when a source file cannot be parsed.
var ErrParse = errors.New("parse python source")

// Python grammar node types the extractor looks at.
const (
	nodeImport       = "import_statement"
	nodeImportFrom   = "import_from_statement"
	nodeFutureImport = "future_import_statement"
	nodeDottedName   = "dotted_name"
	nodeAliased      = "aliased_import"

	fieldName       = "name"
	fieldModuleName = "module_name"
)

// Import is one absolute import found in a file.
type Import struct {
	// Module is the top-level module name ("os" for "import os.path").
	Module string
	// Path is the full dotted name as written.
	Path string
	Line int
}

var pythonLanguage = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(python.GetLanguage())
})

// importParser extracts imports from Python sources with pooled tree-sitter parsers.
type importParser struct {
	pool sync.Pool
}

func newImportParser() *importParser {
	lang := pythonLanguage()

	return &importParser{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// Parse returns the absolute imports of content in source order. Relative
// imports and __future__ imports are not reported.
func (ip *importParser) Parse(ctx context.Context, content []byte) ([]Import, error) {
	tsParser, ok := ip.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, fmt.Errorf("%w: parser pool returned unexpected type", ErrParse)
	}

	defer ip.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("%w: no root node", ErrParse)
	}

	var out []Import

	collectImports(root, content, &out)

	return out, nil
}

func collectImports(node sitter.Node, src []byte, out *[]Import) {
	switch node.Type() {
	case nodeFutureImport:
		return
	case nodeImport:
		for idx := range node.NamedChildCount() {
			child := node.NamedChild(idx)

			switch child.Type() {
			case nodeDottedName:
				appendImport(child, src, out)
			case nodeAliased:
				name := child.ChildByFieldName(fieldName)
				if !name.IsNull() {
					appendImport(name, src, out)
				}
			}
		}

		return
	case nodeImportFrom:
		module := node.ChildByFieldName(fieldModuleName)
		if !module.IsNull() && module.Type() == nodeDottedName {
			appendImport(module, src, out)
		}

		return
	}

	for idx := range node.NamedChildCount() {
		collectImports(node.NamedChild(idx), src, out)
	}
}

func appendImport(node sitter.Node, src []byte, out *[]Import) {
	start, end := int(node.StartByte()), int(node.EndByte())
	if end > len(src) || start >= end {
		return
	}

	dotted := string(src[start:end])
	top, _, _ := strings.Cut(dotted, ".")

	*out = append(*out, Import{
		Module: strings.TrimSpace(top),
		Path:   dotted,
		Line:   bytes.Count(src[:start], []byte{'\n'}) + 1,
	})
}
