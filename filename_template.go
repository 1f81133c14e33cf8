// filename_template.go - Output filename templates with sprig functions.

package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
)

// filenameFields are the values a conversion template can reference.
type filenameFields struct {
	Title    string
	Author   string
	Program  string
	Basename string
	Format   string
	Index    int
}

func newFilenameFields(path string, index int, props *Properties) filenameFields {
	base := filepath.Base(path)
	return filenameFields{
		Title:    props.String(PropTitle),
		Author:   props.String(PropAuthor),
		Program:  props.String(PropProgram),
		Basename: strings.TrimSuffix(base, filepath.Ext(base)),
		Format:   props.String(PropType),
		Index:    index,
	}
}

type filenameTemplate struct {
	tmpl *template.Template
}

func parseFilenameTemplate(text string) (*filenameTemplate, error) {
	tmpl, err := template.New("filename").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return &filenameTemplate{tmpl: tmpl}, nil
}

// Execute renders the name and strips characters that are unsafe in a
// single path element.
func (t *filenameTemplate) Execute(fields filenameFields) (string, error) {
	var b strings.Builder
	if err := t.tmpl.Execute(&b, fields); err != nil {
		return "", fmt.Errorf("template: %w", err)
	}
	name := sanitizeFilename(strings.TrimSpace(b.String()))
	if name == "" || name == ".wav" {
		name = fields.Basename + ".wav"
	}
	if !strings.EqualFold(filepath.Ext(name), ".wav") {
		name += ".wav"
	}
	return name, nil
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)
}
