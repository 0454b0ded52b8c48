package rendering

import (
	"embed"
	htmltemplate "html/template"
	"io/fs"
	"os"
	"path"
	"strings"
	texttemplate "text/template"
)

//go:embed templates
var embeddedTemplates embed.FS

// Engine expands a named template with data
type Engine interface {
	Render(name string, data any) (string, error)
}

// TemplateEngine renders .html templates with html/template, which escapes
// by context, and .tex templates with text/template and the escape func.
type TemplateEngine struct {
	html *htmltemplate.Template
	tex  *texttemplate.Template
}

var _ Engine = (*TemplateEngine)(nil)

func htmlFuncs() htmltemplate.FuncMap {
	return htmltemplate.FuncMap{
		"join": strings.Join,
		"inc":  func(i int) int { return i + 1 },
	}
}

func texFuncs() texttemplate.FuncMap {
	return texttemplate.FuncMap{
		"escape": EscapeLaTeX,
		"join":   strings.Join,
		"escapeJoin": func(items []string, sep string) string {
			escaped := make([]string, len(items))
			for i, s := range items {
				escaped[i] = EscapeLaTeX(s)
			}
			return strings.Join(escaped, sep)
		},
	}
}

// NewTemplateEngine loads templates from dir, or the built-in set when dir
// is empty.
func NewTemplateEngine(dir string) (*TemplateEngine, error) {
	if dir == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, &TemplateError{Message: "failed to open built-in templates", Cause: err}
		}
		return NewTemplateEngineFS(sub)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &TemplateError{Message: "template directory not found: " + dir, Cause: err}
	}
	if !info.IsDir() {
		return nil, &TemplateError{Message: "template path is not a directory: " + dir}
	}
	return NewTemplateEngineFS(os.DirFS(dir))
}

// NewTemplateEngineFS parses every *.html and *.tex file at the root of fsys
func NewTemplateEngineFS(fsys fs.FS) (*TemplateEngine, error) {
	html, err := htmltemplate.New("cv").Funcs(htmlFuncs()).ParseFS(fsys, "*.html")
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse HTML templates", Cause: err}
	}
	tex, err := texttemplate.New("cv").Funcs(texFuncs()).ParseFS(fsys, "*.tex")
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse LaTeX templates", Cause: err}
	}
	return &TemplateEngine{html: html, tex: tex}, nil
}

// Render executes the template called name
func (e *TemplateEngine) Render(name string, data any) (string, error) {
	var b strings.Builder
	var err error
	switch path.Ext(name) {
	case ".tex":
		t := e.tex.Lookup(name)
		if t == nil {
			return "", &RenderError{Message: "template not found: " + name}
		}
		err = t.Execute(&b, data)
	default:
		t := e.html.Lookup(name)
		if t == nil {
			return "", &RenderError{Message: "template not found: " + name}
		}
		err = t.Execute(&b, data)
	}
	if err != nil {
		return "", &RenderError{Message: "failed to execute template " + name, Cause: err}
	}
	return b.String(), nil
}
