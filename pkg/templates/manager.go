package templates

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
)

// Renderer interface for template rendering (for dependency injection)
type Renderer interface {
	ExecuteTemplate(name string, data any) (string, error)
	TemplateExists(name string) bool
}

// Manager manages a parsed set of *.tmpl templates
type Manager struct {
	templates *template.Template
	source    string
}

// GetDefaultFuncMap returns common template helper functions
func GetDefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"title": func(s string) string {
			words := strings.Fields(strings.ReplaceAll(s, "_", " "))
			for i, w := range words {
				words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
			}
			return strings.Join(words, " ")
		},
		"pct": func(v float64) string {
			return fmt.Sprintf("%.2f%%", v)
		},
		"f2": func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		},
		"yesno": func(b bool) string {
			if b {
				return "Yes"
			}
			return "No"
		},
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// NewManager loads all templates from a directory on disk
func NewManager(templatesDir string) (*Manager, error) {
	return NewManagerFS(os.DirFS(templatesDir), templatesDir)
}

// NewManagerFS loads every *.tmpl file (one or two levels deep) from fsys.
// source is only used for logging.
func NewManagerFS(fsys fs.FS, source string) (*Manager, error) {
	tmpl := template.New("root").Funcs(GetDefaultFuncMap())

	loaded := 0
	for _, pattern := range []string{"*.tmpl", "*/*.tmpl"} {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			continue
		}
		if tmpl, err = tmpl.ParseFS(fsys, pattern); err != nil {
			return nil, fmt.Errorf("failed to parse templates %s: %w", pattern, err)
		}
		loaded += len(matches)
	}

	if loaded == 0 {
		return nil, fmt.Errorf("no templates found in %s", source)
	}

	logger.Debug("templates loaded",
		zap.Int("count", loaded),
		zap.String("source", source),
	)

	return &Manager{
		templates: tmpl,
		source:    source,
	}, nil
}

// NewManagerWithValidation creates manager and validates required templates exist
func NewManagerWithValidation(fsys fs.FS, source string, requiredTemplates []string) (*Manager, error) {
	manager, err := NewManagerFS(fsys, source)
	if err != nil {
		return nil, err
	}

	for _, name := range requiredTemplates {
		if !manager.TemplateExists(name) {
			return nil, fmt.Errorf("required template not found: %s", name)
		}
	}

	return manager, nil
}

// ExecuteTemplate renders template with data
func (m *Manager) ExecuteTemplate(name string, data any) (string, error) {
	tmpl := m.templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

// TemplateExists checks if template exists
func (m *Manager) TemplateExists(name string) bool {
	return m.templates.Lookup(name) != nil
}
