package templates

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerFS(t *testing.T) {
	fsys := fstest.MapFS{
		"greet.tmpl":        {Data: []byte(`{{ title .Name }} moved {{ pct .Change }} ({{ yesno .Up }})`)},
		"nested/item.tmpl":  {Data: []byte(`{{ add .I 1 }}. {{ f2 .V }}`)},
		"nested/README.txt": {Data: []byte(`ignored`)},
	}

	m, err := NewManagerWithValidation(fsys, "memory", []string{"greet.tmpl", "item.tmpl"})
	require.NoError(t, err)

	out, err := m.ExecuteTemplate("greet.tmpl", map[string]any{
		"Name":   "moving_average weight",
		"Change": 1.234,
		"Up":     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Moving Average Weight moved 1.23% (Yes)", out)

	out, err = m.ExecuteTemplate("item.tmpl", map[string]any{"I": 0, "V": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "1. 2.00", out)

	_, err = m.ExecuteTemplate("missing.tmpl", nil)
	assert.Error(t, err)
	assert.False(t, m.TemplateExists("README.txt"))
}

func TestManagerFSEmpty(t *testing.T) {
	_, err := NewManagerFS(fstest.MapFS{}, "empty")
	assert.Error(t, err)

	_, err = NewManagerWithValidation(fstest.MapFS{"a.tmpl": {Data: []byte("a")}}, "one", []string{"b.tmpl"})
	assert.Error(t, err)
}
