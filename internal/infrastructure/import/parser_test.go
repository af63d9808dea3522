package csvimport

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_QuotedFields(t *testing.T) {
	input := "\xEF\xBB\xBFEmployee, Project ,date\n" +
		`E1,"Acme, Inc.",2024-03-01` + "\n" +
		`E2,"He said ""hi""",2024-03-02` + "\n"

	p, err := NewParser(strings.NewReader(input))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())
	assert.Equal(t, []string{"employee", "project", "date"}, p.Headers())
	assert.Empty(t, p.MissingHeaders("employee", "project"))
	assert.Equal(t, []string{"hours"}, p.MissingHeaders("employee", "hours"))

	row, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 1, row.LineNumber)
	assert.Equal(t, "Acme, Inc.", row.Get("project"))

	row, err = p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, `He said "hi"`, row.Get("project"))

	_, err = p.ReadRow()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, p.Rows())
}

func TestParser_ShortRowsArePadded(t *testing.T) {
	p, err := NewParser(strings.NewReader("a,b,c\n1\n"))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())

	row, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "1", row.Get("a"))
	assert.Equal(t, "", row.Get("c"))
	assert.False(t, row.IsEmpty())
}

func TestParser_MalformedRowIsRecoverable(t *testing.T) {
	p, err := NewParser(strings.NewReader("a,b\n\"open,1\n"))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())

	_, err = p.ReadRow()
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, ErrCodeMalformedRow, rowErr.Code)
	assert.Equal(t, 1, rowErr.Row)
}

func TestParser_Limits(t *testing.T) {
	_, err := NewParser(strings.NewReader("   \n"))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = NewParser(strings.NewReader("a,b\n\xff\xfe\n"))
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	p, err := NewParser(strings.NewReader("a\n1\n2\n3\n"), WithMaxRows(2))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())
	_, err = p.ReadRow()
	require.NoError(t, err)
	_, err = p.ReadRow()
	require.NoError(t, err)
	_, err = p.ReadRow()
	assert.ErrorIs(t, err, ErrTooManyRows)

	p, err = NewParser(strings.NewReader("a\n1\n2\n"), WithMaxRows(2))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())
	for range 2 {
		_, err = p.ReadRow()
		require.NoError(t, err)
	}
	_, err = p.ReadRow()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParser_Delimiter(t *testing.T) {
	p, err := NewParser(strings.NewReader("a;b\nx;y\n"), WithDelimiter(';'))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())
	row, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "y", row.Get("b"))
}
