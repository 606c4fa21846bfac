package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(6, 10, 48)
	assert.Equal(t, 5, p.Page)
	assert.Equal(t, 5, p.TotalPages)
	assert.Equal(t, 40, p.Offset())

	p = NewPagination(0, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PerPage)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(1, 5000, 3)
	assert.Equal(t, MaxPageSize, p.PerPage)
}
