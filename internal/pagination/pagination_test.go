package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"empty", PageRequest{}, PageRequest{Page: 1, PageSize: 20}},
		{"kept", PageRequest{Page: 3, PageSize: 50}, PageRequest{Page: 3, PageSize: 50}},
		{"clamped", PageRequest{Page: 2, PageSize: 500}, PageRequest{Page: 2, PageSize: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Defaults()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOffset(t *testing.T) {
	p := PageRequest{Page: 3, PageSize: 20}
	assert.Equal(t, 40, p.Offset())
}

func TestNewPageResponse(t *testing.T) {
	req := PageRequest{Page: 1, PageSize: 20}

	resp := NewPageResponse([]int(nil), req, 0)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, 0, resp.TotalPages)

	resp = NewPageResponse([]int{1, 2}, req, 41)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, int64(41), resp.TotalItems)
	assert.Equal(t, 20, resp.PageSize)
}
