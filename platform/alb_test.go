package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathPatterns(t *testing.T) {
	tests := []struct {
		prefix string
		want   []string
	}{
		{"/api", []string{"/api", "/api/*"}},
		{"/console/api", []string{"/console/api", "/console/api/*"}},
		{"/v1", []string{"/v1", "/v1/*"}},
		{"/files", []string{"/files", "/files/*"}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, PathPatterns(tt.prefix))
		})
	}
}
