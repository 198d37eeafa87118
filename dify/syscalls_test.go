package dify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSyscalls(t *testing.T) {
	got := allSyscalls()

	assert.True(t, strings.HasPrefix(got, "0,1,2,"))
	assert.True(t, strings.HasSuffix(got, ",455,456"))

	nums := strings.Split(got, ",")
	require.Len(t, nums, 457)
}
