package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "22", "333"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 22, 333}, ids)

	for _, bad := range [][]string{nil, {"x"}, {"1", "-2"}, {"0"}, {"1.5"}} {
		_, err := parseIDs(bad)
		assert.Error(t, err, "%v", bad)
	}
}
