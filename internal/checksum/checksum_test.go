package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SumString(""))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", Sum([]byte("hello")))
	assert.Len(t, SumString(string(make([]byte, 1000))), 64)
	assert.NotEqual(t, SumString("a"), SumString("A"))
}
