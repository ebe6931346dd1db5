package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Helpers(t *testing.T) {
	t.Run("Test ConvertBytesToString", func(t *testing.T) {
		assert.Equal(t, "0x", ConvertBytesToString(nil))
		assert.Equal(t, "0x6d6f646c", ConvertBytesToString([]byte("modl")))
	})
	t.Run("Test AreAddressesEqual", func(t *testing.T) {
		assert.True(t, AreAddressesEqual("0xFFFFFFFF0000000000000000000000000016CD23", "0xffffffff0000000000000000000000000016cd23"))
		assert.False(t, AreAddressesEqual("0xffffffff0000000000000000000000000016cd23", "0xffffffff0000000000000000000000000016cd24"))
	})
}
