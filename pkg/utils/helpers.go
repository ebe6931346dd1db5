package utils

import (
	"encoding/hex"
	"strings"
)

func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

func ConvertBytesToString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
