package util

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

var ten = big.NewInt(10)

// RandomDigits returns a string of n random decimal digits. It may start with zero.
func RandomDigits(n int) (string, error) {

	if n <= 0 {
		return "", errors.New("RandomDigits: n must be positive")
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
