package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NumericCode returns a uniformly random decimal code of exactly n digits
// (leading digit non-zero), e.g. 6 digits for login codes.
func NumericCode(n int) (string, error) {
	if n < 1 || n > 18 {
		return "", fmt.Errorf("code length %d out of range", n)
	}
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(lo, big.NewInt(10)), lo)
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return v.Add(v, lo).String(), nil
}
