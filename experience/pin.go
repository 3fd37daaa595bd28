package experience

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const pinLen = 4

var pinSpace = big.NewInt(10000)

// weakPINs are refused as custom PINs and never generated.
var weakPINs = map[string]bool{
	"0000": true, "1111": true, "2222": true, "3333": true, "4444": true,
	"5555": true, "6666": true, "7777": true, "8888": true, "9999": true,
	"1234": true, "4321": true, "0123": true, "9876": true, "1122": true, "2211": true,
}

// WeakPIN reports whether pin is on the blocklist of easily guessed PINs.
func WeakPIN(pin string) bool {
	return weakPINs[pin]
}

// ValidCustomPIN reports whether a creator supplied PIN can be used as is: exactly 4 ASCII digits and
// not weak.
func ValidCustomPIN(pin string) bool {
	if len(pin) != pinLen {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return !WeakPIN(pin)
}

// GeneratePIN draws a PIN uniformly from the non-weak 4-digit PINs using randomness from r; nil r means
// crypto/rand.
func GeneratePIN(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	for {
		n, err := rand.Int(r, pinSpace)
		if err != nil {
			return "", fmt.Errorf("error reading randomness: %w", err)
		}
		pin := fmt.Sprintf("%04d", n.Int64())
		// rejection keeps the remaining PINs equally likely
		if !WeakPIN(pin) {
			return pin, nil
		}
	}
}
