package kdf

// Numeral writes src, read as an unsigned big-endian integer, as width
// symbols of alphabet. Only the low-order width digits are kept, so the result
// is src modulo len(alphabet)^width. Any alphabet of 2 to 256 symbols works.
func Numeral(src []byte, alphabet string, width int) ([]byte, error) {
	radix := len(alphabet)
	if radix < 2 || radix > 256 {
		return nil, ErrAlphabet
	}
	if width < 0 {
		width = 0
	}

	// little-endian digits, digits[0] is the least significant one
	digits := make([]int, width)
	defer func() {
		for i := range digits {
			digits[i] = 0
		}
	}()

	for _, b := range src {
		carry := int(b)
		for i := range digits {
			v := digits[i]<<8 + carry
			digits[i] = v % radix
			carry = v / radix
		}
	}

	out := make([]byte, width)
	for i, d := range digits {
		out[width-1-i] = alphabet[d]
	}
	return out, nil
}
