package uvci

import "strings"

// checksumAlphabet is the character set the check character is computed
// over. Characters outside it are ignored.
const checksumAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789/:"

// Checksum returns the Luhn mod-38 check character for s.
//
// Characters are scanned right to left; each in-alphabet character's index is
// multiplied by an alternating factor starting at 2, the product is folded
// into quotient+remainder base 38, and summed. Out-of-alphabet characters do
// not advance the factor.
func Checksum(s string) byte {
	n := len(checksumAlphabet)
	factor := 2
	sum := 0

	for i := len(s) - 1; i >= 0; i-- {
		idx := strings.IndexByte(checksumAlphabet, s[i])
		if idx < 0 {
			continue
		}
		addend := factor * idx
		if factor == 2 {
			factor = 1
		} else {
			factor = 2
		}
		sum += addend/n + addend%n
	}

	return checksumAlphabet[(n-sum%n)%n]
}

// ValidChecksum reports whether value ends in "#<c>" where c is the
// checksum of everything before the '#'.
func ValidChecksum(value string) bool {
	i := strings.LastIndexByte(value, '#')
	if i < 0 || i != len(value)-2 {
		return false
	}
	return Checksum(value[:i]) == value[i+1]
}
