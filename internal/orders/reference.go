package orders

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

const (
	// ReferencePrefix tags every generated reference number.
	ReferencePrefix = "CRAFT_"

	referenceLength = 6

	// referenceAlphabet drops the visually ambiguous characters I, O, 0, 1,
	// and Q so references survive handwriting and phone calls.
	referenceAlphabet = "ABCDEFGHJKLMNPRSTUVWXYZ23456789"
)

// ReferencePattern is the wire format callers match against notification
// text. It is deliberately wider than the generation alphabet.
var ReferencePattern = regexp.MustCompile(`\bCRAFT_[A-HJ-NP-Z2-9]{6}\b`)

// NewReferenceNumber produces a short human-readable code. Uniqueness is
// enforced by the orders.reference_number constraint, not here.
func NewReferenceNumber() (string, error) {
	buf := make([]byte, referenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating reference: %w", err)
	}
	out := make([]byte, referenceLength)
	for i, b := range buf {
		out[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return ReferencePrefix + string(out), nil
}
