package registration

import (
	"crypto/rand"
	"fmt"
)

const (
	TicketCodeLength   = 8
	TicketCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// TicketCodeGenerator returns a fresh candidate code. Uniqueness is not its
// concern; the store rejects codes that are already issued.
type TicketCodeGenerator func() (string, error)

// largest multiple of len(TicketCodeAlphabet) that fits in a byte; bytes at or
// above it are rejected to keep the draw uniform.
const rejectionBound = 256 - 256%len(TicketCodeAlphabet)

func NewTicketCode() (string, error) {
	code := make([]byte, 0, TicketCodeLength)
	buf := make([]byte, TicketCodeLength*2)

	for len(code) < TicketCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectionBound {
				continue
			}
			code = append(code, TicketCodeAlphabet[int(b)%len(TicketCodeAlphabet)])
			if len(code) == TicketCodeLength {
				break
			}
		}
	}

	return string(code), nil
}

func IsValidTicketCode(code string) bool {
	if len(code) != TicketCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
