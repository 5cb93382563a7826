package utils

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const nanoAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateNanoIDWithPrefix returns prefix_<size random chars>.
func GenerateNanoIDWithPrefix(prefix string, size int) string {
	id, err := gonanoid.Generate(nanoAlphabet, size)
	if err != nil {
		panic(err)
	}
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// SyntheticMessageID builds the <seq@host> identifier used for messages
// that arrive without a Message-ID header.
func SyntheticMessageID(seqNum uint32, host string) string {
	return fmt.Sprintf("<%d@%s>", seqNum, host)
}

func NormalizeMessageID(messageID string) string {
	return strings.TrimSpace(messageID)
}
