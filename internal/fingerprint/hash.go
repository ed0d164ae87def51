package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/prepdeck/internal/domain"
)

// Normalize joins the question and answer after trimming, lowercasing and
// normalizing line endings. Metadata is left out so re-tagging a question
// does not make it look new.
func Normalize(q domain.Question) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return strings.TrimSpace(p)
	}

	return normalizePart(q.Question) + "\n" + normalizePart(q.Answer)
}

// Hash returns the SHA-256 of the normalized question as a hex string.
func Hash(q domain.Question) string {
	sum := sha256.Sum256([]byte(Normalize(q)))
	return fmt.Sprintf("%x", sum)
}
