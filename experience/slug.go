package experience

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
)

var (
	adjectives = []string{"sweet", "lovely", "romantic", "beautiful", "magical", "dreamy", "tender", "precious"}
	nouns      = []string{"heart", "love", "kiss", "hug", "smile", "moment", "memory", "feeling"}

	uniqueIDPattern = regexp.MustCompile(`^[a-z]+-[a-z]+-[0-9]{4}$`)
)

// NewUniqueID composes a readable experience id `<adjective>-<noun>-<NNNN>` using randomness from r;
// nil r means crypto/rand.
func NewUniqueID(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	adj, err := pick(r, int64(len(adjectives)))
	if err != nil {
		return "", err
	}
	noun, err := pick(r, int64(len(nouns)))
	if err != nil {
		return "", err
	}
	num, err := pick(r, 10000)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", adjectives[adj], nouns[noun], num), nil
}

// WellFormedUniqueID reports whether id has the shape of a generated experience id. Handlers use it to
// turn away junk ids before touching storage.
func WellFormedUniqueID(id string) bool {
	return uniqueIDPattern.MatchString(id)
}

func pick(r io.Reader, n int64) (int64, error) {
	v, err := rand.Int(r, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("error reading randomness: %w", err)
	}
	return v.Int64(), nil
}
