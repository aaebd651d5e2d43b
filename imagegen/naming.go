package imagegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxNameRunes is the number of prompt runes kept before sanitizing.
const MaxNameRunes = 60

// SuffixLength is the length of the random suffix appended by UniquePath.
const SuffixLength = 5

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NameFor derives a short filesystem-safe name from a prompt.
//
// The prompt is cut to its first MaxNameRunes runes, every run of whitespace
// becomes a single "-" and any rune that is not a letter, a digit or "-" is
// dropped. The result is deterministic and may be empty.
func NameFor(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > MaxNameRunes {
		runes = runes[:MaxNameRunes]
	}

	var b strings.Builder
	inSpace := false
	for _, r := range runes {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteRune('-')
			}
			inSpace = true
			continue
		case r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
		inSpace = false
	}
	return b.String()
}

// UniquePath returns "<dir>/<name>-<suffix>.png" where suffix is SuffixLength
// random alphanumeric characters. An empty dir means the working directory.
func UniquePath(dir, name string) (string, error) {
	suffix, err := randomSuffix(SuffixLength)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	file := name + "-" + suffix + ".png"
	if dir == "." {
		// filepath.Join would drop the leading "./"
		return "." + string(filepath.Separator) + file, nil
	}
	return filepath.Join(dir, file), nil
}

func randomSuffix(n int) (string, error) {
	max := big.NewInt(int64(len(suffixAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("imagegen: failed to generate file suffix: %w", err)
		}
		out[i] = suffixAlphabet[idx.Int64()]
	}
	return string(out), nil
}
