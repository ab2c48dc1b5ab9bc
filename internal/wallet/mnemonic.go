// Package wallet generates and imports the offline key material for a UCC
// account: BIP39 mnemonics, BIP44 derivation and raw private keys.
package wallet

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	"github.com/mrz1836/uccwallet/internal/keycrypto"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// MnemonicWords is the length of generated mnemonics.
const MnemonicWords = 24

// MaxTypoDistance is the largest edit distance offered as a suggestion.
const MaxTypoDistance = 2

//nolint:gochecknoglobals // compiled once
var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)

	wordIndexOnce sync.Once
	wordIndex     map[string]struct{}
)

// GenerateMnemonic creates a new 24-word mnemonic from 256 bits of entropy.
func GenerateMnemonic() (string, error) {
	entropy, err := keycrypto.RandomBytes(32)
	if err != nil {
		return "", walleterr.Wrap(err, "reading entropy")
	}
	defer keycrypto.Zero(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", walleterr.Wrap(err, "building mnemonic")
	}
	return mnemonic, nil
}

// ValidateMnemonic checks word count, words and checksum. The returned
// error carries typo suggestions when any word is not in the word list.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonicInput(mnemonic)
	words := strings.Fields(normalized)

	switch len(words) {
	case 12, 15, 18, 21, 24:
	default:
		return walleterr.WithDetails(walleterr.ErrInvalidMnemonic, map[string]string{
			"words": strconv.Itoa(len(words)),
		})
	}

	if typos := DetectTypos(normalized); len(typos) > 0 {
		return walleterr.WithSuggestion(walleterr.ErrInvalidMnemonic, FormatTypoSuggestions(typos))
	}

	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return walleterr.WithSuggestion(walleterr.ErrInvalidMnemonic, "checksum mismatch - check the word order")
	}
	return nil
}

// NormalizeMnemonicInput lowercases the phrase, strips list numbering,
// bullets and commas, and collapses whitespace.
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// MnemonicToSeed validates the phrase and returns its 64-byte seed in
// locked memory. The caller must Destroy it.
func MnemonicToSeed(mnemonic, passphrase string) (*keycrypto.SecureBytes, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(NormalizeMnemonicInput(mnemonic), passphrase)
	defer keycrypto.Zero(seed)
	return keycrypto.SecureBytesFromSlice(seed)
}

// IsValidWord reports whether word is in the English word list.
func IsValidWord(word string) bool {
	wordIndexOnce.Do(func() {
		list := bip39.GetWordList()
		wordIndex = make(map[string]struct{}, len(list))
		for _, w := range list {
			wordIndex[w] = struct{}{}
		}
	})
	_, ok := wordIndex[strings.ToLower(word)]
	return ok
}

// TypoInfo describes one word that is not in the word list.
type TypoInfo struct {
	Index      int
	Word       string
	Suggestion string
	Distance   int
}

// SuggestWord returns the closest list word within MaxTypoDistance, or "".
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string
	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist, suggestion = dist, word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos lists every word of mnemonic missing from the word list.
func DetectTypos(mnemonic string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonicInput(mnemonic)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line, 1-indexed.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, typo := range typos {
		line := "Word " + strconv.Itoa(typo.Index+1) + ": '" + typo.Word + "'"
		if typo.Suggestion != "" {
			line += " - did you mean '" + typo.Suggestion + "'?"
		} else {
			line += " is not a valid BIP39 word"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
