// Package token turns raw text into the normalized tokens that the index
// and every query operate on.
//
// Normalization is three steps: split on any rune that is neither a Unicode
// letter nor a Unicode digit, lowercase the surviving run, and reduce it to
// its Porter stem. Documents and queries go through the same function, so
// equal surface forms always collide on the same token.
package token

import (
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/go-porterstemmer"
)

// Scanner iterates over the tokens of a text without materializing the
// whole sequence. A Scanner is single-use; create a new one to restart.
type Scanner struct {
	rest  string
	token string
}

// NewScanner returns a Scanner positioned before the first token of text.
func NewScanner(text string) *Scanner {
	return &Scanner{rest: text}
}

// Scan advances to the next token, returning false once the input is
// exhausted. Invalid UTF-8 bytes act as delimiters rather than errors.
func (s *Scanner) Scan() bool {
	i := 0
	for i < len(s.rest) {
		r, size := utf8.DecodeRuneInString(s.rest[i:])
		if isTokenRune(r) {
			break
		}
		i += size
	}
	s.rest = s.rest[i:]
	if len(s.rest) == 0 {
		s.token = ""
		return false
	}

	var run []rune
	j := 0
	for j < len(s.rest) {
		r, size := utf8.DecodeRuneInString(s.rest[j:])
		if !isTokenRune(r) {
			break
		}
		run = append(run, unicode.ToLower(r))
		j += size
	}
	s.rest = s.rest[j:]
	s.token = string(porterstemmer.StemWithoutLowerCasing(run))
	return true
}

// Token returns the token produced by the most recent successful Scan.
func (s *Scanner) Token() string {
	return s.token
}

// Tokenize returns every token of text in document order. Identical input
// always yields an identical sequence.
func Tokenize(text string) []string {
	var tokens []string
	for sc := NewScanner(text); sc.Scan(); {
		tokens = append(tokens, sc.Token())
	}
	return tokens
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
