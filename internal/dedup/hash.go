package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// A "//" preceded by ':' is a URL scheme, not a comment.
var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	htmlComment  = regexp.MustCompile(`(?s)<!--.*?-->`)
	lineComment  = regexp.MustCompile(`(?m)(^|[^:])//.*$`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Normalize strips comments and all whitespace so cosmetic variants collapse.
func Normalize(code string) string {
	out := blockComment.ReplaceAllString(code, "")
	out = htmlComment.ReplaceAllString(out, "")
	out = lineComment.ReplaceAllString(out, "$1")
	return whitespace.ReplaceAllString(out, "")
}

// Hash is the content address of a snippet: SHA-256 over normalized code.
func Hash(code string) string {
	return RawHash(Normalize(code))
}

// RawHash digests code without normalization; it keys published rows.
func RawHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
