// Package sanitize normalizes and validates untrusted field values before they
// are trusted by the order and callback models. All functions are pure.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	wsRun      = regexp.MustCompile(`[\r\n\t ]+`)
	pctTriplet = regexp.MustCompile(`(?i)%[a-f0-9]{2}`)
	markupTag  = regexp.MustCompile(`<[^>]*>?`)
	amountJunk = regexp.MustCompile(`[^0-9+\-.]`)
)

// urlSafe is the set of characters allowed to survive URL sanitization, beyond
// letters and digits.
const urlSafe = "$-_.+!*'(),{}|\\^~[]`<>#%\";/?:@&="

// Text cleans an untrusted string: invalid UTF-8 becomes empty, a lone '<' not
// opening a tag is entity-escaped, markup tags are stripped, whitespace runs
// collapse to single spaces, percent-encoded triplets and non-printable bytes
// are removed.
func Text(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	s = escapeLoneLT(s)
	s = markupTag.ReplaceAllString(s, "")
	s = wsRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = pctTriplet.ReplaceAllString(s, "")
	return printableASCII(s)
}

// escapeLoneLT replaces '<' with "&lt;" when the following byte cannot start a
// tag, so the tag stripper below does not eat legitimate text.
func escapeLoneLT(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '<' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && tagStart(s[i+1]) {
			b.WriteByte(c)
			continue
		}
		b.WriteString("&lt;")
	}
	return b.String()
}

func tagStart(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '/', c == '?', c == '!', c == '%':
		return true
	}
	return false
}

func printableASCII(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x20 && s[i] <= 0x7e {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// URL strips every character that may not appear in a URL. Well-formedness is
// checked separately with ValidURL.
func URL(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte(urlSafe, c) >= 0:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ValidURL reports whether s is an absolute http(s) URL with a host.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// AmountString keeps only digits, signs and decimal points from s.
func AmountString(s string) string {
	return amountJunk.ReplaceAllString(s, "")
}

// Amount sanitizes s and parses it as an exact decimal. The second return is
// false when nothing numeric remains.
func Amount(s string) (decimal.Decimal, bool) {
	cleaned := AmountString(s)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Currency sanitizes s as text and requires exactly three characters.
func Currency(s string) (string, bool) {
	c := Text(s)
	return c, len(c) == 3
}

// FormatAmount renders d with up to eight fractional digits, trailing zeros
// trimmed, always keeping at least one fractional digit ("1" -> "1.0").
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(8)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
