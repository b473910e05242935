package core

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MessageNormalizer turns the reconstructed message text of a group into the
// value stored on the Transaction. It must return BlankMessage for empty input.
type MessageNormalizer func(string) string

// blankForms are message values that carry no information.
var blankForms = map[string]bool{
	"":   true,
	",":  true,
	",,": true,
	`""`: true,
	"''": true,
}

// NormalizeMessage trims the message and strips enclosing quotes.
// Empty or whitespace-only text becomes BlankMessage.
func NormalizeMessage(s string) string {
	s = strings.TrimSpace(s)
	if blankForms[s] {
		return BlankMessage
	}
	if len(s) > 1 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return BlankMessage
	}
	return s
}

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	strayQuoteSplit = regexp.MustCompile(`"\s*,`)
	trailingPunct   = regexp.MustCompile(`[\s,;:."-]+$`)
	acronymToken    = regexp.MustCompile(`\b[A-Z]{2,4}\b`)
	shortWord       = regexp.MustCompile(`\b[a-z]{2,4}\b`)

	otpPrompts = []string{
		"kindly enter the otp",
		"please enter the otp",
		"please input the otp",
	}
)

// CanonicalMessage folds provider messages into comparable buckets so that
// cosmetic variants ("OTP_EXPIRED", "otp expired.", `"Otp expired",`) rank
// together. Short all-caps acronyms such as OTP or PIN keep their case.
func CanonicalMessage(s string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if blankForms[cleaned] {
		return BlankMessage
	}

	line, _, _ := strings.Cut(cleaned, "\n")
	line = strings.TrimSpace(line)
	if len(line) > 1 && strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) {
		line = strings.TrimSpace(line[1 : len(line)-1])
	}
	line = strings.TrimSpace(strings.Trim(line, `"`))

	switch line {
	case "", ",", ",,", ".", "-":
		return BlankMessage
	}

	line = strings.ReplaceAll(line, "\u00a0", " ")
	line = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))

	// Drop fragments of a neighbouring column glued on by a broken quote.
	if parts := strayQuoteSplit.Split(line, 2); len(parts) > 1 && strings.TrimSpace(parts[0]) != "" {
		line = strings.TrimSpace(parts[0])
	}

	line = strings.TrimSpace(trailingPunct.ReplaceAllString(line, ""))

	if strings.Contains(line, "_") {
		if candidate := strings.TrimSpace(strings.ReplaceAll(line, "_", " ")); candidate != "" {
			if strings.ToUpper(line) == line {
				line = cases.Title(language.Und).String(candidate)
			} else {
				line = candidate
			}
		}
	}

	lower := strings.ToLower(line)
	for _, prompt := range otpPrompts {
		if strings.HasPrefix(lower, prompt) {
			return "OTP verification required"
		}
	}

	lower = restoreAcronyms(line, lower)

	if lower == "" {
		return BlankMessage
	}
	first, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(first)) + lower[size:]
}

// restoreAcronyms puts the acronyms found in line back into their upper-case
// form wherever the same word appears in lower.
func restoreAcronyms(line, lower string) string {
	tokens := acronymToken.FindAllString(line, -1)
	if len(tokens) == 0 {
		return lower
	}
	acronyms := make(map[string]string, len(tokens))
	for _, token := range tokens {
		acronyms[strings.ToLower(token)] = token
	}
	return shortWord.ReplaceAllStringFunc(lower, func(word string) string {
		if acronym, ok := acronyms[word]; ok {
			return acronym
		}
		return word
	})
}
