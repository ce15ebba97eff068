package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var safeShellWord = regexp.MustCompile(`^[A-Za-z0-9._+:@/=,-]+$`)

// PowerShell reads a bare comma as an array operator and @ as splatting.
var safePowerShellWord = regexp.MustCompile(`^[A-Za-z0-9._+:/=-]+$`)

// EscapeShell makes text safe inside a double-quoted POSIX shell argument by
// prefixing each of $ ` " \ ! with one backslash. The input is scanned once
// byte by byte, so backslashes added here are never escaped again and
// multi-byte UTF-8 sequences pass through untouched.
func EscapeShell(text string) string {
	return escapeWith(text, '\\', isShellSpecial)
}

// EscapePowerShell makes text safe inside a double-quoted PowerShell string
// by prefixing each of ` $ " with a backtick. The typographic quotes “ ” „
// also delimit double-quoted strings in PowerShell and are escaped the same way.
func EscapePowerShell(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isPowerShellSpecial(r) {
			builder.WriteByte('`')
		}
		builder.WriteString(text[i : i+size])
		i += size
	}
	return builder.String()
}

// QuoteShellArg returns value unchanged when it is a plain word and as an
// escaped double-quoted string otherwise.
func QuoteShellArg(value string) string {
	if safeShellWord.MatchString(value) {
		return value
	}
	return `"` + EscapeShell(value) + `"`
}

// QuotePowerShellArg is QuoteShellArg for PowerShell command lines.
func QuotePowerShellArg(value string) string {
	if safePowerShellWord.MatchString(value) {
		return value
	}
	return `"` + EscapePowerShell(value) + `"`
}

func escapeWith(text string, escape byte, special func(byte) bool) string {
	count := 0
	for i := 0; i < len(text); i++ {
		if special(text[i]) {
			count++
		}
	}
	if count == 0 {
		return text
	}
	var builder strings.Builder
	builder.Grow(len(text) + count)
	for i := 0; i < len(text); i++ {
		if special(text[i]) {
			builder.WriteByte(escape)
		}
		builder.WriteByte(text[i])
	}
	return builder.String()
}

func isShellSpecial(r byte) bool {
	switch r {
	case '$', '`', '"', '\\', '!':
		return true
	}
	return false
}

func isPowerShellSpecial(r rune) bool {
	switch r {
	case '`', '$', '"', '\u201c', '\u201d', '\u201e':
		return true
	}
	return false
}
