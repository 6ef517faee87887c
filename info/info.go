// SPDX-License-Identifier: GPL-2.0-or-later

// Package info handles the \key\value strings exchanged as userinfo and
// serverinfo.
package info

import (
	"strings"

	"goquake2/conlog"
)

const (
	MaxKey         = 64
	MaxValue       = 64
	MaxInfoString  = 512
	forbiddenChars = "\\\";"
)

// ValueForKey returns the value stored for key or an empty string.
func ValueForKey(s, key string) string {
	s = strings.TrimPrefix(s, `\`)
	parts := strings.Split(s, `\`)
	for i := 0; i+1 < len(parts); i += 2 {
		if parts[i] == key {
			return parts[i+1]
		}
	}
	return ""
}

// RemoveKey returns s without key.
func RemoveKey(s, key string) string {
	if strings.Contains(key, `\`) {
		return s
	}
	s = strings.TrimPrefix(s, `\`)
	if s == "" {
		return ""
	}
	parts := strings.Split(s, `\`)
	var b strings.Builder
	for i := 0; i+1 < len(parts); i += 2 {
		if parts[i] == key {
			continue
		}
		b.WriteString(`\`)
		b.WriteString(parts[i])
		b.WriteString(`\`)
		b.WriteString(parts[i+1])
	}
	return b.String()
}

// Validate reports whether s is usable as an info string.
func Validate(s string) bool {
	return !strings.ContainsAny(s, `";`)
}

// ValidPart reports whether a key or value can be stored.
func ValidPart(s string) bool {
	return !strings.ContainsAny(s, forbiddenChars)
}

// SetValueForKey returns s with key set to value. An empty value removes the
// key. Invalid keys or values, or a result that would be too long, leave s
// unchanged and print the reason.
func SetValueForKey(s, key, value string) string {
	if !ValidPart(key) || !ValidPart(value) {
		conlog.Printf("Can't use keys or values with a \\, \" or ;\n")
		return s
	}
	if len(key) > MaxKey-1 || len(value) > MaxValue-1 {
		conlog.Printf("Keys and values must be < %d characters.\n", MaxKey)
		return s
	}
	s = RemoveKey(s, key)
	if value == "" {
		return s
	}
	n := `\` + key + `\` + value
	if len(n)+len(s) > MaxInfoString {
		conlog.Printf("Info string length exceeded\n")
		return s
	}
	var b strings.Builder
	b.WriteString(s)
	// only printable ascii survives
	for i := 0; i < len(n); i++ {
		c := n[i] & 127
		if c >= 32 && c < 127 {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Print writes the pairs of s as an aligned two column list.
func Print(s string) {
	s = strings.TrimPrefix(s, `\`)
	if s == "" {
		return
	}
	parts := strings.Split(s, `\`)
	for i := 0; i < len(parts); i += 2 {
		value := "MISSING VALUE"
		if i+1 < len(parts) {
			value = parts[i+1]
		}
		conlog.Printf("%-20s%s\n", parts[i], value)
	}
}
