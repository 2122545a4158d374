// Package xmlutil escapes untrusted text before it is embedded in
// XML-delimited prompt templates.
package xmlutil

import (
	"encoding/xml"
	"strings"
)

// Escape returns s with XML special characters escaped. Invalid UTF-8 bytes
// become U+FFFD.
func Escape(s string) string {
	var buf strings.Builder
	// Writes to a strings.Builder never fail.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// Element wraps escaped content in <name>...</name>. name is trusted.
func Element(name, content string) string {
	return "<" + name + ">" + Escape(content) + "</" + name + ">"
}
