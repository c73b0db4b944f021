package ui

import (
	"fmt"
	"strings"
)

type SelectorKind string

const (
	XPath SelectorKind = "xpath"
	CSS   SelectorKind = "css"
)

// Selector describes how to locate an element.
type Selector struct {
	Kind  SelectorKind
	Value string
}

func (s Selector) String() string { return string(s.Kind) + "=" + s.Value }

func (s Selector) IsZero() bool { return s.Value == "" }

// ParseSelector accepts "xpath=...", "css=..." or a bare expression. Bare
// expressions starting with "/" or "(" are XPath, anything else is CSS.
func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selector{}, nil
	}
	if k, v, ok := strings.Cut(raw, "="); ok {
		switch SelectorKind(strings.ToLower(k)) {
		case XPath:
			return Selector{Kind: XPath, Value: v}, nil
		case CSS:
			return Selector{Kind: CSS, Value: v}, nil
		}
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "(") {
		return Selector{Kind: XPath, Value: raw}, nil
	}
	return Selector{Kind: CSS, Value: raw}, nil
}

func MustSelector(raw string) Selector {
	s, err := ParseSelector(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// XPathLiteral quotes s as an XPath string literal. XPath 1.0 has no escape
// sequences, so strings holding both quote kinds are built with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// TextTemplate is an XPath with a single %s verb that receives a quoted
// literal, e.g. "//a[normalize-space(.)=%s]".
type TextTemplate string

func (t TextTemplate) With(text string) Selector {
	return Selector{Kind: XPath, Value: fmt.Sprintf(string(t), XPathLiteral(text))}
}
