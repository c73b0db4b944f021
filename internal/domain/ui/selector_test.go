package ui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	cases := map[string]Selector{
		"//button[text()='Book Now']": {Kind: XPath, Value: "//button[text()='Book Now']"},
		"(//a)[1]":                    {Kind: XPath, Value: "(//a)[1]"},
		"xpath=//div":                 {Kind: XPath, Value: "//div"},
		"css=input[name=email]":       {Kind: CSS, Value: "input[name=email]"},
		"#login .submit":              {Kind: CSS, Value: "#login .submit"},
		"input[name=email]":           {Kind: CSS, Value: "input[name=email]"},
	}
	for raw, want := range cases {
		got, err := ParseSelector(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	s, err := ParseSelector("  ")
	require.NoError(t, err)
	assert.True(t, s.IsZero())
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'Bike 3'", XPathLiteral("Bike 3"))
	assert.Equal(t, `"You don't have a series"`, XPathLiteral("You don't have a series"))
	assert.Equal(t, `concat('say "hi"', "'", 's')`, XPathLiteral(`say "hi"'s`))
}

func TestTextTemplate(t *testing.T) {
	sel := TextTemplate("//*[normalize-space(text())=%s]").With("Downtown")
	assert.Equal(t, Selector{Kind: XPath, Value: "//*[normalize-space(text())='Downtown']"}, sel)
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(fmt.Errorf("x: %w", ErrTimeout)))
	assert.True(t, Transient(ErrNotFound))
	assert.False(t, Transient(errors.New("connection reset")))
	assert.False(t, Transient(nil))
}

type recorder struct{ calls []string }

func (r *recorder) Hover(context.Context) error                          { r.calls = append(r.calls, "hover"); return nil }
func (r *recorder) Click(context.Context) error                          { r.calls = append(r.calls, "click"); return nil }
func (r *recorder) ScrollIntoView(context.Context) error                 { r.calls = append(r.calls, "scroll"); return nil }
func (r *recorder) Text(context.Context) (string, error)                 { return "", nil }
func (r *recorder) Type(context.Context, string) error                   { return nil }
func (r *recorder) Attribute(context.Context, string) (string, bool, error) { return "", false, nil }
func (r *recorder) Style(context.Context, string) (string, error)        { return "", nil }

func TestRevealStrategies(t *testing.T) {
	for name, want := range map[string]string{"hover": "hover", "": "hover", "direct": "click", "scroll-into-view": "scroll"} {
		s, err := ParseReveal(name)
		require.NoError(t, err)
		r := &recorder{}
		require.NoError(t, s.Reveal(context.Background(), r))
		assert.Equal(t, []string{want}, r.calls, name)
	}
	_, err := ParseReveal("wiggle")
	assert.Error(t, err)
}
