package httpserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCookie_String_MinimalNameValue(t *testing.T) {
	c := Cookie{Name: "session", Value: "abc123"}
	assert.Equal(t, "session=abc123", c.String())
}

func TestCookie_String_AllAttributes(t *testing.T) {
	c := Cookie{
		Name:     "session",
		Value:    "abc123",
		Path:     "/",
		Domain:   "example.com",
		Expires:  time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC),
		MaxAge:   3600,
		Secure:   true,
		HttpOnly: true,
		SameSite: SameSiteLax,
	}
	got := c.String()
	assert.Equal(t,
		"session=abc123; Path=/; Domain=example.com; "+
			"Expires=Thu, 01 Jan 2026 12:00:00 GMT; Max-Age=3600; "+
			"Secure; HttpOnly; SameSite=Lax",
		got)
}

func TestCookie_String_NegativeMaxAgeDeletes(t *testing.T) {
	c := Cookie{Name: "session", Value: "", MaxAge: -1}
	assert.Contains(t, c.String(), "Max-Age=-1")
}

func TestSameSite_String(t *testing.T) {
	assert.Equal(t, "Strict", SameSiteStrict.String())
	assert.Equal(t, "Lax", SameSiteLax.String())
	assert.Equal(t, "None", SameSiteNone.String())
	assert.Equal(t, "", SameSiteDefault.String())
}
