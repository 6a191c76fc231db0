package httpserver

import (
	"fmt"
	"strings"
	"time"
)

// SameSite is the Set-Cookie SameSite attribute.
type SameSite int

const (
	SameSiteDefault SameSite = iota
	SameSiteStrict
	SameSiteLax
	SameSiteNone
)

func (s SameSite) String() string {
	switch s {
	case SameSiteStrict:
		return "Strict"
	case SameSiteLax:
		return "Lax"
	case SameSiteNone:
		return "None"
	default:
		return ""
	}
}

// Cookie describes one Set-Cookie response header, per RFC 6265 §4.1.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time // zero means no Expires attribute
	MaxAge   int       // 0 means no Max-Age attribute; negative means "delete"
	HttpOnly bool
	Secure   bool
	SameSite SameSite
}

// imfFixdate formats t per RFC 7231 §7.1.1.1, the format RFC 6265 requires
// for Set-Cookie's Expires attribute.
func imfFixdate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

// String serializes the cookie to a Set-Cookie header value.
func (c Cookie) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", c.Name, c.Value)
	if c.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", c.Path)
	}
	if c.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", c.Domain)
	}
	if !c.Expires.IsZero() {
		fmt.Fprintf(&b, "; Expires=%s", imfFixdate(c.Expires))
	}
	if c.MaxAge != 0 {
		fmt.Fprintf(&b, "; Max-Age=%d", c.MaxAge)
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if s := c.SameSite.String(); s != "" {
		fmt.Fprintf(&b, "; SameSite=%s", s)
	}
	return b.String()
}
