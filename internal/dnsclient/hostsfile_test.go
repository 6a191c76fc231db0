package dnsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHosts = `
# comment line
127.0.0.1	localhost
::1		localhost ip6-localhost ip6-loopback

192.168.1.10 db.internal db # trailing comment
`

func TestParseHosts(t *testing.T) {
	entries := parseHosts([]byte(sampleHosts))
	require.Len(t, entries, 3)

	assert.Equal(t, "127.0.0.1", entries[0].addr.String())
	assert.Equal(t, []string{"localhost"}, entries[0].names)

	assert.Equal(t, []string{"localhost", "ip6-localhost", "ip6-loopback"}, entries[1].names)

	assert.Equal(t, "192.168.1.10", entries[2].addr.String())
	assert.Equal(t, []string{"db.internal", "db"}, entries[2].names)
}

func TestLookupHosts_CaseInsensitive(t *testing.T) {
	entries := parseHosts([]byte(sampleHosts))

	ip, ok := lookupHosts(entries, "DB.Internal")
	require.True(t, ok)
	assert.Equal(t, "192.168.1.10", ip.String())

	_, ok = lookupHosts(entries, "nowhere.example")
	assert.False(t, ok)
}

func TestParseHosts_IgnoresMalformedLines(t *testing.T) {
	data := "not-an-ip somehost\nonlyonefield\n"
	entries := parseHosts([]byte(data))
	assert.Empty(t, entries)
}

func TestParseHosts_EmptyInput(t *testing.T) {
	assert.Empty(t, parseHosts(nil))
}
