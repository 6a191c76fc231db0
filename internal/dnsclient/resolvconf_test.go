package dnsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleResolvConf = `
; leading comment
# another comment
domain example.com
nameserver 8.8.8.8
nameserver 2001:4860:4860::8888
search example.com corp.example.com
nameserver 1.1.1.1
options timeout:2
`

func TestParseResolvConf(t *testing.T) {
	got := parseResolvConf([]byte(sampleResolvConf))
	assert.Equal(t, []string{"8.8.8.8", "2001:4860:4860::8888", "1.1.1.1"}, got)
}

func TestParseResolvConf_NoNameservers(t *testing.T) {
	got := parseResolvConf([]byte("domain example.com\nsearch example.com\n"))
	assert.Empty(t, got)
}

func TestParseResolvConf_EmptyInput(t *testing.T) {
	assert.Empty(t, parseResolvConf(nil))
}
