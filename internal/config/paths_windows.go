//go:build windows

package config

import "os"

var (
	defaultHostsPath      = os.Getenv("WINDIR") + `\System32\drivers\etc\hosts`
	defaultResolvConfPath = "" // Windows has no resolv.conf; resolver reads adapter config instead.
)
