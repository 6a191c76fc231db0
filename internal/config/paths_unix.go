//go:build !windows

package config

const (
	defaultHostsPath      = "/etc/hosts"
	defaultResolvConfPath = "/etc/resolv.conf"
)
