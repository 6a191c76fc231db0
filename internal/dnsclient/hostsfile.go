package dnsclient

import (
	"bufio"
	"bytes"
	"net"
	"strings"
)

// hostsEntry is one parsed line of a hosts file: one address, every
// hostname that line lists.
type hostsEntry struct {
	addr  net.IP
	names []string
}

// parseHosts parses the /etc/hosts line format: an address followed by one
// or more whitespace-separated hostnames, "#" starting a comment.
func parseHosts(data []byte) []hostsEntry {
	var entries []hostsEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		ip := net.ParseIP(fields[0])
		if ip == nil {
			continue
		}
		entries = append(entries, hostsEntry{addr: ip, names: fields[1:]})
	}
	return entries
}

// lookupHosts performs the linear scan the design notes call for: for
// large /etc/hosts files a name->entry map would be faster, but hosts
// files are small in practice and a scan keeps parseHosts's output as the
// single source of truth with no secondary index to keep in sync.
func lookupHosts(entries []hostsEntry, hostname string) (net.IP, bool) {
	for _, e := range entries {
		for _, name := range e.names {
			if strings.EqualFold(name, hostname) {
				return e.addr, true
			}
		}
	}
	return nil, false
}
