package dnsclient

import (
	"bufio"
	"bytes"
	"strings"
)

// parseResolvConf extracts "nameserver <ip>" lines in file order,
// duplicating resolv.conf(5)'s directive without the rest of its syntax
// (search, options, sortlist) — a resolving client only needs the server
// list.
func parseResolvConf(data []byte) []string {
	var nameservers []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "nameserver" {
			nameservers = append(nameservers, fields[1])
		}
	}
	return nameservers
}
