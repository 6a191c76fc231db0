// Command dnslookup resolves a single hostname through internal/dnsclient,
// ticking the NBIO loop itself until the lookup settles.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hydraio/hydraio/internal/config"
	"github.com/hydraio/hydraio/internal/dnsclient"
	"github.com/hydraio/hydraio/internal/nbio"
)

func main() {
	var (
		host    = flag.String("host", "", "hostname to resolve")
		timeout = flag.Duration("timeout", 5*time.Second, "overall lookup deadline")
		quiet   = flag.Bool("quiet", false, "suppress output (exit status indicates success)")
	)
	flag.Parse()

	if *host == "" {
		fmt.Fprintln(os.Stderr, "dnslookup: -host is required")
		os.Exit(2)
	}

	if err := run(*host, *timeout, *quiet); err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dnslookup: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(host string, timeout time.Duration, quiet bool) error {
	cfgPath := config.ResolveConfigPath("")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loop, err := nbio.NewLoop()
	if err != nil {
		return fmt.Errorf("new loop: %w", err)
	}
	defer loop.Shutdown()

	client := dnsclient.New(loop, dnsclient.Config{
		NameserverTimeout: time.Duration(cfg.DNS.NameserverTimeoutMS) * time.Millisecond,
		MaxTTL:            time.Duration(cfg.DNS.MaxTTLSeconds) * time.Second,
		NegativeTTL:       time.Duration(cfg.DNS.NegativeTTLSeconds) * time.Second,
		HostsPath:         cfg.DNS.HostsPath,
		ResolvConfPath:    cfg.DNS.ResolvConfPath,
		Nameservers:       cfg.DNS.Nameservers,
	})

	deadline := time.Now().Add(timeout)
	ready := false
	client.Init(func(hostsErr, resolvErr dnsclient.InitErrorKind) { ready = true })
	for !ready {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out initializing dns client")
		}
		if err := loop.Tick(); err != nil {
			return fmt.Errorf("loop tick: %w", err)
		}
	}

	var (
		rec        *dnsclient.Record
		resolved   bool
		resolveErr error
	)
	client.Resolve(host, func(r *dnsclient.Record, err error) {
		rec, resolveErr = r, err
		resolved = true
	})
	for !resolved {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out resolving %s", host)
		}
		if err := loop.Tick(); err != nil {
			return fmt.Errorf("loop tick: %w", err)
		}
	}

	if resolveErr != nil {
		return resolveErr
	}
	if !quiet {
		fmt.Printf("%s -> %s (ttl %s)\n", host, rec.Address, rec.TTL)
	}
	return nil
}
