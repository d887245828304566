// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

package network

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const defaultFallbackResolver = "8.8.8.8:53"
const dnsReadTimeout = 5 * time.Second

// ReadFromSRV is a helper to collect SRV addresses for a given name. The
// system resolver is tried first; on failure the query goes to
// fallbackDNSResolverAddress directly.
func ReadFromSRV(ctx context.Context, service string, protocol string, name string, fallbackDNSResolverAddress string) (addrs []string, err error) {
	if name == "" {
		return nil, nil
	}
	if protocol != "tcp" && protocol != "udp" {
		return nil, fmt.Errorf("unsupported protocol '%s' specified", protocol)
	}

	_, records, sysLookupErr := net.DefaultResolver.LookupSRV(ctx, service, protocol, name)
	if sysLookupErr == nil {
		for _, srv := range records {
			addrs = appendSRVTarget(addrs, srv.Target, srv.Port)
		}
		return addrs, nil
	}

	server := fallbackDNSResolverAddress
	if server == "" {
		server = defaultFallbackResolver
	} else if _, _, splitErr := net.SplitHostPort(server); splitErr != nil {
		server = net.JoinHostPort(server, "53")
	}
	addrs, err = lookupSRV(ctx, server, "_"+service+"._"+protocol+"."+name)
	if err != nil {
		return nil, fmt.Errorf("ReadFromSRV: LookupSRV failed when using system resolver(%v) as well as via %s due to %v", sysLookupErr, server, err)
	}
	return addrs, nil
}

// lookupSRV queries server for the SRV records of the fully qualified name.
func lookupSRV(ctx context.Context, server string, name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.RecursionDesired = true
	msg.SetQuestion(dns.Fqdn(name), dns.TypeSRV)

	var resp *dns.Msg
	var err error
	for _, netType := range []string{"udp", "tcp"} {
		resp, _, err = (&dns.Client{Net: netType, ReadTimeout: dnsReadTimeout}).ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, err
		}
		if !resp.Truncated {
			break
		}
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("DNS error: %s", dns.RcodeToString[resp.Rcode])
	}

	var addrs []string
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			addrs = appendSRVTarget(addrs, srv.Target, srv.Port)
		}
	}
	return addrs, nil
}

func appendSRVTarget(addrs []string, target string, port uint16) []string {
	// empty target won't take us far; skip these
	if target == "" || target == "." {
		return addrs
	}
	// each target ends with a dot; drop it to keep host names canonical
	target = strings.TrimSuffix(target, ".")
	return append(addrs, fmt.Sprintf("%s:%d", target, port))
}
