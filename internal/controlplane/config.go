// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package controlplane loads the HCL configuration file that seeds and
// mutates classify.Tables' control-plane-owned tables (whitelist,
// blacklist, ACL bitmap, icmp_allow, panic, global_bypass, cfg). It is an
// external collaborator to the classification CORE in the same sense
// spec.md §1 describes the CLI and config tooling: it owns the file and
// the decode, classify.Tables owns the runtime representation.
package controlplane

import (
	"fmt"
	"net"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/errors"
	"flowgate.dev/flowgate/internal/logging"
)

// fileConfig is the HCL schema (SPEC_FULL.md §10.3):
//
//	cfg { ns = 1000000; burst = 100 }
//	whitelist "8.8.8.8" {}
//	blacklist "10.0.0.0/8" {}
//	acl { ports = [22, 53] }
//	icmp_allow { family = 2; type = 11; code = 0 }
//	panic = false
//	global_bypass = false
type fileConfig struct {
	Cfg          *cfgBlock   `hcl:"cfg,block"`
	Whitelist    []addrBlock `hcl:"whitelist,block"`
	Blacklist    []addrBlock `hcl:"blacklist,block"`
	ACL          *aclBlock   `hcl:"acl,block"`
	ICMPAllow    []icmpBlock `hcl:"icmp_allow,block"`
	Panic        *bool       `hcl:"panic,optional"`
	GlobalBypass *bool       `hcl:"global_bypass,optional"`
}

type cfgBlock struct {
	NS    *uint64 `hcl:"ns,optional"`
	Burst *uint32 `hcl:"burst,optional"`
}

type addrBlock struct {
	Addr string `hcl:"addr,label"`
}

type aclBlock struct {
	Ports []int `hcl:"ports"`
}

type icmpBlock struct {
	Family int `hcl:"family"`
	Type   int `hcl:"type"`
	Code   int `hcl:"code"`
}

// Load decodes path and applies every table it describes to t. Loading is
// a control-plane operation: it never blocks the packet path (spec.md
// §5), and a partially-invalid file is rejected wholesale rather than
// applied partially, since a half-applied whitelist is worse than the
// previous one.
func Load(path string, t *classify.Tables, logger *logging.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "read control-plane config")
	}

	var fc fileConfig
	if err := hclsimple.Decode(path, data, nil, &fc); err != nil {
		return errors.Wrap(err, errors.KindValidation, "decode control-plane config")
	}

	// Apply to a throwaway Tables first so an invalid entry is reported
	// before t is touched.
	if err := apply(&fc, classify.NewTables()); err != nil {
		return err
	}
	if err := apply(&fc, t); err != nil {
		return err
	}

	logger.Info("loaded control-plane config",
		"path", path,
		"whitelist", len(fc.Whitelist),
		"blacklist", len(fc.Blacklist))
	return nil
}

func apply(fc *fileConfig, t *classify.Tables) error {
	for _, w := range fc.Whitelist {
		if err := addAddr(t.WhitelistAddV4, t.WhitelistAddV6, w.Addr); err != nil {
			return errors.Wrapf(err, errors.KindValidation, "whitelist %q", w.Addr)
		}
	}
	for _, b := range fc.Blacklist {
		if err := addAddrOrCIDR(t, b.Addr); err != nil {
			return errors.Wrapf(err, errors.KindValidation, "blacklist %q", b.Addr)
		}
	}
	if fc.ACL != nil {
		for _, port := range fc.ACL.Ports {
			if port < 0 || port >= 64 {
				return errors.Errorf(errors.KindValidation, "acl port %d out of range [0,64)", port)
			}
			t.AllowACLPort(uint16(port))
		}
	}
	for _, a := range fc.ICMPAllow {
		t.AllowICMP(uint8(a.Family), uint8(a.Type), uint8(a.Code))
	}
	if fc.Panic != nil {
		t.SetPanic(*fc.Panic)
	}
	if fc.GlobalBypass != nil {
		t.SetGlobalBypass(*fc.GlobalBypass)
	}
	if fc.Cfg != nil {
		cfg := classify.Config{}
		if fc.Cfg.NS != nil {
			cfg.NS = *fc.Cfg.NS
		}
		if fc.Cfg.Burst != nil {
			cfg.Burst = *fc.Cfg.Burst
		}
		t.SetConfig(cfg)
	}
	return nil
}

// addAddr resolves addr (IPv4 or IPv6 textual form, no CIDR) and calls the
// matching v4/v6 adder. This is also the whitelist CLI's resolution rule
// (spec.md §6).
func addAddr(addV4 func(uint32), addV6 func([16]byte), addr string) error {
	ip := net.ParseIP(addr)
	if ip == nil {
		return fmt.Errorf("invalid IP address")
	}
	if v4 := ip.To4(); v4 != nil {
		addV4(uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]))
		return nil
	}
	var b [16]byte
	copy(b[:], ip.To16())
	addV6(b)
	return nil
}

// addAddrOrCIDR accepts both bare addresses and CIDR ranges for the
// blacklist; a CIDR is expanded to nothing beyond its network address —
// ipv4_drop/ipv6_drop are exact-match tables (spec.md §3), so a CIDR
// block here documents intent but only the network address itself is
// blocked. Operators wanting a full range rely on the computed RFC1918/
// ULA/link-local checks in the blacklist gate, or enumerate addresses.
func addAddrOrCIDR(t *classify.Tables, addr string) error {
	if ip := net.ParseIP(addr); ip != nil {
		return addAddr(t.BlacklistAddV4, t.BlacklistAddV6, addr)
	}
	_, ipnet, err := net.ParseCIDR(addr)
	if err != nil {
		return fmt.Errorf("invalid address or CIDR")
	}
	return addAddr(t.BlacklistAddV4, t.BlacklistAddV6, ipnet.IP.String())
}
