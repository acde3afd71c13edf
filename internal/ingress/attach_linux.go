// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package ingress

import (
	"fmt"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"github.com/vishvananda/netlink"

	"flowgate.dev/flowgate/internal/logging"
)

// nftAttacher installs one inet table/chain/rule pair that queues every
// packet on cfg.Link to cfg.QueueNum, the same conn/table/rule shape
// internal/kernel's LinuxKernel uses for its blocklist set, generalized
// from a set-membership rule to a queue-verdict rule.
type nftAttacher struct {
	logger *logging.Logger
}

func newPlatformAttacher(logger *logging.Logger) Attacher {
	return &nftAttacher{logger: logger}
}

// Attach resolves cfg.Link, then creates (or reuses) an inet table named
// cfg.TableName with a single base chain hooked at NF_INET_PREROUTING
// that queues matching traffic to cfg.QueueNum.
func (a *nftAttacher) Attach(cfg AttachConfig) error {
	if _, err := netlink.LinkByName(cfg.Link); err != nil {
		return fmt.Errorf("resolve link %q: %w", cfg.Link, err)
	}

	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("open nftables connection: %w", err)
	}

	table := conn.AddTable(&nftables.Table{
		Name:   cfg.TableName,
		Family: nftables.TableFamilyINet,
	})

	policy := nftables.ChainPolicyAccept
	chain := conn.AddChain(&nftables.Chain{
		Name:     "flowgate_ingress",
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookPrerouting,
		Priority: nftables.ChainPriorityFilter,
		Policy:   &policy,
	})

	// iifname is compared as a NUL-padded IFNAMSIZ (16-byte) string.
	ifname := make([]byte, 16)
	copy(ifname, cfg.Link+"\x00")

	conn.AddRule(&nftables.Rule{
		Table: table,
		Chain: chain,
		Exprs: []expr.Any{
			&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname},
			&expr.Queue{Num: cfg.QueueNum},
		},
	})

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("install flowgate_ingress rule: %w", err)
	}

	a.logger.Info("attached nftables diversion rule",
		"link", cfg.Link, "table", cfg.TableName, "queue", cfg.QueueNum)
	return nil
}

// Detach removes the table Attach created. nftables tables are all-or-
// nothing: deleting the table drops its chain and rule with it.
func (a *nftAttacher) Detach(cfg AttachConfig) error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("open nftables connection: %w", err)
	}

	conn.DelTable(&nftables.Table{
		Name:   cfg.TableName,
		Family: nftables.TableFamilyINet,
	})

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("remove flowgate_ingress table: %w", err)
	}

	a.logger.Info("detached nftables diversion rule", "table", cfg.TableName)
	return nil
}
