// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"io"
	"log/syslog"
)

// SyslogConfig describes an optional remote syslog collector log lines are
// fanned out to. Disabled by default — most deployments run under a
// supervisor that already captures stderr.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string
	Tag      string
	Facility int // RFC 5424 facility number, e.g. 1 = user-level
}

// DefaultSyslogConfig returns a disabled syslog sink with the standard
// port/protocol/tag that NewSyslogWriter would otherwise default to, plus
// the user-level facility (NewSyslogWriter itself leaves Facility as
// given), so callers can inspect the effective config before enabling it.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "flowgate",
		Facility: 1, // LOG_USER
	}
}

// NewSyslogWriter dials the syslog collector described by cfg and returns
// an io.WriteCloser suitable for use as a log fan-out sink. Host is
// required; Port, Protocol, and Tag are defaulted when zero.
func NewSyslogWriter(cfg SyslogConfig) (io.WriteCloser, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("logging: syslog host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "flowgate"
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	priority := syslog.Priority(cfg.Facility<<3) | syslog.LOG_INFO
	return syslog.Dial(cfg.Protocol, addr, priority, cfg.Tag)
}
