// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/ctlsock"
	"flowgate.dev/flowgate/internal/logging"
)

func TestRun_AddAndDelAgainstLiveSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ctl.sock")

	tbl := classify.NewTables()
	srv := ctlsock.NewServer(tbl, logging.New(logging.DefaultConfig()))
	go func() { _ = srv.Serve(sock) }()
	t.Cleanup(func() { _ = srv.Close() })
	waitForSocket(t, sock)

	require.Equal(t, 0, run([]string{"-socket", sock, "add", "192.0.2.1"}))
	require.Equal(t, 0, run([]string{"-socket", sock, "del", "192.0.2.1"}))
}

func TestRun_BadArgsReturnsUsageCode(t *testing.T) {
	require.Equal(t, 2, run([]string{"add"}))
	require.Equal(t, 2, run([]string{"frobnicate", "1.2.3.4"}))
}

func TestRun_NoServerReturnsError(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "nope.sock")
	require.Equal(t, 1, run([]string{"-socket", sock, "add", "1.2.3.4"}))
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("control socket %s never became available", path)
}
