// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ctlsock

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/logging"
)

func TestServerClient_WhitelistAddAndDel(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ctl.sock")

	tbl := classify.NewTables()
	logger := logging.New(logging.DefaultConfig())
	srv := NewServer(tbl, logger)

	go func() { _ = srv.Serve(sock) }()
	t.Cleanup(func() { _ = srv.Close() })

	waitForSocket(t, sock)

	client, err := Dial(sock)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WhitelistAdd("198.51.100.5"))

	p := classify.NewPipeline(tbl)
	icmp := icmpEchoFrame(t, "198.51.100.5", "10.0.0.1")
	require.Equal(t, classify.PASS, p.Classify(icmp, 0))

	require.NoError(t, client.WhitelistDel("198.51.100.5"))
}

func TestClient_DialFailsWithoutServer(t *testing.T) {
	_, err := Dial(filepath.Join(t.TempDir(), "nope.sock"))
	require.Error(t, err)
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
