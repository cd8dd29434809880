package process

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// freePortEnv returns a PORT=<n> entry for a port that was free a moment ago.
func freePortEnv(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return "PORT=" + strconv.Itoa(port)
}
