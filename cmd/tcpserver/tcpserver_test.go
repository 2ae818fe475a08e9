//go:build integration

package tcpserver_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-maxim/linebank/cmd/tcpserver"
	"github.com/go-maxim/linebank/internal/accountrepo"
	"github.com/go-maxim/linebank/internal/integrationtest"
	"github.com/go-maxim/linebank/pkg/configpkg"
	"github.com/go-maxim/linebank/pkg/logpkg"
)

func startServer(t *testing.T) (net.Addr, *accountrepo.RepoPGS) {
	t.Helper()

	config, err := configpkg.Load("../../configs")
	require.NoError(t, err)

	config.Environment = "test"

	db := integrationtest.SetupDB(t, "../../configs")

	server, err := tcpserver.New(db, logpkg.CreateLogger(config), config)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { lis.Close() })

	go func() { _ = server.Serve(lis) }()

	return lis.Addr(), accountrepo.NewRepoPGS(db)
}

// send opens a connection, writes the request lines and returns every reply line.
func send(t *testing.T, addr net.Addr, lines ...string) []string {
	t.Helper()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	for _, line := range lines {
		_, err := conn.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}

	// Half-close so a session waiting for more argument lines sees EOF.
	if tcp, ok := conn.(*net.TCPConn); ok {
		require.NoError(t, tcp.CloseWrite())
	}

	var reply []string

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		reply = append(reply, scanner.Text())
	}

	require.NoError(t, scanner.Err())

	return reply
}

func TestServerScenario(t *testing.T) {
	addr, accountRepo := startServer(t)

	// Register both parties.
	require.Equal(t, []string{"SUCCESS"}, send(t, addr, "REGISTER", "alice", "pw1"))
	require.Equal(t, []string{"SUCCESS"}, send(t, addr, "REGISTER", "bob", "pw2"))

	// Duplicate registration fails and leaves the original account untouched.
	require.Equal(t, []string{"FAILURE"}, send(t, addr, "REGISTER", "alice", "other"))
	require.Equal(t, []string{"SUCCESS", "0", "0"}, send(t, addr, "LOGIN", "alice", "pw1"))

	// Wrong credentials and unknown users are indistinguishable.
	require.Equal(t, []string{"FAILURE"}, send(t, addr, "LOGIN", "alice", "wrong"))
	require.Equal(t, []string{"FAILURE"}, send(t, addr, "LOGIN", "mallory", "pw1"))

	// Transfer with a zero balance fails with no visible effect.
	require.Equal(t, []string{"FAILURE"}, send(t, addr, "TRANSFER", "alice", "bob", "50"))
	require.Equal(t, []string{"SUCCESS", "0", "0"}, send(t, addr, "LOGIN", "bob", "pw2"))

	// Fund alice at store level, then transfer.
	_, err := accountRepo.SetBalance(context.Background(), "100", "alice")
	require.NoError(t, err)

	reply := send(t, addr, "TRANSFER", "alice", "bob", "50")
	require.Len(t, reply, 4)
	require.Equal(t, "SUCCESS", reply[0])
	require.Equal(t, "50", reply[1])
	require.Equal(t, "1", reply[2])
	require.Contains(t, reply[3], "Sent $50 to bob on ")

	// The refreshed history is visible on the next login.
	reply = send(t, addr, "LOGIN", "alice", "pw1")
	require.Len(t, reply, 4)
	require.Equal(t, []string{"SUCCESS", "50", "1"}, reply[:3])

	// Bob received the funds; his outgoing history stays empty.
	require.Equal(t, []string{"SUCCESS", "50", "0"}, send(t, addr, "LOGIN", "bob", "pw2"))

	// Unknown command mutates nothing.
	require.Equal(t, []string{"UNKNOWN_COMMAND"}, send(t, addr, "BALANCETRANSFER"))
	require.Equal(t, []string{"SUCCESS", "50", "0"}, send(t, addr, "LOGIN", "bob", "pw2"))

	// Self transfer and non-positive amounts are rejected.
	require.Equal(t, []string{"FAILURE"}, send(t, addr, "TRANSFER", "alice", "alice", "10"))
	require.Equal(t, []string{"FAILURE"}, send(t, addr, "TRANSFER", "alice", "bob", "0"))
	require.Equal(t, []string{"FAILURE"}, send(t, addr, "TRANSFER", "alice", "bob", "-10"))

	// Explicitly signed amounts are accepted and normalized.
	reply = send(t, addr, "TRANSFER", "alice", "bob", "+10")
	require.Len(t, reply, 5)
	require.Equal(t, []string{"SUCCESS", "40", "2"}, reply[:3])
	require.Contains(t, reply[3], "Sent $10 to bob on ")

	// Malformed input is contained to its session.
	require.Equal(t, []string{"FAILURE"}, send(t, addr, "TRANSFER", "alice"))
	require.Equal(t, []string{"SUCCESS", "40", "2"}, send(t, addr, "LOGIN", "alice", "pw1")[:3])
}
