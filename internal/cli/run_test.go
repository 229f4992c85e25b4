package cli

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahdg6/TypeWriter/internal/store"
	"github.com/ahdg6/TypeWriter/internal/transport/ws"
)

// freeAddr reserves a loopback port and releases it for the server.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunServesAndSavesFacts(t *testing.T) {
	entries := guideDir(t)
	db := filepath.Join(t.TempDir(), "typewriter.db")
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := executeContext(t, ctx, "run", entries,
			"--db", db,
			"--addr", addr,
			"--tick", "10ms",
			"--env-file", filepath.Join(t.TempDir(), "absent.env"),
		)
		done <- err
	}()

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws?player=alice", nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 20*time.Millisecond)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ws.ClientFrame{Type: ws.FrameInteract, Triggers: []string{"greet"}}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame ws.ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "Welcome, alice.", frame.Text)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancel")
	}

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	facts, err := st.LoadFacts(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, facts["met"])

	acts, err := st.ReadActivations(context.Background(), store.ActivationFilter{Player: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, acts)
	assert.Equal(t, "hello", acts[0].EntryID)
	assert.Equal(t, "start", acts[0].Input)
	assert.NotEmpty(t, acts[0].Chain)
}

func TestRunMissingEntries(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "nope"),
		"--db", filepath.Join(t.TempDir(), "x.db"),
		"--env-file", "",
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load entries")
}

func TestRunInvalidConfig(t *testing.T) {
	t.Setenv("TYPEWRITER_MAX_STEPS", "0")

	_, err := execute(t, "run", guideDir(t), "--env-file", "")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestResolveRunConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("TYPEWRITER_DB_PATH", "env.db")
	t.Setenv("TYPEWRITER_HTTP_ADDR", ":1111")

	opts := &RunOptions{RootOptions: &RootOptions{}, Addr: ":2222", TickInterval: 20 * time.Millisecond}
	cfg, err := resolveRunConfig(opts, []string{"content"})
	require.NoError(t, err)

	assert.Equal(t, "content", cfg.EntriesDir)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, ":2222", cfg.HTTPAddr)
	assert.Equal(t, 20*time.Millisecond, cfg.TickInterval)
}
