package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "Current")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScriptAdapter_ReceiveFindsMatchingLine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := "35=8\x0111=other_1\x0139=0\n" +
		"35=8\x0111=tc1_1\x0139=0\x0159=2\n"
	path := writeLog(t, dir, log)

	a := NewScriptAdapter("unused", path, 10*time.Millisecond)
	got, err := a.Receive(context.Background(), Match{OrdID: "tc1_1", MsgType: "8"}, time.Second)
	require.NoError(t, err)
	assert.Contains(t, got, "11=tc1_1")
	assert.Contains(t, got, "59=2")
}

func TestScriptAdapter_ReceiveReturnsNewestMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := "35=8\x0111=tc1_1\x0139=0\n" +
		"35=8\x0111=tc1_1\x0139=2\n"
	path := writeLog(t, dir, log)

	a := NewScriptAdapter("unused", path, 10*time.Millisecond)
	got, err := a.Receive(context.Background(), Match{OrdID: "tc1_1", MsgType: "8"}, time.Second)
	require.NoError(t, err)
	assert.Contains(t, got, "39=2")
}

func TestScriptAdapter_ReceiveTimesOut(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeLog(t, dir, "35=8\x0111=unrelated\x0139=0\n")

	a := NewScriptAdapter("unused", path, 5*time.Millisecond)
	_, err := a.Receive(context.Background(), Match{OrdID: "tc1_1", MsgType: "8"}, 30*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestScriptAdapter_ReceiveMissingLogKeepsPolling(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Current")

	a := NewScriptAdapter("unused", path, 5*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte("35=8\x0111=tc1_1\n"), 0o644)
	}()

	got, err := a.Receive(context.Background(), Match{OrdID: "tc1_1", MsgType: "8"}, 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, got, "11=tc1_1")
}

func TestScriptAdapter_ReceiveHonorsContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Current")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewScriptAdapter("unused", path, 5*time.Millisecond)
	_, err := a.Receive(ctx, Match{OrdID: "x", MsgType: "8"}, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScriptAdapter_SendMissingScriptIsFatal(t *testing.T) {
	t.Parallel()

	a := NewScriptAdapter(filepath.Join(t.TempDir(), "nope.sh"), "unused", time.Millisecond)
	err := a.Send(context.Background(), "35=D")
	require.Error(t, err)
	assert.True(t, IsDown(err))
}

func TestLoopback_RecordsAndResponds(t *testing.T) {
	t.Parallel()

	lb := NewLoopback(func(sent string, m Match) (string, error) {
		return "35=8\x0111=" + m.OrdID, nil
	})

	require.NoError(t, lb.Send(context.Background(), "35=D\x0111=a1"))
	got, err := lb.Receive(context.Background(), Match{OrdID: "a1", MsgType: "8"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "35=8\x0111=a1", got)
	assert.Equal(t, []string{"35=D\x0111=a1"}, lb.Sent())
}

func TestLoopback_NilResponderTimesOut(t *testing.T) {
	t.Parallel()

	lb := NewLoopback(nil)
	_, err := lb.Receive(context.Background(), Match{}, time.Second)
	assert.True(t, IsTimeout(err))
}
