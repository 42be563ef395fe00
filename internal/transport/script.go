package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ScriptAdapter hands each message to a send script and polls the
// counterparty's log file for the matching response line.
//
// This mirrors the conventional counterparty setup: a shell script delivers
// the SOH-encoded message to the running process, which appends responses to
// a rolling log file.
type ScriptAdapter struct {
	// Script is the path of the send script. It receives the encoded
	// message as its single argument.
	Script string

	// LogPath is the counterparty log file polled for responses.
	LogPath string

	// PollInterval is the delay between polls of LogPath.
	PollInterval time.Duration

	// Logger receives send/receive diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// NewScriptAdapter creates an adapter with the given script and log paths.
func NewScriptAdapter(script, logPath string, pollInterval time.Duration) *ScriptAdapter {
	return &ScriptAdapter{
		Script:       script,
		LogPath:      logPath,
		PollInterval: pollInterval,
	}
}

func (a *ScriptAdapter) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Send runs the send script with the encoded message.
//
// A script that cannot be started at all means the counterparty setup is
// broken and the run cannot proceed; a non-zero exit is an ordinary
// per-case transport failure.
func (a *ScriptAdapter) Send(ctx context.Context, encoded string) error {
	a.logger().Debug("sending message", "script", a.Script, "bytes", len(encoded))

	cmd := exec.CommandContext(ctx, a.Script, encoded)
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: cannot run send script %s: %v", ErrCounterpartyDown, a.Script, err)
	}
	return fmt.Errorf("send script failed: %w", err)
}

// Receive polls the log file until a line carrying the match's tag 11 and
// tag 35 appears, or the timeout elapses. A log file that does not exist
// yet is not an error; it may appear while polling.
func (a *ScriptAdapter) Receive(ctx context.Context, m Match, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	interval := a.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	for {
		line, found, err := a.scanLog(m)
		if err != nil {
			return "", err
		}
		if found {
			a.logger().Debug("response found", "clordid", m.OrdID, "msg_type", m.MsgType)
			return line, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w (11=%s, 35=%s)", ErrTimeout, m.OrdID, m.MsgType)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}

// scanLog reads the whole log file looking for the newest matching line.
// The file is rewritten by the counterparty's log rotation, so offsets are
// not tracked between polls.
func (a *ScriptAdapter) scanLog(m Match) (string, bool, error) {
	f, err := os.Open(a.LogPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("open counterparty log: %w", err)
	}
	defer f.Close()

	idField := "11=" + m.OrdID
	typeField := "35=" + m.MsgType

	var match string
	var found bool
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, idField) && strings.Contains(line, typeField) {
			match = strings.TrimSpace(line)
			found = true
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read counterparty log: %w", err)
	}
	return match, found, nil
}
