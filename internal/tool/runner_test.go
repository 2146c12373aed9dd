package tool

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func script(t *testing.T, name string) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)
	return p
}

func TestLines(t *testing.T) {
	got := Lines("AST,p1,Function,p2,main\r\n\n  \nCFG,1,p1,main,p2\n")
	assert.Equal(t, []string{"AST,p1,Function,p2,main", "CFG,1,p1,main,p2"}, got)
	assert.Empty(t, Lines(""))
}

func TestRunner_Run(t *testing.T) {
	requireShell(t)

	r := &Runner{Path: "sh", Args: []string{script(t, "facts.sh")}, Timeout: 10 * time.Second}
	lines, err := r.Run(context.Background(), "prog.c")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"AST,fn,Function,s1,DeclStmt",
		"CFG,0,fn,main,s1",
		"Gen/Kill,1,p3,prog.c",
	}, lines)
}

func TestRunner_FailureWrapsStderr(t *testing.T) {
	requireShell(t)

	r := &Runner{Path: "sh", Args: []string{script(t, "fail.sh")}}
	_, err := r.Run(context.Background(), "broken.c")
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "broken.c", runErr.Source)
	assert.Contains(t, runErr.Stderr, "broken.c:1:1: error: expected expression")

	var exitErr *exec.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestRunner_Timeout(t *testing.T) {
	requireShell(t)

	r := &Runner{Path: "sh", Args: []string{"-c", "exec sleep 5", "sh"}, Timeout: 100 * time.Millisecond}
	_, err := r.Run(context.Background(), "slow.c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestRunner_MissingBinary(t *testing.T) {
	r := &Runner{Path: "pgraph-no-such-tool"}
	_, err := r.Resolve()
	assert.Error(t, err)

	_, err = r.Run(context.Background(), "a.c")
	assert.Error(t, err)
}
