package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	t.Run("runs in project directory", func(t *testing.T) {
		dir := t.TempDir()
		var out bytes.Buffer
		r := &ExecRunner{Logger: nop(), Output: &out}

		require.NoError(t, r.Run(context.Background(), dir, []string{"sh", "-c", "pwd; touch built"}))
		_, err := os.Stat(filepath.Join(dir, "built"))
		assert.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(out.String()))
	})

	t.Run("failure carries exit code and output tail", func(t *testing.T) {
		r := &ExecRunner{Logger: nop()}
		err := r.Run(context.Background(), t.TempDir(), []string{"sh", "-c", "echo 'error[E0425]: cannot find value' >&2; exit 101"})
		require.Error(t, err)

		details := strings.Join(errors.GetAllDetails(err), "\n")
		assert.Contains(t, details, "exit code 101")
		assert.Contains(t, details, "error[E0425]")
	})

	t.Run("failure is logged with command and exit code", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		r := &ExecRunner{Logger: zap.New(core).Sugar()}
		require.Error(t, r.Run(context.Background(), t.TempDir(), []string{"sh", "-c", "exit 3"}))

		entries := logs.FilterMessage("Toolchain exited with error").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "sh -c exit 3", fields[logger.FieldCommand])
		assert.EqualValues(t, 3, fields[logger.FieldExitCode])
	})

	t.Run("empty command", func(t *testing.T) {
		r := &ExecRunner{Logger: nop()}
		assert.Error(t, r.Run(context.Background(), t.TempDir(), nil))
	})
}

func TestOutputLogger_Tail(t *testing.T) {
	l := &outputLogger{}
	for i := 0; i < tailLines+5; i++ {
		_, _ = l.Write([]byte("line\n"))
	}
	_, _ = l.Write([]byte("partial"))
	l.flush()

	tail := l.tail()
	require.Len(t, tail, tailLines)
	assert.Equal(t, "partial", tail[len(tail)-1])
}
