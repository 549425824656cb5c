package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, L, WithCtx(context.Background()))

	var buf bytes.Buffer
	tagged := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "abc")
	ctx := InjectLogger(context.Background(), tagged)
	WithCtx(ctx).Info("hello")

	assert.Contains(t, buf.String(), "request_id=abc")
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("order_id", 7)

	log.Info("checkout")
	log.Warn("stock low")

	assert.Equal(t, 2, strings.Count(a.String(), "order_id=7"))
	assert.Equal(t, 1, strings.Count(b.String(), "order_id=7"))
	assert.NotContains(t, b.String(), "checkout")
}

func TestSetupWritesRotatedFile(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev; slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "panaya.log")
	closeFn, err := Setup(Options{Production: true, File: path})
	require.NoError(t, err)

	Info("boot", "port", "8080")
	closeFn()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"boot"`)
}
