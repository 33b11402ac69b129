package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// Тесты меняют slog.Default(), поэтому без t.Parallel().

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFrom_FallsBackToDefault(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := discard()
	slog.SetDefault(def)

	require.Equal(t, def, From(context.Background()))

	// мусор под нашим ключом и nil-логгер.
	require.Equal(t, def, From(context.WithValue(context.Background(), ctxKey{}, "junk")))

	var nilLogger *slog.Logger
	require.Equal(t, def, From(context.WithValue(context.Background(), ctxKey{}, nilLogger)))
}

func TestInto_ChildShadowsParent(t *testing.T) {
	parentL, childL := discard(), discard()

	parent := Into(context.Background(), parentL)
	child := Into(parent, childL)

	require.Equal(t, childL, From(child))
	require.Equal(t, parentL, From(parent))
}

func TestWith_AddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := With(Into(context.Background(), base), "request_id", "rid-1")
	From(ctx).Info("register_code_sent")

	out := buf.String()
	require.Contains(t, out, "msg=register_code_sent")
	require.Contains(t, out, "request_id=rid-1")

	// без атрибутов контекст не меняется.
	plain := Into(context.Background(), base)
	require.Equal(t, plain, With(plain))
}
