package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansInheritTraceID(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", "run-1")
	_, indexing := StartChildSpan(ctx, "indexing")
	indexing.End()
	_, encoding := StartChildSpan(ctx, "encoding")
	encoding.End()
	root.End()

	assert.Equal(t, "run-1", indexing.TraceID)
	require.Len(t, root.Children, 2)

	durations := root.Durations()
	assert.Contains(t, durations, "indexing")
	assert.Contains(t, durations, "encoding")
	assert.Same(t, root, SpanFromContext(ctx))
}

func TestDetachedChild(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, root := StartSpan(context.Background(), "run", "abc")
	_, child := StartChildSpan(ctx, "indexing")
	child.SetAttr("files", 3)
	child.End()
	root.End()
	root.Log(l)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=run")
	assert.Contains(t, lines[1], "span=indexing")
	assert.Contains(t, lines[1], "depth=1")
	assert.Contains(t, lines[1], "files=3")
}
