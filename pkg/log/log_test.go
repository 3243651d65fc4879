package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/crumbs/pkg/log"
)

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err    error
		want   string
		level  string
		format string
	}{
		"json": {
			level:  "info",
			format: "json",
			want:   `"msg":"hello"`,
		},
		"logfmt": {
			level:  "DEBUG",
			format: "logfmt",
			want:   "msg=hello",
		},
		"text": {
			level:  "warning",
			format: "text",
			want:   "hello",
		},
		"unknown level": {
			level:  "loud",
			format: "json",
			err:    log.ErrUnknownLogLevel,
		},
		"unknown format": {
			level:  "info",
			format: "xml",
			err:    log.ErrUnknownLogFormat,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			h, err := log.CreateHandlerWithStrings(&buf, tc.level, tc.format)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.ErrorIs(t, err, log.ErrInvalidArgument)

				return
			}

			require.NoError(t, err)
			slog.New(h).Error("hello")
			assert.Contains(t, buf.String(), tc.want)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(log.CreateHandler(&buf, slog.LevelWarn, log.FormatJSON))
	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	assert.Same(t, slog.Default(), log.WithContext(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	assert.Same(t, logger, log.WithContext(log.NewContext(t.Context(), logger)))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89, 1},
		SpanID:  trace.SpanID{1},
	})
	ctx := trace.ContextWithSpanContext(t.Context(), sc)
	assert.NotSame(t, slog.Default(), log.WithContext(ctx))
}

func TestBuffer(t *testing.T) {
	t.Parallel()

	b := log.NewBuffer(3)

	n, err := b.Write(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, b.Len())

	for _, rec := range []string{"a\n", "b\n"} {
		_, err := b.Write([]byte(rec))
		require.NoError(t, err)
	}

	var out strings.Builder

	_, err = b.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out.String())

	for _, rec := range []string{"c\n", "d\n", "e\n"} {
		_, err := b.Write([]byte(rec))
		require.NoError(t, err)
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 2, b.Dropped())

	out.Reset()

	written, err := b.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, "c\nd\ne\n", out.String())
	assert.EqualValues(t, 6, written)

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Zero(t, b.Dropped())
	assert.Empty(t, b.Records())

	b = log.NewBuffer(0)
	for range log.DefaultBufferSize + 1 {
		_, err := b.Write([]byte("x"))
		require.NoError(t, err)
	}

	assert.Equal(t, log.DefaultBufferSize, b.Len())
	assert.Equal(t, 1, b.Dropped())
}

func TestBufferAsHandlerOutput(t *testing.T) {
	t.Parallel()

	b := log.NewBuffer(2)
	logger := slog.New(log.CreateHandler(b, slog.LevelInfo, log.FormatLogfmt))

	logger.Info("one")
	logger.Info("two")
	logger.Info("three")

	recs := b.Records()
	require.Len(t, recs, 2)
	assert.Contains(t, string(recs[0]), "msg=two")
	assert.Contains(t, string(recs[1]), "msg=three")
}
