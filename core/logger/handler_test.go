package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emit writes a single event through a fresh handler and returns the rendered line.
func emit(t *testing.T, format logFormat, ctx context.Context, with []any, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	LogEvent(ctx, slog.New(handler).With(with...), slog.LevelInfo, event, attrs...)
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := emit(t, formatKV, ctx, []any{"component", "service.wallet"}, "conversation.step",
		slog.String("status", "ok"),
		slog.String("state_to", "DEPOSIT_AMOUNT"),
		slog.String("state_from", "MAIN_MENU"),
	)

	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=service.wallet", "event=conversation.step", "status=ok", "rid=rid-123"}
	require.GreaterOrEqual(t, len(tokens), len(expected), line)
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	assert.Less(t, strings.Index(line, "state_from="), strings.Index(line, "state_to="))
	assert.Contains(t, line, "user_id=7")
	assert.Contains(t, line, "chat_id=9")
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	line := emit(t, formatJSON, ctx, []any{"component", "store.postgres"}, "account.update",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)

	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"INFO"`, `"component":"store.postgres"`, `"event":"account.update"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.NotEqual(t, -1, idx, "%s missing in %s", pref, line)
		require.Greater(t, idx, pos, "%s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	ctx := WithRID(Background(), rawRID)

	kv := emit(t, formatKV, ctx, nil, "rid.test")
	assert.Contains(t, kv, "rid="+CompactRID(rawRID))
	assert.NotContains(t, kv, "rid_full=")

	js := emit(t, formatJSON, ctx, nil, "rid.test")
	assert.Contains(t, js, `"rid":"`+CompactRID(rawRID)+`"`)
	assert.Contains(t, js, `"rid_full":"`+rawRID+`"`)
	assert.Contains(t, js, `"ts_unix_nano"`)
}

func TestStructuredHandlerDurationsAndEnums(t *testing.T) {
	line := emit(t, formatKV, Background(), []any{"instance_id", "abc"}, "lock.acquire",
		slog.Duration("took", 1500*time.Microsecond),
		slog.String("status", "OK"),
		slog.String("outcome", "bogus"),
	)

	assert.Contains(t, line, "took_ms=2")
	assert.Contains(t, line, "status=ok")
	assert.Contains(t, line, "instance_id=abc")
	assert.NotContains(t, line, "outcome=")
	assert.Contains(t, line, "component=app")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "z.a.1", CompactRID("35:10:1"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:2", CompactRID("1:x:2"))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "héllo", SanitizeLimit("héllo wörld", 5))
	assert.Equal(t, "", SanitizeLimit("anything", 0))
}

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	require.Nil(t, L)
	assert.NotPanics(t, func() {
		Info(context.Background(), "app", "noop", slog.String("status", "ok"))
	})
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.Allow())
	}
	assert.Equal(t, []bool{true, false, false, true, false, false}, got)

	num, den := parseRatioSpec("10")
	assert.Equal(t, 1, num)
	assert.Equal(t, 10, den)
}

func TestRatioSpecs(t *testing.T) {
	tests := []struct {
		spec     string
		num, den int
	}{
		{"1/50", 1, 50},
		{" 2 / 5 ", 2, 5},
		{"0", 0, 0},
		{"x/5", 0, 0},
		{"", 0, 0},
	}
	for _, tt := range tests {
		num, den := parseRatioSpec(tt.spec)
		assert.Equal(t, tt.num, num, tt.spec)
		assert.Equal(t, tt.den, den, tt.spec)
	}

	s := newRatioSampler(0, 0)
	assert.True(t, s.Allow())
	s.Set(5, 2)
	assert.True(t, s.Allow())
	assert.True(t, s.Allow())
}

func TestStructuredHandlerRedactsPaymentDetails(t *testing.T) {
	line := emit(t, formatKV, Background(), nil, "method.add",
		slog.String("detail", "chase 1234"),
		slog.Group("method", slog.String("detail", "0xabc"), slog.String("kind", "Crypto (ETH)")),
	)

	assert.NotContains(t, line, "chase")
	assert.NotContains(t, line, "0xabc")
	assert.Contains(t, line, "detail=[redacted]")
	assert.Contains(t, line, "method.detail=[redacted]")
	assert.Contains(t, line, `method.kind="Crypto (ETH)"`)
}
