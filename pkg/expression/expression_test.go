package expression

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() Scope {
	return Scope{
		Node: map[string]any{
			"fetch": map[string]any{
				"status": float64(200),
				"body":   map[string]any{"name": "ada", "tags": []any{"a", "b"}},
			},
		},
		Input: map[string]any{
			"fetch": map[string]any{"status": float64(200)},
		},
		Vars: map[string]any{"x": float64(5), "name": "fluxion", "ready": true},
	}
}

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"$vars.x + 1", float64(6)},
		{"$vars.x * 2 - 3", float64(7)},
		{"($vars.x + 1) / 2", float64(3)},
		{"10 % 3", float64(1)},
		{"-$vars.x", float64(-5)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, testScope())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Comparisons(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"$vars.x == 5", true},
		{"$vars.x != 5", false},
		{"$vars.x > 3", true},
		{"$vars.x <= 4", false},
		{"$vars.name == 'fluxion'", true},
		{"'abc' < 'abd'", true},
		{"$vars.ready && $vars.x > 0", true},
		{"!$vars.ready || $vars.x > 10", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, testScope())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Ternary(t *testing.T) {
	got, err := Evaluate("$vars.x > 3 ? 'big' : 'small'", testScope())
	require.NoError(t, err)
	assert.Equal(t, "big", got)

	got, err = Evaluate("$vars.x > 10 ? 'big' : 'small'", testScope())
	require.NoError(t, err)
	assert.Equal(t, "small", got)
}

func TestEvaluate_PropertyAndIndexAccess(t *testing.T) {
	got, err := Evaluate("$node.fetch.body.name", testScope())
	require.NoError(t, err)
	assert.Equal(t, "ada", got)

	got, err = Evaluate("$node.fetch.body.tags[1]", testScope())
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	got, err = Evaluate("$input.fetch.status", testScope())
	require.NoError(t, err)
	assert.Equal(t, float64(200), got)
}

func TestEvaluate_StringConcat(t *testing.T) {
	got, err := Evaluate("'hello ' + $vars.name", testScope())
	require.NoError(t, err)
	assert.Equal(t, "hello fluxion", got)
}

func TestEvaluate_UndefinedReference(t *testing.T) {
	_, err := Evaluate("$vars.missing.z", testScope())
	require.Error(t, err)

	var evalErr *EvalError

	require.ErrorAs(t, err, &evalErr)
	assert.Contains(t, evalErr.Msg, "undefined reference")
}

func TestEvaluate_SyntaxError(t *testing.T) {
	_, err := Evaluate("$vars.x +", testScope())
	require.Error(t, err)

	var synErr *SyntaxError

	assert.ErrorAs(t, err, &synErr)
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	_, err := Evaluate("1 / 0", testScope())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestEvaluate_UnknownScope(t *testing.T) {
	_, err := Evaluate("$env.HOME", testScope())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scope")
}

func newTestResolver() (*Resolver, *bytes.Buffer) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	return NewResolver(logger), &buf
}

func TestResolver_FullStringTemplate(t *testing.T) {
	resolver, _ := newTestResolver()

	got := resolver.Resolve("{{ $vars.x + 1 }}", testScope())
	assert.Equal(t, float64(6), got)
}

func TestResolver_UndefinedKeepsLiteralAndWarns(t *testing.T) {
	resolver, buf := newTestResolver()

	got := resolver.Resolve("{{ $vars.missing.z }}", testScope())
	assert.Equal(t, "{{ $vars.missing.z }}", got)
	assert.Contains(t, buf.String(), "expression resolution failed")
}

func TestResolver_BadSyntaxKeepsLiteralAndWarns(t *testing.T) {
	resolver, buf := newTestResolver()

	got := resolver.Resolve("{{ 1 + }}", testScope())
	assert.Equal(t, "{{ 1 + }}", got)
	assert.Contains(t, buf.String(), "expression resolution failed")
}

func TestResolver_InlineInterpolation(t *testing.T) {
	resolver, _ := newTestResolver()

	got := resolver.Resolve("status={{ $node.fetch.status }} for {{ $vars.name }}", testScope())
	assert.Equal(t, "status=200 for fluxion", got)
}

func TestResolver_NestedStructures(t *testing.T) {
	resolver, _ := newTestResolver()

	config := map[string]any{
		"url": "{{ 'https://' + $vars.name + '.dev' }}",
		"headers": map[string]any{
			"X-Count": "{{ $vars.x }}",
		},
		"list":    []any{"{{ $vars.x + 1 }}", "plain"},
		"timeout": float64(30),
	}

	resolved, ok := resolver.Resolve(config, testScope()).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "https://fluxion.dev", resolved["url"])
	assert.Equal(t, float64(5), resolved["headers"].(map[string]any)["X-Count"])
	assert.Equal(t, float64(6), resolved["list"].([]any)[0])
	assert.Equal(t, "plain", resolved["list"].([]any)[1])
	assert.Equal(t, float64(30), resolved["timeout"])

	// Original config must be untouched.
	assert.Equal(t, "{{ $vars.x }}", config["headers"].(map[string]any)["X-Count"])
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "42", Stringify(float64(42)))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, `{"a":1}`, Stringify(map[string]any{"a": 1}))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(float64(0)))
	assert.False(t, Truthy([]any{}))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy(float64(1)))
	assert.True(t, Truthy(map[string]any{"k": 1}))
}
