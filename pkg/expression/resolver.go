package expression

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// fullTemplate matches strings that are exactly one {{ expression }}, which
// resolve to the expression's typed value rather than a string.
var fullTemplate = regexp.MustCompile(`\A\s*\{\{(.*?)\}\}\s*\z`)

// inlineTemplate matches embedded {{ expression }} segments inside a larger string.
var inlineTemplate = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Resolver substitutes templated references inside node configurations.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a resolver that reports evaluation failures on the given
// logger. Failures are warnings, never fatal: the literal text is kept so that
// missing data cannot block unrelated branches.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger.With("module", "expression")}
}

// Resolve recursively walks the config value and evaluates every templated
// string against the scope. Maps and slices are copied, never mutated.
func (r *Resolver) Resolve(config any, scope Scope) any {
	switch v := config.(type) {
	case string:
		return r.resolveString(v, scope)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, value := range v {
			resolved[key] = r.Resolve(value, scope)
		}

		return resolved
	case []any:
		resolved := make([]any, len(v))
		for i, value := range v {
			resolved[i] = r.Resolve(value, scope)
		}

		return resolved
	default:
		return config
	}
}

// ResolveConfig resolves a full node config map.
func (r *Resolver) ResolveConfig(config map[string]any, scope Scope) map[string]any {
	if config == nil {
		return map[string]any{}
	}

	resolved, _ := r.Resolve(config, scope).(map[string]any)

	return resolved
}

func (r *Resolver) resolveString(value string, scope Scope) any {
	if match := fullTemplate.FindStringSubmatch(value); match != nil {
		result, err := Evaluate(strings.TrimSpace(match[1]), scope)
		if err != nil {
			r.logger.Warn("expression resolution failed, keeping literal",
				"expression", strings.TrimSpace(match[1]), "error", err)

			return value
		}

		return result
	}

	if !inlineTemplate.MatchString(value) {
		return value
	}

	// Interpolate each embedded segment; failed segments stay literal.
	return inlineTemplate.ReplaceAllStringFunc(value, func(segment string) string {
		expr := strings.TrimSpace(inlineTemplate.FindStringSubmatch(segment)[1])

		result, err := Evaluate(expr, scope)
		if err != nil {
			r.logger.Warn("expression resolution failed, keeping literal",
				"expression", expr, "error", err)

			return segment
		}

		return Stringify(result)
	})
}

// Stringify renders an evaluated value for string interpolation.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
