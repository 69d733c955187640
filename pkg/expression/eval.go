package expression

import (
	"fmt"
	"math"
	"reflect"
)

// Scope roots visible to expressions. Nothing outside these maps is reachable.
const (
	ScopeNode  = "$node"  // nodeID -> output data of completed upstream nodes
	ScopeInput = "$input" // nodeID -> data of direct upstream neighbours
	ScopeVars  = "$vars"  // execution variables, seeded from run inputs
)

// Scope is the read-only evaluation context for one node's config resolution.
type Scope struct {
	Node  map[string]any
	Input map[string]any
	Vars  map[string]any
}

// EvalError reports an expression that lexed and parsed but failed to evaluate,
// such as an undefined reference or a type mismatch.
type EvalError struct {
	Expr string
	Msg  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("cannot evaluate %q: %s", e.Expr, e.Msg)
}

// Evaluate parses and evaluates one expression against the scope.
func Evaluate(expr string, scope Scope) (any, error) {
	root, err := parse(expr)
	if err != nil {
		return nil, err
	}

	ev := &evaluator{expr: expr, scope: scope}

	return ev.eval(root)
}

type evaluator struct {
	expr  string
	scope Scope
}

func (ev *evaluator) errorf(format string, args ...any) error {
	return &EvalError{Expr: ev.expr, Msg: fmt.Sprintf(format, args...)}
}

func (ev *evaluator) eval(node exprNode) (any, error) {
	switch n := node.(type) {
	case literalNode:
		return n.value, nil
	case scopeNode:
		switch n.name {
		case ScopeNode:
			return ev.scope.Node, nil
		case ScopeInput:
			return ev.scope.Input, nil
		default:
			return ev.scope.Vars, nil
		}
	case propertyNode:
		return ev.evalProperty(n)
	case indexNode:
		return ev.evalIndex(n)
	case unaryNode:
		return ev.evalUnary(n)
	case binaryNode:
		return ev.evalBinary(n)
	case ternaryNode:
		cond, err := ev.eval(n.cond)
		if err != nil {
			return nil, err
		}

		if Truthy(cond) {
			return ev.eval(n.then)
		}

		return ev.eval(n.otherwise)
	default:
		return nil, ev.errorf("unsupported expression node %T", node)
	}
}

func (ev *evaluator) evalProperty(n propertyNode) (any, error) {
	target, err := ev.eval(n.target)
	if err != nil {
		return nil, err
	}

	if target == nil {
		return nil, ev.errorf("undefined reference: property %q of null", n.name)
	}

	m, ok := target.(map[string]any)
	if !ok {
		return nil, ev.errorf("property %q of non-object value %T", n.name, target)
	}

	value, exists := m[n.name]
	if !exists {
		// Absent keys resolve to null so expressions can test for
		// missing data; chained access on the result fails above.
		return nil, nil
	}

	return value, nil
}

func (ev *evaluator) evalIndex(n indexNode) (any, error) {
	target, err := ev.eval(n.target)
	if err != nil {
		return nil, err
	}

	index, err := ev.eval(n.index)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case map[string]any:
		key, ok := index.(string)
		if !ok {
			return nil, ev.errorf("object index must be a string, got %T", index)
		}

		return t[key], nil
	case []any:
		num, ok := index.(float64)
		if !ok || num != math.Trunc(num) {
			return nil, ev.errorf("array index must be an integer, got %v", index)
		}

		i := int(num)
		if i < 0 || i >= len(t) {
			return nil, ev.errorf("array index %d out of range (length %d)", i, len(t))
		}

		return t[i], nil
	case nil:
		return nil, ev.errorf("undefined reference: index of null")
	default:
		return nil, ev.errorf("cannot index value of type %T", target)
	}
}

func (ev *evaluator) evalUnary(n unaryNode) (any, error) {
	operand, err := ev.eval(n.operand)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "!":
		return !Truthy(operand), nil
	default: // "-"
		num, ok := toNumber(operand)
		if !ok {
			return nil, ev.errorf("cannot negate %T", operand)
		}

		return -num, nil
	}
}

func (ev *evaluator) evalBinary(n binaryNode) (any, error) {
	// Short-circuit boolean operators evaluate the right side lazily.
	if n.op == "&&" || n.op == "||" {
		left, err := ev.eval(n.left)
		if err != nil {
			return nil, err
		}

		if n.op == "&&" && !Truthy(left) {
			return false, nil
		}

		if n.op == "||" && Truthy(left) {
			return true, nil
		}

		right, err := ev.eval(n.right)
		if err != nil {
			return nil, err
		}

		return Truthy(right), nil
	}

	left, err := ev.eval(n.left)
	if err != nil {
		return nil, err
	}

	right, err := ev.eval(n.right)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case "+":
		if ls, ok := left.(string); ok {
			return ls + Stringify(right), nil
		}

		if rs, ok := right.(string); ok {
			return Stringify(left) + rs, nil
		}

		return ev.arithmetic(n.op, left, right)
	case "-", "*", "/", "%":
		return ev.arithmetic(n.op, left, right)
	case "<", "<=", ">", ">=":
		return ev.compare(n.op, left, right)
	default:
		return nil, ev.errorf("unsupported operator %q", n.op)
	}
}

func (ev *evaluator) arithmetic(op string, left, right any) (any, error) {
	l, lok := toNumber(left)
	r, rok := toNumber(right)

	if !lok || !rok {
		return nil, ev.errorf("operator %q requires numbers, got %T and %T", op, left, right)
	}

	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, ev.errorf("division by zero")
		}

		return l / r, nil
	default: // "%"
		if r == 0 {
			return nil, ev.errorf("division by zero")
		}

		return math.Mod(l, r), nil
	}
}

func (ev *evaluator) compare(op string, left, right any) (any, error) {
	if ls, lok := left.(string); lok {
		rs, rok := right.(string)
		if !rok {
			return nil, ev.errorf("cannot compare string with %T", right)
		}

		switch op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		default:
			return ls >= rs, nil
		}
	}

	l, lok := toNumber(left)
	r, rok := toNumber(right)

	if !lok || !rok {
		return nil, ev.errorf("operator %q requires numbers or strings, got %T and %T", op, left, right)
	}

	switch op {
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	default:
		return l >= r, nil
	}
}

// Truthy converts a value to its boolean interpretation: null, zero, empty
// string and empty collections are false, everything else is true.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}

func looseEqual(left, right any) bool {
	if l, lok := toNumber(left); lok {
		if r, rok := toNumber(right); rok {
			return l == r
		}
	}

	return reflect.DeepEqual(left, right)
}
