// Package filterexpr turns a CEL filter string and an order_by clause into
// whitelisted conditions and order terms a repository can translate to SQL.
package filterexpr

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/operators"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Source is any request carrying raw filter and order_by inputs.
type Source interface {
	GetFilter() string
	GetOrderBy() string
}

// Kind is the literal type a filter field accepts.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindTimestamp
)

// Op is a supported comparison.
type Op string

const (
	OpEQ  Op = "=="
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpSW  Op = "startsWith"
	OpIN  Op = "in"
)

// Field whitelists one filterable attribute.
type Field struct {
	Column string
	Kind   Kind
	Ops    []Op
	// Values closes the set of accepted string literals when non-empty.
	Values []string
}

// Schema holds the filter and order rules of one resource.
type Schema struct {
	Filter map[string]Field
	Order  OrderSchema
}

// Condition is one validated conjunct. Value is a string, []string, float64 or time.Time.
type Condition struct {
	Field  string
	Column string
	Op     Op
	Value  any
}

// Query is the parsed form of a Source.
type Query struct {
	Conditions []Condition
	Order      []OrderTerm
}

// Parse validates src against schema.
func Parse(src Source, schema Schema) (Query, error) {
	conds, err := schema.parseFilter(src.GetFilter())
	if err != nil {
		return Query{}, fmt.Errorf("filter: %w", err)
	}
	order, err := schema.Order.parse(src.GetOrderBy())
	if err != nil {
		return Query{}, fmt.Errorf("order_by: %w", err)
	}
	return Query{Conditions: conds, Order: order}, nil
}

func (s Schema) env() (*cel.Env, error) {
	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	for name, f := range s.Filter {
		var t *cel.Type
		switch f.Kind {
		case KindString:
			t = cel.StringType
		case KindNumber:
			t = cel.DoubleType
		case KindTimestamp:
			t = cel.TimestampType
		default:
			return nil, fmt.Errorf("field %q has no kind", name)
		}
		opts = append(opts, cel.Variable(name, t))
	}
	return cel.NewEnv(opts...)
}

func (s Schema) parseFilter(raw string) ([]Condition, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if len(s.Filter) == 0 {
		return nil, errors.New("resource is not filterable")
	}
	env, err := s.env()
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(raw)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, err
	}
	var out []Condition
	if err := s.collect(parsed.GetExpr(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// collect flattens a tree of && into conditions.
func (s Schema) collect(e *exprpb.Expr, out *[]Condition) error {
	call := e.GetCallExpr()
	if call == nil {
		return errors.New("expected a comparison")
	}
	switch call.GetFunction() {
	case operators.LogicalAnd:
		for _, arg := range call.GetArgs() {
			if err := s.collect(arg, out); err != nil {
				return err
			}
		}
		return nil
	case operators.LogicalOr, operators.LogicalNot, operators.Conditional:
		return fmt.Errorf("operator %s is not supported, combine conditions with &&", call.GetFunction())
	}
	cond, err := s.condition(call)
	if err != nil {
		return err
	}
	*out = append(*out, cond)
	return nil
}

func (s Schema) condition(call *exprpb.Expr_Call) (Condition, error) {
	var (
		op          Op
		ident, lit  *exprpb.Expr
		args        = call.GetArgs()
		hasReceiver = call.GetTarget() != nil
	)
	switch call.GetFunction() {
	case operators.Equals:
		op = OpEQ
	case operators.GreaterEquals:
		op = OpGTE
	case operators.LessEquals:
		op = OpLTE
	case operators.In, operators.OldIn:
		op = OpIN
	case "startsWith":
		if !hasReceiver || len(args) != 1 {
			return Condition{}, errors.New("use field.startsWith(\"prefix\")")
		}
		op, ident, lit = OpSW, call.GetTarget(), args[0]
	default:
		return Condition{}, fmt.Errorf("function %q is not supported", call.GetFunction())
	}
	if op != OpSW {
		if hasReceiver || len(args) != 2 {
			return Condition{}, fmt.Errorf("%s expects a field and a literal", op)
		}
		ident, lit = args[0], args[1]
	}

	name := ident.GetIdentExpr().GetName()
	if name == "" {
		return Condition{}, errors.New("left-hand side must be a field name")
	}
	field, ok := s.Filter[name]
	if !ok {
		return Condition{}, fmt.Errorf("field %q is not filterable", name)
	}
	if !slices.Contains(field.Ops, op) {
		return Condition{}, fmt.Errorf("operator %s is not allowed on %q", op, name)
	}
	value, err := literal(lit)
	if err != nil {
		return Condition{}, fmt.Errorf("field %q: %w", name, err)
	}
	if err := field.check(op, value); err != nil {
		return Condition{}, fmt.Errorf("field %q: %w", name, err)
	}
	return Condition{Field: name, Column: field.Column, Op: op, Value: value}, nil
}

func literal(e *exprpb.Expr) (any, error) {
	if c := e.GetConstExpr(); c != nil {
		switch v := c.GetConstantKind().(type) {
		case *exprpb.Constant_StringValue:
			return v.StringValue, nil
		case *exprpb.Constant_Int64Value:
			return float64(v.Int64Value), nil
		case *exprpb.Constant_Uint64Value:
			return float64(v.Uint64Value), nil
		case *exprpb.Constant_DoubleValue:
			return v.DoubleValue, nil
		default:
			return nil, fmt.Errorf("unsupported literal %T", v)
		}
	}
	if list := e.GetListExpr(); list != nil {
		items := make([]string, 0, len(list.GetElements()))
		for _, el := range list.GetElements() {
			str, ok := el.GetConstExpr().GetConstantKind().(*exprpb.Constant_StringValue)
			if !ok {
				return nil, errors.New("list elements must be string literals")
			}
			items = append(items, str.StringValue)
		}
		return items, nil
	}
	if call := e.GetCallExpr(); call != nil && call.GetFunction() == "timestamp" && len(call.GetArgs()) == 1 {
		raw := call.GetArgs()[0].GetConstExpr().GetStringValue()
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("timestamp %q is not RFC3339", raw)
		}
		return ts, nil
	}
	return nil, errors.New("right-hand side must be a literal, a list of strings or timestamp(\"...\")")
}

func (f Field) check(op Op, value any) error {
	switch f.Kind {
	case KindString:
		if op == OpIN {
			list, ok := value.([]string)
			if !ok || len(list) == 0 {
				return errors.New("expected a non-empty list of strings")
			}
			for _, item := range list {
				if err := f.allowed(item); err != nil {
					return err
				}
			}
			return nil
		}
		str, ok := value.(string)
		if !ok {
			return errors.New("expected a string")
		}
		return f.allowed(str)
	case KindNumber:
		if _, ok := value.(float64); !ok {
			return errors.New("expected a number")
		}
	case KindTimestamp:
		if _, ok := value.(time.Time); !ok {
			return errors.New("expected timestamp(\"...\")")
		}
	}
	return nil
}

func (f Field) allowed(v string) error {
	if v == "" {
		return errors.New("empty string literal")
	}
	if len(f.Values) > 0 && !slices.Contains(f.Values, v) {
		return fmt.Errorf("value %q is not one of %s", v, strings.Join(f.Values, ", "))
	}
	return nil
}
