package calculator

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/genchat/providers/tool"
)

const Name = "calculator"

var ErrDivisionByZero = errors.New("division by zero")

// New returns the calculator tool.
func New() (*tool.Func[Input, Output], error) {
	return tool.New(Name, Calc,
		tool.WithDescription("Performs one arithmetic operation (add, sub, mul or div) on two numbers. Use it instead of doing arithmetic yourself."),
	)
}

// Calc applies req.Op to req.A and req.B. Op accepts the names add, sub, mul
// and div or the symbols + - * /.
func Calc(_ context.Context, req Input) (Output, error) {
	switch req.Op {
	case "add", "+":
		return Output{Result: req.A + req.B}, nil
	case "sub", "-":
		return Output{Result: req.A - req.B}, nil
	case "mul", "*":
		return Output{Result: req.A * req.B}, nil
	case "div", "/":
		if req.B == 0 {
			return Output{}, ErrDivisionByZero
		}
		return Output{Result: req.A / req.B}, nil
	default:
		return Output{}, fmt.Errorf("unknown operation %q", req.Op)
	}
}

type Input struct {
	A  float64 `json:"a" jsonschema:"first operand"`
	B  float64 `json:"b" jsonschema:"second operand"`
	Op string  `json:"op" jsonschema:"operation: add, sub, mul or div"`
}

type Output struct {
	Result float64 `json:"result"`
}
