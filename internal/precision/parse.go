package precision

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a precision string that could not be parsed.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid precision %q: %s", e.Input, e.Message)
}

// Parse reads the textual precision forms accepted in model configurations:
//
//	fixed<16,6>  ufixed<8,3,RND,SAT>  ap_fixed<16,6,AP_RND_CONV,AP_SAT,2>
//	ac_fixed<16,6,true,AC_RND,AC_SAT>  int<8>  uint<4>  ac_int<8,false>
//	exponent<4>  uexponent<4>  xnor
//
// The result is unbound. Fixed precisions without explicit modes get the
// TRN/WRAP defaults.
func Parse(s string) (Precision, error) {
	in := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.EqualFold(in, "xnor") {
		return NewXnor(), nil
	}

	open := strings.IndexByte(in, '<')
	if open < 0 || !strings.HasSuffix(in, ">") {
		return nil, &ParseError{Input: s, Message: "expected <name><args>"}
	}
	name := strings.ToLower(in[:open])
	args := strings.Split(in[open+1:len(in)-1], ",")

	explicitSign := false
	switch {
	case strings.HasPrefix(name, "ac_"):
		name = name[3:]
		explicitSign = true
	case strings.HasPrefix(name, "ap_"):
		name = name[3:]
	}

	signed := true
	if !explicitSign && strings.HasPrefix(name, "u") {
		signed = false
		name = name[1:]
	}

	switch name {
	case "int":
		return parseInteger(s, args, signed, explicitSign, func(w int, sg bool) Precision { return NewInteger(w, sg) })
	case "exponent":
		return parseInteger(s, args, signed, explicitSign, func(w int, sg bool) Precision { return NewExponent(w, sg) })
	case "fixed":
		return parseFixed(s, args, signed, explicitSign)
	default:
		return nil, &ParseError{Input: s, Message: fmt.Sprintf("unknown precision type %q", name)}
	}
}

func parseInteger(input string, args []string, signed, explicitSign bool, build func(int, bool) Precision) (Precision, error) {
	want := 1
	if explicitSign {
		want = 2
	}
	if len(args) != want {
		return nil, &ParseError{Input: input, Message: fmt.Sprintf("expected %d argument(s), got %d", want, len(args))}
	}
	width, err := parsePositive(input, args[0], "width")
	if err != nil {
		return nil, err
	}
	if explicitSign {
		if signed, err = parseBool(input, args[1]); err != nil {
			return nil, err
		}
	}
	return build(width, signed), nil
}

func parseFixed(input string, args []string, signed, explicitSign bool) (Precision, error) {
	if len(args) < 2 {
		return nil, &ParseError{Input: input, Message: "fixed precision needs width and integer bits"}
	}
	width, err := parsePositive(input, args[0], "width")
	if err != nil {
		return nil, err
	}
	integer, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, &ParseError{Input: input, Message: fmt.Sprintf("integer bits %q is not a number", args[1])}
	}
	rest := args[2:]
	if explicitSign {
		if len(rest) == 0 {
			return nil, &ParseError{Input: input, Message: "ac_fixed needs an explicit signedness"}
		}
		if signed, err = parseBool(input, rest[0]); err != nil {
			return nil, err
		}
		rest = rest[1:]
	}
	if len(rest) > 3 {
		return nil, &ParseError{Input: input, Message: "too many arguments"}
	}

	p := NewFixed(width, integer, signed)
	if len(rest) > 0 {
		if p.Rounding, err = ParseRoundingMode(rest[0]); err != nil {
			return nil, &ParseError{Input: input, Message: err.Error()}
		}
	}
	if len(rest) > 1 {
		if p.Saturation, err = ParseSaturationMode(rest[1]); err != nil {
			return nil, &ParseError{Input: input, Message: err.Error()}
		}
	}
	if len(rest) > 2 {
		bits, err := strconv.Atoi(rest[2])
		if err != nil || bits < 0 {
			return nil, &ParseError{Input: input, Message: fmt.Sprintf("saturation bits %q must be a non-negative number", rest[2])}
		}
		p.SaturationBits = bits
	}
	return p, nil
}

func parsePositive(input, arg, what string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, &ParseError{Input: input, Message: fmt.Sprintf("%s %q must be a positive number", what, arg)}
	}
	return n, nil
}

func parseBool(input, arg string) (bool, error) {
	b, err := strconv.ParseBool(arg)
	if err != nil {
		return false, &ParseError{Input: input, Message: fmt.Sprintf("signedness %q must be true or false", arg)}
	}
	return b, nil
}
