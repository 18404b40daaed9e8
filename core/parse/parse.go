package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/leofalp/genchat/providers/ai"
)

// ErrNoJSON is returned when text contains nothing decodable as JSON.
var ErrNoJSON = errors.New("parse: no JSON value found")

// ResponseAs decodes the text of resp into T. Blocked responses fail with
// the error of [ai.GenerateContentResponse.Text].
func ResponseAs[T any](resp *ai.GenerateContentResponse) (T, error) {
	var zero T
	if resp == nil {
		return zero, errors.New("parse: nil response")
	}
	text, err := resp.Text()
	if err != nil {
		return zero, err
	}
	return As[T](text)
}

// FunctionArgsAs decodes the arguments of call into T.
func FunctionArgsAs[T any](call ai.FunctionCall) (T, error) {
	args := strings.TrimSpace(string(call.Args))
	if args == "" {
		args = "{}"
	}
	v, err := As[T](args)
	if err != nil {
		return v, fmt.Errorf("parse: arguments of %s: %w", call.Name, err)
	}
	return v, nil
}

// As decodes text into T. Strings are returned as is (unless text is a
// schema envelope); other scalars use strconv; everything else goes through
// the JSON recovery chain described in the package documentation.
//
//	type Person struct {
//	    Name string `json:"name"`
//	    Age  int    `json:"age"`
//	}
//
//	person, err := parse.As[Person]("Sure! ```json\n{name: 'John', age: 30}\n```")
func As[T any](text string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()
	trimmed := strings.TrimSpace(text)

	switch target.Kind() {
	case reflect.String:
		if strings.HasPrefix(trimmed, "{") {
			if unwrapped, err := unwrapPrimitive(trimmed); err == nil {
				target.SetString(unwrapped)
				return result, nil
			}
		}
		target.SetString(text)
		return result, nil

	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		err := setScalar(target, trimmed)
		if err != nil {
			if unwrapped, unwrapErr := unwrapPrimitive(trimmed); unwrapErr == nil {
				if setScalar(target, unwrapped) == nil {
					return result, nil
				}
			}
			return result, fmt.Errorf("parse: %q as %s: %w", trimmed, target.Kind(), err)
		}
		return result, nil
	}

	if err := decodeJSON(trimmed, &result); err != nil {
		return result, err
	}
	return result, nil
}

func setScalar(target reflect.Value, s string) error {
	switch target.Kind() {
	case reflect.Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		target.SetBool(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(s, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetFloat(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(s, 10, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetUint(v)
	default:
		v, err := strconv.ParseInt(s, 10, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetInt(v)
	}
	return nil
}

// decodeJSON runs the recovery chain. The first error seen is reported when
// every step fails.
func decodeJSON[T any](text string, out *T) error {
	firstErr := json.Unmarshal([]byte(text), out)
	if firstErr == nil {
		return nil
	}

	candidates := extractJSONCandidates(stripCodeFence(text))
	for _, candidate := range candidates {
		if json.Unmarshal([]byte(candidate), out) == nil {
			return nil
		}
	}

	repaired, err := jsonrepair.JSONRepair(stripCodeFence(text))
	if err != nil {
		if len(candidates) == 0 {
			return fmt.Errorf("%w: %v", ErrNoJSON, err)
		}
		return fmt.Errorf("parse: decode %T: %w", *out, firstErr)
	}
	if json.Unmarshal([]byte(repaired), out) == nil {
		return nil
	}

	if unwrapped, err := unwrapSchemaValues(repaired); err == nil {
		if json.Unmarshal([]byte(unwrapped), out) == nil {
			return nil
		}
	}
	for _, candidate := range candidates {
		if unwrapped, err := unwrapSchemaValues(candidate); err == nil {
			if json.Unmarshal([]byte(unwrapped), out) == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("parse: decode %T (repaired: %s): %w", *out, repaired, firstErr)
}

// stripCodeFence returns the body of the first markdown code fence in text,
// or text unchanged.
func stripCodeFence(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	body := text[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// extractJSONCandidates returns the top-level balanced {...} or [...] spans
// of text in order. Brackets inside string literals are ignored and
// unterminated spans are dropped.
func extractJSONCandidates(text string) []string {
	candidates := []string{}
	for start := 0; start < len(text); start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		if end := matchBracket(text, start); end > 0 {
			candidates = append(candidates, text[start:end+1])
			start = end
		}
	}
	return candidates
}

// matchBracket returns the index closing the bracket at start, or -1.
func matchBracket(text string, start int) int {
	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// unwrapPrimitive returns the value of a {"type": ..., "value": ...}
// envelope as a string.
func unwrapPrimitive(text string) (string, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return "", err
	}
	value, ok := schemaValue(data)
	if !ok {
		return "", errors.New("not a schema envelope")
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case float64, bool:
		return fmt.Sprint(v), nil
	default:
		b, err := json.Marshal(v)
		return string(b), err
	}
}

// unwrapSchemaValues replaces every schema envelope in a JSON document with
// its value:
//
//	{"name": {"type": "string", "value": "John"}}  →  {"name": "John"}
func unwrapSchemaValues(text string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return "", err
	}
	out, err := json.Marshal(unwrap(data))
	return string(out), err
}

func unwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if value, ok := schemaValue(v); ok {
			return unwrap(value)
		}
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = unwrap(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = unwrap(val)
		}
		return out
	default:
		return data
	}
}

func schemaValue(m map[string]any) (any, bool) {
	if len(m) != 2 {
		return nil, false
	}
	if _, hasType := m["type"]; !hasType {
		return nil, false
	}
	value, hasValue := m["value"]
	return value, hasValue
}
