package extract

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kaptinlin/jsonrepair"
)

// Normalizer is implemented by payloads that clean themselves up after
// decoding and before validation.
type Normalizer interface {
	Normalize()
}

// Slice returns the text between the first open and the last close bracket,
// inclusive. It returns "" when no such pair exists.
func Slice(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// ParseObject decodes the outermost {...} of text into T.
func ParseObject[T any](text string, v *validator.Validate) Result[T] {
	body := Slice(text, '{', '}')
	if body == "" {
		return Empty[T]("no JSON object in output")
	}
	var out T
	if err := decode(body, &out); err != nil {
		return Invalid[T](err.Error())
	}
	if err := check(v, &out); err != nil {
		return Invalid[T](err.Error())
	}
	return Parsed(out)
}

// ParseArray decodes the outermost [...] of text into []T.
func ParseArray[T any](text string, v *validator.Validate) Result[[]T] {
	body := Slice(text, '[', ']')
	if body == "" {
		return Empty[[]T]("no JSON array in output")
	}
	var out []T
	if err := decode(body, &out); err != nil {
		return Invalid[[]T](err.Error())
	}
	for i := range out {
		if err := check(v, &out[i]); err != nil {
			return Invalid[[]T](fmt.Sprintf("element %d: %v", i, err))
		}
	}
	if out == nil {
		out = []T{}
	}
	return Parsed(out)
}

// decode unmarshals body, retrying once on a repaired copy.
func decode(body string, dst any) error {
	err := json.Unmarshal([]byte(body), dst)
	if err == nil {
		return nil
	}
	repaired, repairErr := jsonrepair.JSONRepair(body)
	if repairErr != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), dst); err != nil {
		return fmt.Errorf("failed to parse repaired JSON: %w", err)
	}
	return nil
}

// check normalizes then validates ptr. Only struct values carry validation tags.
func check(v *validator.Validate, ptr any) error {
	if n, ok := ptr.(Normalizer); ok {
		n.Normalize()
	}
	if v == nil {
		return nil
	}
	if reflect.Indirect(reflect.ValueOf(ptr)).Kind() != reflect.Struct {
		return nil
	}
	if err := v.Struct(ptr); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
