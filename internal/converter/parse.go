package converter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alevsk/bicep-deployer/internal/types"
)

// ParseError carries the parser's error text.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParseFailed, e.Err}
}

// Parse decodes content into a NativeTemplate. The document must be a single
// JSON object. In strict mode it must also carry "$schema" and "resources".
func Parse(content []byte, strict bool) (types.NativeTemplate, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: errors.New("converted template is empty")}
		}
		return nil, &ParseError{Err: err}
	}
	if doc == nil {
		return nil, &ParseError{Err: errors.New("converted template is null")}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Err: errors.New("unexpected data after top-level JSON object")}
	}

	if strict {
		for _, key := range []string{"$schema", "resources"} {
			if _, ok := doc[key]; !ok {
				return nil, &ParseError{Err: fmt.Errorf("converted template has no %q property", key)}
			}
		}
	}

	return types.NativeTemplate(doc), nil
}
