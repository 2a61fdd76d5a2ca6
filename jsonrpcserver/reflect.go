package jsonrpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNotFunction         = errors.New("not a function")
	ErrMustReturnError     = errors.New("function must return error as a last return value")
	ErrMustHaveContext     = errors.New("function must have context.Context as a first argument")
	ErrTooManyReturnValues = errors.New("too many return values")

	ErrInvalidParams = errors.New("invalid params")
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

type method struct {
	fn      reflect.Value
	args    []reflect.Type
	results int
}

func newMethod(fn any) (*method, error) {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, ErrNotFunction
	}

	if fnType.NumIn() == 0 || fnType.In(0) != contextType {
		return nil, ErrMustHaveContext
	}
	args := make([]reflect.Type, 0, fnType.NumIn()-1)
	for i := 1; i < fnType.NumIn(); i++ {
		args = append(args, fnType.In(i))
	}

	numOut := fnType.NumOut()
	if numOut == 0 || !fnType.Out(numOut-1).Implements(errorType) {
		return nil, ErrMustReturnError
	}
	if numOut > 2 {
		return nil, ErrTooManyReturnValues
	}

	return &method{
		fn:      reflect.ValueOf(fn),
		args:    args,
		results: numOut,
	}, nil
}

func (m *method) call(ctx context.Context, params []json.RawMessage) (any, error) {
	args, err := m.decodeParams(params)
	if err != nil {
		return nil, err
	}

	results := m.fn.Call(append([]reflect.Value{reflect.ValueOf(ctx)}, args...))

	var outErr error
	if errVal := results[len(results)-1]; !errVal.IsNil() {
		outErr = errVal.Interface().(error) //nolint:forcetypeassert
	}
	if m.results == 1 {
		return nil, outErr
	}
	return results[0].Interface(), outErr
}

// decodeParams maps positional params onto the argument types, missing trailing params are left as zero values
func (m *method) decodeParams(params []json.RawMessage) ([]reflect.Value, error) {
	if len(params) > len(m.args) {
		return nil, fmt.Errorf("%w: expected at most %d, got %d", ErrInvalidParams, len(m.args), len(params))
	}

	values := make([]reflect.Value, len(m.args))
	for i, argType := range m.args {
		arg := reflect.New(argType)
		if i < len(params) {
			if err := json.Unmarshal(params[i], arg.Interface()); err != nil {
				return nil, fmt.Errorf("%w: param %d: %s", ErrInvalidParams, i, err.Error())
			}
		}
		values[i] = arg.Elem()
	}
	return values, nil
}
