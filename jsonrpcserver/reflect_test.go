package jsonrpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type ctxKey string

type dummyStruct struct {
	Field int `json:"field"`
}

func rawParams(raw string) []json.RawMessage {
	var params []json.RawMessage
	err := json.Unmarshal([]byte(raw), &params)
	if err != nil {
		panic(err)
	}
	return params
}

func TestNewMethod(t *testing.T) {
	testCases := map[string]struct {
		fn          any
		expectedErr error
		args        int
	}{
		"with args": {
			fn:   func(ctx context.Context, arg1 int, arg2 float32) error { return nil },
			args: 2,
		},
		"without args": {
			fn:   func(ctx context.Context) (int, error) { return 0, nil },
			args: 0,
		},
		"not a function": {
			fn:          42,
			expectedErr: ErrNotFunction,
		},
		"nil": {
			fn:          nil,
			expectedErr: ErrNotFunction,
		},
		"without context": {
			fn:          func(arg1 int, arg2 float32) error { return nil },
			expectedErr: ErrMustHaveContext,
		},
		"without error": {
			fn:          func(ctx context.Context, arg1 int) (int, float32) { return 0, 0 },
			expectedErr: ErrMustReturnError,
		},
		"too many return values": {
			fn:          func(ctx context.Context, arg1 int) (int, float32, error) { return 0, 0, nil },
			expectedErr: ErrTooManyReturnValues,
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			m, err := newMethod(testCase.fn)
			if testCase.expectedErr != nil {
				require.ErrorIs(t, err, testCase.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, m.args, testCase.args)
		})
	}
}

func TestDecodeParams(t *testing.T) {
	m, err := newMethod(func(context.Context, int, float32, []int, dummyStruct) error {
		return nil
	})
	require.NoError(t, err)

	args, err := m.decodeParams(rawParams(`[1, 2.0, [2, 3, 5], {"field": 11}]`))
	require.NoError(t, err)
	require.Equal(t, 4, len(args))
	require.Equal(t, int(1), args[0].Interface())
	require.Equal(t, float32(2.0), args[1].Interface())
	require.Equal(t, []int{2, 3, 5}, args[2].Interface())
	require.Equal(t, dummyStruct{Field: 11}, args[3].Interface())

	// trailing params are optional
	args, err = m.decodeParams(rawParams(`[1]`))
	require.NoError(t, err)
	require.Equal(t, 4, len(args))
	require.Equal(t, dummyStruct{}, args[3].Interface())

	_, err = m.decodeParams(rawParams(`[1, 2, [], {}, 5]`))
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = m.decodeParams(rawParams(`["1"]`))
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestCall(t *testing.T) {
	var (
		errorArg = 0
		errorOut = errors.New("function error") //nolint:goerr113
	)
	functionWithTypes := func(ctx context.Context, arg int) (dummyStruct, error) {
		value := ctx.Value(ctxKey("key")).(string) //nolint:forcetypeassert
		require.Equal(t, "value", value)

		if arg == errorArg {
			return dummyStruct{}, errorOut
		}
		return dummyStruct{arg}, nil
	}
	functionNoArgs := func(ctx context.Context) (dummyStruct, error) {
		return dummyStruct{1}, nil
	}
	functionNoReturn := func(ctx context.Context, arg int) error {
		return nil
	}
	functionNoReturnError := func(ctx context.Context, arg int) error {
		return errorOut
	}

	testCases := map[string]struct {
		function      any
		args          string
		expectedValue any
		expectedError error
	}{
		"functionWithTypes": {
			function:      functionWithTypes,
			args:          `[1]`,
			expectedValue: dummyStruct{1},
		},
		"functionWithTypesError": {
			function:      functionWithTypes,
			args:          fmt.Sprintf(`[%d]`, errorArg),
			expectedValue: dummyStruct{},
			expectedError: errorOut,
		},
		"functionNoArgs": {
			function:      functionNoArgs,
			args:          `[]`,
			expectedValue: dummyStruct{1},
		},
		"functionNoReturn": {
			function:      functionNoReturn,
			args:          `[1]`,
			expectedValue: nil,
		},
		"functionNoReturnError": {
			function:      functionNoReturnError,
			args:          `[1]`,
			expectedValue: nil,
			expectedError: errorOut,
		},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			m, err := newMethod(testCase.function)
			require.NoError(t, err)

			ctx := context.WithValue(context.Background(), ctxKey("key"), "value")

			result, err := m.call(ctx, rawParams(testCase.args))
			if testCase.expectedError == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, testCase.expectedError)
			}
			require.Equal(t, testCase.expectedValue, result)
		})
	}
}
