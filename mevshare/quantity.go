package mevshare

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

var ErrInvalidNumericInput = errors.New("invalid numeric input")

// Integer lists the integer-like types accepted by NewQuantity.
// Strings may be decimal or 0x-prefixed hex.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~string | *big.Int
}

// Quantity is an integer-like value supplied by the caller.
// A nil *Quantity means the value is absent.
type Quantity struct {
	raw any
}

func NewQuantity[T Integer](v T) *Quantity {
	return &Quantity{raw: v}
}

// Big returns the value of q as a new big.Int.
func (q *Quantity) Big() (*big.Int, error) {
	if q == nil || q.raw == nil {
		return nil, ErrInvalidNumericInput
	}

	var res *big.Int
	switch v := q.raw.(type) {
	case *big.Int:
		if v == nil {
			return nil, ErrInvalidNumericInput
		}
		res = new(big.Int).Set(v)
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			res = big.NewInt(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			res = new(big.Int).SetUint64(rv.Uint())
		case reflect.String:
			s := rv.String()
			if s == "" {
				return nil, fmt.Errorf("%w: empty string", ErrInvalidNumericInput)
			}
			parsed, ok := math.ParseBig256(s)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrInvalidNumericInput, s)
			}
			res = parsed
		default:
			return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidNumericInput, v)
		}
	}

	if res.BitLen() > 256 {
		return nil, fmt.Errorf("%w: value exceeds 256 bits", ErrInvalidNumericInput)
	}
	if res.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %s", ErrInvalidNumericInput, res.String())
	}
	return res, nil
}

func (q *Quantity) String() string {
	h, err := ToHex(q)
	if err != nil {
		return fmt.Sprintf("%v", q.raw)
	}
	return h
}

// EncodeHex converts q into its wire representation: 0x-prefixed lowercase hex without leading zeros,
// "0x0" for zero. An absent quantity encodes to nil.
func EncodeHex(q *Quantity) (*hexutil.Big, error) {
	if q == nil {
		return nil, nil
	}
	v, err := q.Big()
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(v), nil
}

// ToHex is EncodeHex in string form. An absent quantity returns "".
func ToHex(q *Quantity) (string, error) {
	h, err := EncodeHex(q)
	if err != nil || h == nil {
		return "", err
	}
	return h.String(), nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	h, err := EncodeHex(&q)
	if err != nil {
		return nil, err
	}
	return json.Marshal(h)
}

// UnmarshalJSON accepts JSON numbers and strings holding decimal or hex digits.
// Numbers in exponent form are accepted when they hold an exact integer.
// The value is validated when it is encoded.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		q.raw = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		q.raw = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidNumericInput, string(data))
	}
	q.raw = n.String()
	if strings.ContainsAny(n.String(), ".eE") {
		if v, ok := exactInteger(n.String()); ok {
			q.raw = v.String()
		}
	}
	return nil
}

// exactInteger parses a decimal number such as 1e3 or 2.5e1 when its value is an integer of at most 256 bits
func exactInteger(s string) (*big.Int, bool) {
	f, _, err := big.ParseFloat(s, 10, 512, big.ToNearestEven)
	if err != nil || f.Acc() != big.Exact || !f.IsInt() {
		return nil, false
	}
	if f.MantExp(nil) > 256 {
		return nil, false
	}
	v, acc := f.Int(nil)
	if acc != big.Exact {
		return nil, false
	}
	return v, true
}
