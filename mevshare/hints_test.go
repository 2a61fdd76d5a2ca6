package mevshare

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractSpecifiedHints(t *testing.T) {
	tests := []struct {
		name  string
		input *HintPreferences
		want  []HintName
	}{
		{
			name:  "nothing set",
			input: &HintPreferences{},
			want:  []HintName{HintHash},
		},
		{
			name:  "nil preferences",
			input: nil,
			want:  []HintName{HintHash},
		},
		{
			name:  "calldata and logs",
			input: &HintPreferences{Logs: true, Calldata: true},
			want:  []HintName{HintCalldata, HintLogs, HintHash},
		},
		{
			name: "everything",
			input: &HintPreferences{
				ContractAddress:  true,
				FunctionSelector: true,
				Calldata:         true,
				Logs:             true,
				DefaultLogs:      true,
				TxHash:           true,
			},
			want: []HintName{
				HintContractAddress, HintFunctionSelector, HintCalldata, HintLogs, HintDefaultLogs, HintTxHash, HintHash,
			},
		},
		{
			name:  "tx hash and contract address",
			input: &HintPreferences{TxHash: true, ContractAddress: true},
			want:  []HintName{HintContractAddress, HintTxHash, HintHash},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractSpecifiedHints(tt.input))
		})
	}
}

// every combination of flags keeps canonical order and includes hash
func TestExtractSpecifiedHintsAllCombinations(t *testing.T) {
	position := make(map[HintName]int, len(CanonicalHintOrder))
	for i, name := range CanonicalHintOrder {
		position[name] = i
	}

	for mask := 0; mask < 1<<6; mask++ {
		prefs := &HintPreferences{
			ContractAddress:  mask&(1<<0) != 0,
			FunctionSelector: mask&(1<<1) != 0,
			Calldata:         mask&(1<<2) != 0,
			Logs:             mask&(1<<3) != 0,
			DefaultLogs:      mask&(1<<4) != 0,
			TxHash:           mask&(1<<5) != 0,
		}
		hints := ExtractSpecifiedHints(prefs)

		require.NotEmpty(t, hints)
		require.Equal(t, HintHash, hints[len(hints)-1])
		require.Len(t, hints, bitCount(mask)+1)
		for i := 1; i < len(hints); i++ {
			require.Less(t, position[hints[i-1]], position[hints[i]], "mask %b: %v", mask, hints)
		}
	}
}

func TestMungeHintPreferences(t *testing.T) {
	flags := MungeHintPreferences(&HintPreferences{FunctionSelector: true})
	require.Equal(t, []HintFlag{
		{HintContractAddress, false},
		{HintFunctionSelector, true},
		{HintCalldata, false},
		{HintLogs, false},
		{HintDefaultLogs, false},
		{HintTxHash, false},
		{HintHash, true},
	}, flags)
}

func bitCount(v int) int {
	n := 0
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func TestHintPreferencesTags(t *testing.T) {
	typ := reflect.TypeOf(HintPreferences{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		require.NotEmpty(t, field.Tag.Get("json"), field.Name)
		require.Empty(t, field.Tag.Get("yaml"), field.Name)
	}

	var prefs HintPreferences
	require.NoError(t, json.Unmarshal([]byte(`{"contractAddress": true, "defaultLogs": true, "txHash": true}`), &prefs))
	require.Equal(t, HintPreferences{ContractAddress: true, DefaultLogs: true, TxHash: true}, prefs)
}
