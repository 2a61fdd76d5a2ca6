package mevshare

// HintName is a wire-level hint token understood by the relay.
type HintName string

const (
	HintContractAddress  HintName = "contract_address"
	HintFunctionSelector HintName = "function_selector"
	HintCalldata         HintName = "calldata"
	HintLogs             HintName = "logs"
	HintDefaultLogs      HintName = "default_logs"
	HintTxHash           HintName = "tx_hash"
	HintHash             HintName = "hash"
)

// CanonicalHintOrder is the order in which hints are sent to the relay.
// HintHash is always last and always enabled: the relay never withholds the hash of a transaction,
// so setting every other hint to false is how a caller asks for full privacy.
var CanonicalHintOrder = [...]HintName{
	HintContractAddress,
	HintFunctionSelector,
	HintCalldata,
	HintLogs,
	HintDefaultLogs,
	HintTxHash,
	HintHash,
}

// HintPreferences selects which information about a transaction may be shared with searchers.
type HintPreferences struct {
	ContractAddress  bool `json:"contractAddress,omitempty"`
	FunctionSelector bool `json:"functionSelector,omitempty"`
	Calldata         bool `json:"calldata,omitempty"`
	Logs             bool `json:"logs,omitempty"`
	DefaultLogs      bool `json:"defaultLogs,omitempty"`
	TxHash           bool `json:"txHash,omitempty"`
}

type HintFlag struct {
	Name    HintName
	Enabled bool
}

func (h *HintPreferences) enabled(name HintName) bool {
	switch name {
	case HintContractAddress:
		return h.ContractAddress
	case HintFunctionSelector:
		return h.FunctionSelector
	case HintCalldata:
		return h.Calldata
	case HintLogs:
		return h.Logs
	case HintDefaultLogs:
		return h.DefaultLogs
	case HintTxHash:
		return h.TxHash
	case HintHash:
		return true
	}
	return false
}

// MungeHintPreferences maps the caller's flags to wire hint names in CanonicalHintOrder.
// A nil h is treated as all flags unset.
func MungeHintPreferences(h *HintPreferences) []HintFlag {
	if h == nil {
		h = &HintPreferences{}
	}
	res := make([]HintFlag, len(CanonicalHintOrder))
	for i, name := range CanonicalHintOrder {
		res[i] = HintFlag{Name: name, Enabled: h.enabled(name)}
	}
	return res
}

// ExtractSpecifiedHints returns the enabled hint names in canonical order.
// The result always ends with HintHash.
func ExtractSpecifiedHints(h *HintPreferences) []HintName {
	flags := MungeHintPreferences(h)
	res := make([]HintName, 0, len(flags))
	for _, f := range flags {
		if f.Enabled {
			res = append(res, f.Name)
		}
	}
	return res
}
