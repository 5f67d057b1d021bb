package walletsession

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FormatUnits renders value (in the smallest unit) as a decimal string in the
// display unit, without trailing zeros. FormatUnits(10^18, 18) is "1".
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	if decimals <= 0 {
		return value.String()
	}

	digits := new(big.Int).Abs(value).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-decimals]
	fraction := strings.TrimRight(digits[len(digits)-decimals:], "0")

	out := whole
	if fraction != "" {
		out += "." + fraction
	}
	if value.Sign() < 0 {
		out = "-" + out
	}
	return out
}

// ParseQuantity decodes a JSON-RPC quantity. Wallets return hex strings
// ("0xde0b6b3a7640000"); decimal strings and JSON numbers are accepted too.
func ParseQuantity(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("invalid quantity %s", string(raw))
		}
		s = n.String()
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if v, err := hexutil.DecodeBig(s); err == nil {
			return v, nil
		}
		// tolerate leading zeros, which hexutil rejects
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex quantity %q", s)
		}
		return v, nil
	}

	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}
