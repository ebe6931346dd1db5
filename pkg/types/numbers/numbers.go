package numbers

import (
	"github.com/shopspring/decimal"
)

// ROOT and XRP both use 6 decimals on TRN.
const RootDecimals = 6

// FormatUnits converts an integer planck amount, stored as a string, into
// whole units. The sign is preserved.
func FormatUnits(amount string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", err
	}
	return d.Shift(-decimals).String(), nil
}
