package classifier

import (
	"fmt"
	"math"
	"strconv"

	"parlaygen/internal/types"
)

// AmericanToDecimal converts American odds notation to decimal odds.
func AmericanToDecimal(odds string) (float64, error) {
	if !types.ValidOdds(odds) {
		return 0, fmt.Errorf("malformed American odds %q", odds)
	}
	n, err := strconv.Atoi(odds)
	if err != nil {
		return 0, fmt.Errorf("malformed American odds %q: %w", odds, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("American odds cannot be zero")
	}
	if n > 0 {
		return float64(n)/100 + 1, nil
	}
	return 100/math.Abs(float64(n)) + 1, nil
}

// DecimalToAmerican converts decimal odds back to American notation.
func DecimalToAmerican(decimal float64) (string, error) {
	if decimal <= 1 {
		return "", fmt.Errorf("decimal odds must exceed 1, got %v", decimal)
	}
	if decimal >= 2 {
		return fmt.Sprintf("+%d", int(math.Round((decimal-1)*100))), nil
	}
	return strconv.Itoa(int(math.Round(-100 / (decimal - 1)))), nil
}

// CombinedOdds multiplies every leg's decimal odds and converts the product
// back to American notation. This is the canonical computation for any
// combined-odds value a backend omits. Order-independent.
func CombinedOdds(legs []types.Leg) (string, error) {
	if len(legs) == 0 {
		return "", fmt.Errorf("no legs to combine")
	}
	product := 1.0
	for i := range legs {
		d, err := AmericanToDecimal(legs[i].Odds)
		if err != nil {
			return "", fmt.Errorf("leg %d: %w", i, err)
		}
		product *= d
	}
	return DecimalToAmerican(product)
}
