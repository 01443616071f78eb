// README: Fare configuration and ride classes.
package pricing

import "fmt"

type RideClass string

const (
	ClassDirect RideClass = "direct"
	ClassPooled RideClass = "pooled"
)

func ParseRideClass(s string) (RideClass, error) {
	switch RideClass(s) {
	case ClassDirect, ClassPooled:
		return RideClass(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownClass, s)
}

// Config holds the tariff. Rates are in whole lempiras.
type Config struct {
	PerKmRate      float64
	MinimumFare    float64
	PooledDiscount float64
}

// Configuration table keys.
const (
	KeyPerKmRate      = "price_per_km"
	KeyMinimumFare    = "minimum_fare"
	KeyPooledDiscount = "pooled_discount"
)

func DefaultConfig() Config {
	return Config{PerKmRate: 15, MinimumFare: 30, PooledDiscount: 0.3}
}
