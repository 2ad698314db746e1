package network

import "fmt"

// Amount is a fare in minor currency units (kopecks, cents).
type Amount int64

func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign, a = "-", -a
	}
	return fmt.Sprintf("%s%d.%02d", sign, a/100, a%100)
}

// TariffKind discriminates the Tariff variants.
type TariffKind int

const (
	FlatRateTariff TariffKind = iota + 1
	ZoneBasedTariff
	ExternalQuoteTariff
)

func (k TariffKind) String() string {
	switch k {
	case FlatRateTariff:
		return "flat_rate"
	case ZoneBasedTariff:
		return "zone_based"
	case ExternalQuoteTariff:
		return "external_quote"
	}
	return "unknown"
}

// Tariff is the fare strategy attached to a line. Only the fields relevant to
// Kind are set; use the constructors below.
type Tariff struct {
	Kind       TariffKind
	Price      Amount
	ZonePrices map[int]Amount
}

func FlatRate(price Amount) *Tariff {
	return &Tariff{Kind: FlatRateTariff, Price: price}
}

func ZoneBased(prices map[int]Amount) *Tariff {
	return &Tariff{Kind: ZoneBasedTariff, ZonePrices: prices}
}

// ExternalQuote marks lines whose fares come from the schedule service.
func ExternalQuote() *Tariff {
	return &Tariff{Kind: ExternalQuoteTariff}
}

// ZonePrice returns the price for zone, or 0 when the table has no entry.
func (t *Tariff) ZonePrice(zone int) Amount {
	if t == nil || t.ZonePrices == nil {
		return 0
	}
	return t.ZonePrices[zone]
}
