// Package billing holds the pricing side of the platform: mapping a coarse
// location signal to a currency configuration and the premium plan price.
package billing

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PlanPremiumName is the name recorded on orders for the one paid plan.
const PlanPremiumName = "premium"

// CurrencyConfig describes how the premium plan is priced in one currency.
// Amounts are in the smallest currency unit (paise, cents, pence).
type CurrencyConfig struct {
	Code         string  `json:"code"`
	Symbol       string  `json:"symbol"`
	Multiplier   float64 `json:"multiplier"` // conversion factor from the INR base price
	MinAmount    int64   `json:"min_amount"` // gateway bounds for a charge
	MaxAmount    int64   `json:"max_amount"`
	PremiumPrice int64   `json:"premium_price"`
	DisplayPrice string  `json:"display_price"` // localized, e.g. "$5.99"
	locale       language.Tag
}

// currencyTable is keyed by ISO country code. Prices are hand-tuned rather
// than derived from the multiplier so each market gets a clean price point;
// the multiplier is retained for bound checks on arbitrary amounts.
var currencyTable = map[string]CurrencyConfig{
	"IN": {Code: "INR", Symbol: "₹", Multiplier: 1.0, MinAmount: 100, MaxAmount: 50000000, PremiumPrice: 49900, locale: language.MustParse("en-IN")},
	"US": {Code: "USD", Symbol: "$", Multiplier: 0.012, MinAmount: 50, MaxAmount: 1000000, PremiumPrice: 599, locale: language.AmericanEnglish},
	"GB": {Code: "GBP", Symbol: "£", Multiplier: 0.0095, MinAmount: 30, MaxAmount: 1000000, PremiumPrice: 499, locale: language.BritishEnglish},
	"CA": {Code: "CAD", Symbol: "$", Multiplier: 0.016, MinAmount: 50, MaxAmount: 1000000, PremiumPrice: 799, locale: language.MustParse("en-CA")},
	"AU": {Code: "AUD", Symbol: "$", Multiplier: 0.018, MinAmount: 50, MaxAmount: 1000000, PremiumPrice: 899, locale: language.MustParse("en-AU")},
	"SG": {Code: "SGD", Symbol: "$", Multiplier: 0.016, MinAmount: 50, MaxAmount: 1000000, PremiumPrice: 799, locale: language.MustParse("en-SG")},
	"AE": {Code: "AED", Symbol: "د.إ", Multiplier: 0.044, MinAmount: 200, MaxAmount: 1000000, PremiumPrice: 2199, locale: language.MustParse("ar-AE")},
}

// euroMembers share one EUR configuration.
var euroMembers = map[string]struct{}{
	"DE": {}, "FR": {}, "ES": {}, "IT": {}, "NL": {}, "IE": {}, "PT": {}, "AT": {}, "BE": {}, "FI": {},
}

var euroConfig = CurrencyConfig{
	Code: "EUR", Symbol: "€", Multiplier: 0.011, MinAmount: 50, MaxAmount: 1000000, PremiumPrice: 549,
	locale: language.MustParse("de-DE"),
}

var defaultConfig = currencyTable["US"]

// Resolve maps an ISO country code to its currency configuration. Unknown or
// empty countries fall back to USD. The function is pure.
func Resolve(countryCode string) CurrencyConfig {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	cfg, ok := currencyTable[code]
	if !ok {
		if _, euro := euroMembers[code]; euro {
			cfg = euroConfig
		} else {
			cfg = defaultConfig
		}
	}
	cfg.DisplayPrice = formatPrice(cfg)
	return cfg
}

// AmountWithinBounds reports whether a smallest-unit amount is chargeable in
// this currency.
func (c CurrencyConfig) AmountWithinBounds(amount int64) bool {
	return amount >= c.MinAmount && amount <= c.MaxAmount
}

func formatPrice(cfg CurrencyConfig) string {
	unit, err := currency.ParseISO(cfg.Code)
	if err != nil {
		return cfg.Symbol
	}
	p := message.NewPrinter(cfg.locale)
	return p.Sprintf("%v", currency.Symbol(unit.Amount(float64(cfg.PremiumPrice)/100)))
}
