package client

import (
	"github.com/go-playground/validator/v10"
)

// Currency is an ISO 4217 code accepted by the airtime and payments APIs.
type Currency string

const (
	CurrencyKES Currency = "KES"
	CurrencyUGX Currency = "UGX"
	CurrencyTZS Currency = "TZS"
	CurrencyRWF Currency = "RWF"
	CurrencyZMW Currency = "ZMW"
	CurrencyNGN Currency = "NGN"
	CurrencyGHS Currency = "GHS"
	CurrencyMWK Currency = "MWK"
	CurrencyZAR Currency = "ZAR"
	CurrencyETB Currency = "ETB"
	CurrencyUSD Currency = "USD"
)

var currencies = map[Currency]struct{}{
	CurrencyKES: {}, CurrencyUGX: {}, CurrencyTZS: {}, CurrencyRWF: {},
	CurrencyZMW: {}, CurrencyNGN: {}, CurrencyGHS: {}, CurrencyMWK: {},
	CurrencyZAR: {}, CurrencyETB: {}, CurrencyUSD: {},
}

// Valid reports whether the gateway accepts the currency.
func (c Currency) Valid() bool {
	_, ok := currencies[c]
	return ok
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return Currency(fl.Field().String()).Valid()
	})
	return v
}
