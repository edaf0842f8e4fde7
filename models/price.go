package models

import (
	"github.com/shopspring/decimal"
)

// Credential is the OAuth2 client-credentials pair used to obtain an access token.
type Credential struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// PriceRecord is one row of the input CSV.
type PriceRecord struct {
	ProductID  int64
	Market     string
	Channel    string
	Price      decimal.Decimal
	ValidFrom  string
	ValidUntil string
	Row        int // 1-based line where the record starts in the source file
}

// ProductPrices groups every price row of a single product in input order.
type ProductPrices struct {
	ProductID int64
	Prices    []PriceRecord
}

// RowCount returns the number of price rows across products.
func RowCount(products []ProductPrices) int {
	n := 0
	for _, p := range products {
		n += len(p.Prices)
	}
	return n
}
