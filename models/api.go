package models

import (
	"encoding/json"
)

// TokenResponse is the body returned by the OAuth2 token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ImportRequest is the body posted to the product-prices endpoint.
type ImportRequest struct {
	Products []ProductPayload `json:"products"`
}

type ProductPayload struct {
	ProductID int64          `json:"product_id"`
	Prices    []PricePayload `json:"prices"`
}

// PricePayload carries the price as a JSON number rendered from its decimal form.
type PricePayload struct {
	Market     string      `json:"market"`
	Channel    string      `json:"channel"`
	Price      json.Number `json:"price"`
	ValidFrom  string      `json:"valid_from"`
	ValidUntil string      `json:"valid_until"`
}

// ImportResponse reports how many products of a request the server accepted.
type ImportResponse struct {
	NumImported *int `json:"num_imported"`
}

// ValidationResult is the body returned by the validation endpoint.
type ValidationResult struct {
	CorrectChecksum bool      `json:"correct_checksum"`
	GCSUpload       GCSUpload `json:"gcs_upload"`
}

type GCSUpload struct {
	URL string `json:"url"`
}

// NewImportRequest converts grouped prices to the upload wire format.
func NewImportRequest(products []ProductPrices) ImportRequest {
	req := ImportRequest{Products: make([]ProductPayload, 0, len(products))}
	for _, p := range products {
		payload := ProductPayload{
			ProductID: p.ProductID,
			Prices:    make([]PricePayload, 0, len(p.Prices)),
		}
		for _, r := range p.Prices {
			payload.Prices = append(payload.Prices, PricePayload{
				Market:     r.Market,
				Channel:    r.Channel,
				Price:      json.Number(r.Price.String()),
				ValidFrom:  r.ValidFrom,
				ValidUntil: r.ValidUntil,
			})
		}
		req.Products = append(req.Products, payload)
	}
	return req
}
