package pricing

import (
	"context"
	"errors"
	"net/http"

	"priceupload/models"
)

// SubmitProducts posts one batch of products and returns how many of them,
// counted from the start of the batch, the server imported.
func (c *Client) SubmitProducts(ctx context.Context, token string, products []models.ProductPrices) (int, error) {
	var resp models.ImportResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      UploadPath,
		body:      models.NewImportRequest(products),
		prepare:   bearer(token),
		operation: "submit_products",
	}, &resp)
	if err != nil {
		return 0, &models.UploadError{StatusCode: statusOf(err), Err: err}
	}
	if resp.NumImported == nil {
		return 0, &models.UploadError{Err: errors.New("response has no num_imported")}
	}
	return *resp.NumImported, nil
}

// Validate asks the server to check the uploaded prices. It has no side effects.
func (c *Client) Validate(ctx context.Context, token string) (models.ValidationResult, error) {
	var result models.ValidationResult
	err := c.do(ctx, request{
		method:    http.MethodGet,
		path:      ValidatePath,
		prepare:   bearer(token),
		operation: "validate",
	}, &result)
	if err != nil {
		return models.ValidationResult{}, &models.ValidationError{StatusCode: statusOf(err), Err: err}
	}
	return result, nil
}
