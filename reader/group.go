package reader

import (
	"priceupload/models"
)

// GroupByProduct collects the price rows of each product. Products appear in
// the order their id is first seen; rows keep their input order.
func GroupByProduct(records []models.PriceRecord) []models.ProductPrices {
	index := make(map[int64]int)
	groups := make([]models.ProductPrices, 0)

	for _, rec := range records {
		i, ok := index[rec.ProductID]
		if !ok {
			i = len(groups)
			index[rec.ProductID] = i
			groups = append(groups, models.ProductPrices{ProductID: rec.ProductID})
		}
		groups[i].Prices = append(groups[i].Prices, rec)
	}

	return groups
}
