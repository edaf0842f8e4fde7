package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"priceupload/logger"
	"priceupload/models"
)

// Column names expected in the price CSV header.
const (
	ColumnProductID  = "product_id"
	ColumnMarket     = "market"
	ColumnChannel    = "channel"
	ColumnPrice      = "price"
	ColumnValidFrom  = "valid_from"
	ColumnValidUntil = "valid_until"
)

var requiredColumns = []string{
	ColumnProductID,
	ColumnMarket,
	ColumnChannel,
	ColumnPrice,
	ColumnValidFrom,
	ColumnValidUntil,
}

// ReadPrices parses price rows from r. The first row must be a header naming
// every required column; column order is free and unknown columns are ignored.
func ReadPrices(r io.Reader) ([]models.PriceRecord, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	csvReader.ReuseRecord = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, &models.DataError{Err: errors.New("file is empty")}
	}
	if err != nil {
		return nil, &models.DataError{Row: 1, Err: fmt.Errorf("csv read error: %w", err)}
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, &models.DataError{Row: 1, Err: err}
	}

	var records []models.PriceRecord
	for {
		fields, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			row := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				row = pe.StartLine
			}
			return nil, &models.DataError{Row: row, Err: fmt.Errorf("csv read error: %w", err)}
		}
		if isBlank(fields) {
			continue
		}

		// line where the record starts; quoted fields may span lines
		row, _ := csvReader.FieldPos(0)

		rec, err := parseRecord(fields, columns)
		if err != nil {
			return nil, &models.DataError{Row: row, Err: err}
		}
		rec.Row = row
		records = append(records, rec)
	}

	return records, nil
}

// LoadPriceFile reads and parses the price CSV at path.
func LoadPriceFile(path string) ([]models.PriceRecord, error) {
	log := logger.GetLogger().WithComponent("reader").WithFields(logger.Fields{
		"file":      path,
		"operation": "load_price_file",
	})

	f, err := os.Open(path)
	if err != nil {
		return nil, &models.DataError{File: path, Err: err}
	}
	defer f.Close()

	records, err := ReadPrices(f)
	if err != nil {
		var de *models.DataError
		if errors.As(err, &de) {
			de.File = path
		}
		return nil, err
	}

	logger.LogDataFlowEntry(log, path, "memory", len(records), "price_rows")
	return records, nil
}

func indexColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := columns[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		columns[name] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s): %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func parseRecord(fields []string, columns map[string]int) (models.PriceRecord, error) {
	get := func(name string) (string, error) {
		idx := columns[name]
		if idx >= len(fields) {
			return "", fmt.Errorf("missing %s", name)
		}
		v := strings.TrimSpace(fields[idx])
		if v == "" {
			return "", fmt.Errorf("missing %s", name)
		}
		return v, nil
	}

	var rec models.PriceRecord
	values := make(map[string]string, len(requiredColumns))
	for _, name := range requiredColumns {
		v, err := get(name)
		if err != nil {
			return rec, err
		}
		values[name] = v
	}

	id, err := parseProductID(values[ColumnProductID])
	if err != nil {
		return rec, err
	}
	price, err := decimal.NewFromString(values[ColumnPrice])
	if err != nil {
		return rec, fmt.Errorf("invalid price %q", values[ColumnPrice])
	}

	rec.ProductID = id
	rec.Market = values[ColumnMarket]
	rec.Channel = values[ColumnChannel]
	rec.Price = price
	rec.ValidFrom = values[ColumnValidFrom]
	rec.ValidUntil = values[ColumnValidUntil]
	return rec, nil
}

// parseProductID accepts plain integers and integral floats such as "123.0",
// which spreadsheet exports commonly produce.
func parseProductID(s string) (int64, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("invalid product_id %q", s)
	}
	return d.IntPart(), nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
