package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"priceupload/models"
)

// LoadCredentials reads the {"client_id", "client_secret"} JSON file at path.
func LoadCredentials(path string) (models.Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Credential{}, &models.DataError{File: path, Err: err}
	}

	cred, err := ParseCredentials(data)
	if err != nil {
		return models.Credential{}, &models.DataError{File: path, Err: err}
	}
	return cred, nil
}

// ParseCredentials decodes a credentials document, rejecting unknown fields
// and empty values.
func ParseCredentials(data []byte) (models.Credential, error) {
	var cred models.Credential

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cred); err != nil {
		return models.Credential{}, fmt.Errorf("failed to parse credentials: %w", err)
	}

	cred.ClientID = strings.TrimSpace(cred.ClientID)
	cred.ClientSecret = strings.TrimSpace(cred.ClientSecret)

	var missing []string
	if cred.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if cred.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return models.Credential{}, errors.New("missing " + strings.Join(missing, ", "))
	}
	return cred, nil
}
