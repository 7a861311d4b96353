// Package catalog loads the static product list that is embedded into the
// system prompt.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	logx "github.com/avvvet/coffeebuddy/pkg/logger"
)

type Product struct {
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Catalog maps product names to their details. It is read-only once loaded
// and safe to share between goroutines.
type Catalog map[string]Product

// Default is served when the catalog file cannot be read.
func Default() Catalog {
	return Catalog{
		"Espresso":   {Description: "Strong coffee", Price: 30},
		"Cappuccino": {Description: "Coffee with milk foam", Price: 40},
	}
}

func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return c, nil
}

// LoadOrDefault loads path and falls back to Default on any error.
func LoadOrDefault(path string) Catalog {
	c, err := Load(path)
	if err != nil {
		logx.Warn().Err(err).Str("path", path).Msg("using built-in catalog")
		return Default()
	}
	logx.Info().Str("path", path).Int("products", len(c)).Msg("catalog loaded")
	return c
}

// String returns the canonical JSON form used in prompts. Keys are sorted
// by encoding/json, so equal catalogs always render identically. Text is
// written as-is: "&" and "<" reach the model unescaped.
func (c Catalog) String() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
