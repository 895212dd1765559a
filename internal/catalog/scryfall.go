// internal/catalog/scryfall.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultScryfallURL is the public Scryfall API.
const DefaultScryfallURL = "https://api.scryfall.com"

const userAgent = "tablesync/1.0"

// ScryfallClient looks cards up by fuzzy name on the Scryfall API.
type ScryfallClient struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

// NewScryfallClient builds a client against baseURL (DefaultScryfallURL when empty).
func NewScryfallClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *ScryfallClient {
	if baseURL == "" {
		baseURL = DefaultScryfallURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ScryfallClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// scryfallError is the body Scryfall returns with non-2xx responses.
type scryfallError struct {
	Code    string `json:"code"`
	Details string `json:"details"`
}

// FetchCard performs GET /cards/named?fuzzy=<name>.
func (c *ScryfallClient) FetchCard(ctx context.Context, name string) (models.Card, error) {
	endpoint := c.baseURL + "/cards/named?fuzzy=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Card{}, fmt.Errorf("scryfall request for %q: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Card{}, fmt.Errorf("scryfall lookup %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr scryfallError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		if resp.StatusCode == http.StatusNotFound {
			return models.Card{}, fmt.Errorf("scryfall %q: %w", name, ErrCardNotFound)
		}
		return models.Card{}, fmt.Errorf("scryfall %q: status %d: %s", name, resp.StatusCode, apiErr.Details)
	}

	var card models.Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return models.Card{}, fmt.Errorf("decode scryfall card %q: %w", name, err)
	}
	c.logger.WithFields(logrus.Fields{"card": card.Name, "query": name}).Debug("fetched card from scryfall")
	return card, nil
}
