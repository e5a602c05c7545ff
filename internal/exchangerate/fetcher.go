package exchangerate

import (
	"context"
	"fmt"

	xhttp "github.com/grocerycompare/price-service/internal/http"
)

type latestResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// APIFetcher reads rates.DKK from an open.er-api.com style endpoint.
type APIFetcher struct {
	client *xhttp.Client
	url    string
}

// NewAPIFetcher creates a fetcher for url using client.
func NewAPIFetcher(client *xhttp.Client, url string) *APIFetcher {
	if url == "" {
		url = DefaultURL
	}
	return &APIFetcher{client: client, url: url}
}

// Fetch returns the current SEK to DKK rate.
func (f *APIFetcher) Fetch(ctx context.Context) (float64, error) {
	var body latestResponse
	if err := f.client.GetJSON(ctx, f.url, &body); err != nil {
		return 0, fmt.Errorf("fetch exchange rate: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return 0, fmt.Errorf("exchange rate api returned result %q", body.Result)
	}
	dkk, ok := body.Rates["DKK"]
	if !ok || dkk <= 0 {
		return 0, fmt.Errorf("exchange rate api response has no DKK rate")
	}
	return dkk, nil
}
