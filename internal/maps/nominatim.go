package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mototaxi/internal/types"
)

const providerNominatim = "nominatim"

// NominatimClient reverse geocodes against an OpenStreetMap Nominatim server.
// Nominatim's usage policy requires an identifying User-Agent.
type NominatimClient struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

func NewNominatimClient(endpoint, userAgent string) *NominatimClient {
	return &NominatimClient{
		Endpoint:  strings.TrimRight(endpoint, "/"),
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NominatimClient) ReverseGeocode(ctx context.Context, p types.Point) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", &AdapterError{Provider: providerNominatim, Op: "reverse", Err: err}
	}
	if n.UserAgent != "" {
		req.Header.Set("User-Agent", n.UserAgent)
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return "", &AdapterError{Provider: providerNominatim, Op: "reverse", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &AdapterError{Provider: providerNominatim, Op: "reverse", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var out struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &AdapterError{Provider: providerNominatim, Op: "decode reverse", Err: err}
	}
	label := shortLabel(out.DisplayName)
	if label == "" {
		return "", ErrNoLabel
	}
	return label, nil
}
