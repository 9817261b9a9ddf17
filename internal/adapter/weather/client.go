package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// Client implements the weather collaborator over HTTP
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a weather client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type forecastResponse struct {
	Current struct {
		Condition string `json:"condition"`
	} `json:"current"`
	Forecast []struct {
		Date string  `json:"date"`
		High float64 `json:"high"`
		Low  float64 `json:"low"`
		Text string  `json:"text"`
	} `json:"forecast"`
	Alerts []struct {
		Headline string `json:"headline"`
		Severity string `json:"severity"`
		Expires  string `json:"expires"`
	} `json:"alerts"`
}

// Fetch retrieves current conditions, forecast and alerts for an address
func (c *Client) Fetch(ctx context.Context, address string, days int) (*domain.WeatherReport, error) {
	endpoint := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, url.Values{
		"q":    {address},
		"days": {strconv.Itoa(days)},
		"key":  {c.apiKey},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.ExternalDegraded("weather fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ExternalDegraded(fmt.Sprintf("weather service returned %d", resp.StatusCode), nil)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperror.ExternalDegraded("malformed weather payload", err)
	}

	report := &domain.WeatherReport{Current: payload.Current.Condition}
	for _, day := range payload.Forecast {
		date, _ := time.Parse("2006-01-02", day.Date)
		report.Forecast = append(report.Forecast, domain.WeatherDay{Date: date, High: day.High, Low: day.Low, Text: day.Text})
	}
	for _, alert := range payload.Alerts {
		expires, _ := time.Parse(time.RFC3339, alert.Expires)
		report.Alerts = append(report.Alerts, domain.WeatherAlert{Headline: alert.Headline, Severity: alert.Severity, Expires: expires})
	}
	return report, nil
}
