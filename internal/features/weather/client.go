package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	geocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	forecastURL = "https://api.open-meteo.com/v1/forecast"

	// cacheTTL keeps repeated menu taps from hammering the API.
	cacheTTL = 5 * time.Minute
)

// Report is the weather data a handler formats into a screen.
type Report struct {
	City      string
	TempC     float64
	WindKmh   float64
	Daily     []Day
	FetchedAt time.Time
}

// Day is one forecast day.
type Day struct {
	Date     string
	MinC     float64
	MaxC     float64
	PrecipMM float64
}

// Client fetches weather from the Open-Meteo public API.
type Client struct {
	http *http.Client

	mu    sync.Mutex
	cache map[string]Report
}

// NewClient creates a weather client.
func NewClient() *Client {
	return &Client{
		http:  &http.Client{Timeout: 10 * time.Second},
		cache: make(map[string]Report),
	}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
	} `json:"current_weather"`
	Daily struct {
		Time             []string  `json:"time"`
		TempMax          []float64 `json:"temperature_2m_max"`
		TempMin          []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Fetch returns the current weather and a short forecast for a city,
// serving from cache when fresh.
func (c *Client) Fetch(ctx context.Context, city string) (Report, error) {
	c.mu.Lock()
	if cached, ok := c.cache[city]; ok && time.Since(cached.FetchedAt) < cacheTTL {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	lat, lon, name, err := c.geocode(ctx, city)
	if err != nil {
		return Report{}, err
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current_weather", "true")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "3")

	var fr forecastResponse
	if err := c.getJSON(ctx, forecastURL+"?"+q.Encode(), &fr); err != nil {
		return Report{}, fmt.Errorf("forecast for %s: %w", city, err)
	}

	report := Report{
		City:      name,
		TempC:     fr.CurrentWeather.Temperature,
		WindKmh:   fr.CurrentWeather.WindSpeed,
		FetchedAt: time.Now(),
	}
	for i, day := range fr.Daily.Time {
		if i >= len(fr.Daily.TempMax) || i >= len(fr.Daily.TempMin) || i >= len(fr.Daily.PrecipitationSum) {
			break
		}
		report.Daily = append(report.Daily, Day{
			Date:     day,
			MaxC:     fr.Daily.TempMax[i],
			MinC:     fr.Daily.TempMin[i],
			PrecipMM: fr.Daily.PrecipitationSum[i],
		})
	}

	c.mu.Lock()
	c.cache[city] = report
	c.mu.Unlock()
	return report, nil
}

func (c *Client) geocode(ctx context.Context, city string) (lat, lon float64, name string, err error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")

	var gr geocodeResponse
	if err := c.getJSON(ctx, geocodeURL+"?"+q.Encode(), &gr); err != nil {
		return 0, 0, "", fmt.Errorf("geocode %s: %w", city, err)
	}
	if len(gr.Results) == 0 {
		return 0, 0, "", fmt.Errorf("city not found: %s", city)
	}
	r := gr.Results[0]
	return r.Latitude, r.Longitude, r.Name, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
