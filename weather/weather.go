// Package weather fetches current conditions from the OpenWeatherMap API.
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const DefaultURL = "https://api.openweathermap.org/data/2.5/weather"

// Conditions is a snapshot of the weather at a place.
type Conditions struct {
	Place       string // name of the place reported by the service
	Description string // e.g. "scattered clouds"
}

func (c Conditions) String() string {
	return fmt.Sprintf("weather in %s: %s", c.Place, c.Description)
}

// Client queries the current weather for one location.
type Client struct {
	Key      string
	Location string // city name
	Country  string // ISO 3166 country code
	URL      string // defaults to DefaultURL
	HTTP     *http.Client
}

// Current fetches the current conditions, in English and metric units.
func (c *Client) Current(ctx context.Context) (Conditions, error) {
	base := c.URL
	if base == "" {
		base = DefaultURL
	}
	q := url.Values{
		"q":     {c.Location + "," + c.Country},
		"units": {"metric"},
		"lang":  {"en"},
		"appid": {c.Key},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return Conditions{}, err
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("weather: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Conditions{}, fmt.Errorf("weather: reading response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Conditions{}, fmt.Errorf("weather: %s: invalid response", resp.Status)
	}
	r := gjson.ParseBytes(body)
	if resp.StatusCode != http.StatusOK {
		if msg := r.Get("message").String(); msg != "" {
			return Conditions{}, fmt.Errorf("weather: %s: %s", resp.Status, msg)
		}
		return Conditions{}, fmt.Errorf("weather: %s", resp.Status)
	}
	cond := Conditions{
		Place:       r.Get("name").String(),
		Description: r.Get("weather.0.description").String(),
	}
	if strings.TrimSpace(cond.Description) == "" {
		return Conditions{}, fmt.Errorf("weather: response has no conditions for %s,%s", c.Location, c.Country)
	}
	return cond, nil
}
