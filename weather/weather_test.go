package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "coord": {"lon": -0.88, "lat": 41.66},
  "weather": [{"id": 802, "main": "Clouds", "description": "scattered clouds", "icon": "03d"}],
  "main": {"temp": 21.3},
  "name": "Zaragoza",
  "cod": 200
}`

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Zaragoza,ES", q.Get("q"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "en", q.Get("lang"))
		assert.Equal(t, "secret", q.Get("appid"))
		w.Write([]byte(sample))
	}))
	defer srv.Close()

	c := &Client{Key: "secret", Location: "Zaragoza", Country: "ES", URL: srv.URL}
	got, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Conditions{Place: "Zaragoza", Description: "scattered clouds"}, got)
	assert.Equal(t, "weather in Zaragoza: scattered clouds", got.String())
}

func TestCurrentErrors(t *testing.T) {
	for _, c := range []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"bad key", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`, "Invalid API key"},
		{"not json", http.StatusBadGateway, `<html>`, "invalid response"},
		{"no conditions", http.StatusOK, `{"name":"Nowhere","weather":[]}`, "no conditions"},
	} {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				w.Write([]byte(c.body))
			}))
			defer srv.Close()
			_, err := (&Client{URL: srv.URL}).Current(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.want)
		})
	}
}
