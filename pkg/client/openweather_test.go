package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"weathercompare/internal/models"
)

func TestOpenWeatherFetch(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("appid"); got != "test-key" {
			t.Errorf("expected appid=test-key, got %s", got)
		}
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("expected units=metric, got %s", got)
		}
		w.Write([]byte(`{
			"dt": 1772366400,
			"main": {"temp": 18.5, "feels_like": 17.9, "humidity": 58, "pressure": 1018},
			"wind": {"speed": 3.2, "deg": 270},
			"clouds": {"all": 20},
			"visibility": 10000,
			"weather": [{"id": 801, "description": "few clouds"}],
			"sys": {"sunrise": 1772355600, "sunset": 1772397000}
		}`))
	})

	// Two 3-hour slots on the same UTC day plus one on the next.
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list": [
			{"dt": 1772366400, "main": {"temp": 18.5, "feels_like": 17.9, "humidity": 58},
			 "wind": {"speed": 3.2, "deg": 270}, "clouds": {"all": 20}, "pop": 0.1,
			 "weather": [{"id": 801, "description": "few clouds"}]},
			{"dt": 1772377200, "main": {"temp": 21.0, "feels_like": 20.4, "humidity": 50},
			 "wind": {"speed": 4.0, "deg": 260}, "clouds": {"all": 30}, "pop": 0.3,
			 "weather": [{"id": 500, "description": "light rain"}]},
			{"dt": 1772452800, "main": {"temp": 15.0, "feels_like": 14.2, "humidity": 70},
			 "wind": {"speed": 5.5, "deg": 240}, "clouds": {"all": 90}, "pop": 0.8,
			 "weather": [{"id": 502, "description": "heavy intensity rain"}]}
		]}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewOpenWeatherClient("test-key", testClientConfig(), zap.NewNop())
	c.baseURL = srv.URL

	loc, err := models.NewLocation("Berlin", 52.52, 13.405)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := c.Fetch(context.Background(), loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cur := rec.Current
	if cur.Temperature != 18.5 {
		t.Errorf("expected temperature 18.5, got %v", cur.Temperature)
	}
	if cur.Humidity != 0.58 {
		t.Errorf("expected humidity 0.58, got %v", cur.Humidity)
	}
	if cur.Condition != models.ConditionPartlyCloudy {
		t.Errorf("expected partly-cloudy, got %s", cur.Condition)
	}
	if cur.Visibility == nil || *cur.Visibility != 10000 {
		t.Errorf("expected visibility 10000, got %v", cur.Visibility)
	}

	if len(rec.Hourly) != 3 {
		t.Fatalf("expected 3 hourly points, got %d", len(rec.Hourly))
	}
	if rec.Hourly[1].PrecipitationChance != 0.3 {
		t.Errorf("expected pop 0.3, got %v", rec.Hourly[1].PrecipitationChance)
	}

	// Slots group into two UTC days.
	if len(rec.Daily) != 2 {
		t.Fatalf("expected 2 daily points, got %d", len(rec.Daily))
	}
	d0 := rec.Daily[0]
	if d0.HighTemperature != 21.0 || d0.LowTemperature != 18.5 {
		t.Errorf("expected high 21.0 low 18.5, got %v / %v", d0.HighTemperature, d0.LowTemperature)
	}
	if d0.PrecipitationChance != 0.2 { // average of 0.1 and 0.3
		t.Errorf("expected averaged pop 0.2, got %v", d0.PrecipitationChance)
	}
	if d0.Sunrise == nil || rec.Daily[1].Sunrise != nil {
		t.Error("expected sunrise only on the first day")
	}
}

func TestOpenWeatherApplicability(t *testing.T) {
	loc := models.Location{}

	withKey := NewOpenWeatherClient("key", testClientConfig(), zap.NewNop())
	if !withKey.IsApplicable(loc) {
		t.Error("expected applicable with an api key")
	}

	withoutKey := NewOpenWeatherClient("", testClientConfig(), zap.NewNop())
	if withoutKey.IsApplicable(loc) {
		t.Error("expected not applicable without an api key")
	}
}

func TestOpenWeatherFetchWithoutKey(t *testing.T) {
	c := NewOpenWeatherClient("", testClientConfig(), zap.NewNop())
	loc, _ := models.NewLocation("x", 0, 0)

	_, err := c.Fetch(context.Background(), loc)
	if err == nil {
		t.Fatal("expected error without an api key")
	}
	if kind := models.ClassifyError(err); kind != models.FailureUnauthorized {
		t.Errorf("expected unauthorized, got %s", kind)
	}
}
