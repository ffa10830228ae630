package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"weathercompare/internal/models"
)

// OpenMeteoClient adapts the Open-Meteo forecast API. It needs no API key and
// covers the whole globe, so it is always applicable.
type OpenMeteoClient struct {
	*BaseClient
	baseURL string
}

const openMeteoAttribution = "Weather data provided by Open-Meteo"

func NewOpenMeteoClient(config ClientConfig, logger *zap.Logger) *OpenMeteoClient {
	return &OpenMeteoClient{
		BaseClient: NewBaseClient(models.ProviderOpenMeteo, config, logger),
		baseURL:    "https://api.open-meteo.com/v1/forecast",
	}
}

func (c *OpenMeteoClient) Name() string {
	return models.ProviderOpenMeteo
}

func (c *OpenMeteoClient) IsApplicable(loc models.Location) bool {
	return true
}

type openMeteoResponse struct {
	Current struct {
		Time               string  `json:"time"`
		Temperature2M      float64 `json:"temperature_2m"`
		ApparentTemp       float64 `json:"apparent_temperature"`
		RelativeHumidity2M float64 `json:"relative_humidity_2m"`
		PressureMSL        float64 `json:"pressure_msl"`
		WindSpeed10M       float64 `json:"wind_speed_10m"`
		WindDirection10M   float64 `json:"wind_direction_10m"`
		CloudCover         float64 `json:"cloud_cover"`
		WeatherCode        int     `json:"weather_code"`
	} `json:"current"`
	Hourly struct {
		Time                     []string  `json:"time"`
		Temperature2M            []float64 `json:"temperature_2m"`
		ApparentTemp             []float64 `json:"apparent_temperature"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		Precipitation            []float64 `json:"precipitation"`
		RelativeHumidity2M       []float64 `json:"relative_humidity_2m"`
		WindSpeed10M             []float64 `json:"wind_speed_10m"`
		WindDirection10M         []float64 `json:"wind_direction_10m"`
		CloudCover               []float64 `json:"cloud_cover"`
		WeatherCode              []int     `json:"weather_code"`
	} `json:"hourly"`
	Daily struct {
		Time                        []string  `json:"time"`
		Temperature2MMax            []float64 `json:"temperature_2m_max"`
		Temperature2MMin            []float64 `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max"`
		PrecipitationSum            []float64 `json:"precipitation_sum"`
		Sunrise                     []string  `json:"sunrise"`
		Sunset                      []string  `json:"sunset"`
		WeatherCode                 []int     `json:"weather_code"`
	} `json:"daily"`
}

// Fetch retrieves current, hourly, and daily blocks in a single call.
func (c *OpenMeteoClient) Fetch(ctx context.Context, loc models.Location) (models.ProviderRecord, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	values.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	values.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,pressure_msl,wind_speed_10m,wind_direction_10m,cloud_cover,weather_code")
	values.Set("hourly", "temperature_2m,apparent_temperature,precipitation_probability,precipitation,relative_humidity_2m,wind_speed_10m,wind_direction_10m,cloud_cover,weather_code")
	values.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,precipitation_sum,sunrise,sunset,weather_code")
	values.Set("wind_speed_unit", "ms")
	values.Set("timezone", "UTC")
	values.Set("forecast_days", "10")

	var resp openMeteoResponse
	if err := c.GetJSON(ctx, c.baseURL+"?"+values.Encode(), &resp); err != nil {
		return models.ProviderRecord{}, err
	}

	return models.ProviderRecord{
		Provider:    models.ProviderOpenMeteo,
		Current:     c.convertCurrent(resp),
		Hourly:      c.convertHourly(resp),
		Daily:       c.convertDaily(resp),
		Attribution: openMeteoAttribution,
	}, nil
}

func (c *OpenMeteoClient) convertCurrent(resp openMeteoResponse) models.CurrentConditions {
	cur := resp.Current
	windDir := cur.WindDirection10M
	cloud := cur.CloudCover / 100

	return models.CurrentConditions{
		Temperature:         cur.Temperature2M,
		ApparentTemperature: cur.ApparentTemp,
		Condition:           openMeteoCondition(cur.WeatherCode),
		Humidity:            cur.RelativeHumidity2M / 100,
		Pressure:            cur.PressureMSL,
		WindSpeed:           cur.WindSpeed10M,
		WindDirection:       &windDir,
		CloudCover:          &cloud,
		Timestamp:           parseOpenMeteoTime(cur.Time),
	}
}

func (c *OpenMeteoClient) convertHourly(resp openMeteoResponse) []models.HourlyPoint {
	h := resp.Hourly
	points := make([]models.HourlyPoint, 0, maxHourlyPoints)

	for i := range h.Time {
		if len(points) >= maxHourlyPoints {
			break
		}
		p := models.HourlyPoint{
			Timestamp:   parseOpenMeteoTime(h.Time[i]),
			Temperature: at(h.Temperature2M, i),
			Condition:   openMeteoCondition(atInt(h.WeatherCode, i)),
		}
		if i < len(h.ApparentTemp) {
			v := h.ApparentTemp[i]
			p.ApparentTemperature = &v
		}
		if i < len(h.PrecipitationProbability) {
			p.PrecipitationChance = h.PrecipitationProbability[i] / 100
		}
		if i < len(h.Precipitation) {
			v := h.Precipitation[i]
			p.PrecipitationAmount = &v
		}
		if i < len(h.RelativeHumidity2M) {
			v := h.RelativeHumidity2M[i] / 100
			p.Humidity = &v
		}
		if i < len(h.WindSpeed10M) {
			v := h.WindSpeed10M[i]
			p.WindSpeed = &v
		}
		if i < len(h.WindDirection10M) {
			v := h.WindDirection10M[i]
			p.WindDirection = &v
		}
		if i < len(h.CloudCover) {
			v := h.CloudCover[i] / 100
			p.CloudCover = &v
		}
		points = append(points, p)
	}
	return points
}

func (c *OpenMeteoClient) convertDaily(resp openMeteoResponse) []models.DailyPoint {
	d := resp.Daily
	points := make([]models.DailyPoint, 0, maxDailyPoints)

	for i := range d.Time {
		if len(points) >= maxDailyPoints {
			break
		}
		p := models.DailyPoint{
			Date:            parseOpenMeteoTime(d.Time[i]),
			HighTemperature: at(d.Temperature2MMax, i),
			LowTemperature:  at(d.Temperature2MMin, i),
			Condition:       openMeteoCondition(atInt(d.WeatherCode, i)),
		}
		if i < len(d.PrecipitationProbabilityMax) {
			p.PrecipitationChance = d.PrecipitationProbabilityMax[i] / 100
		}
		if i < len(d.PrecipitationSum) {
			v := d.PrecipitationSum[i]
			p.PrecipitationAmount = &v
		}
		if i < len(d.Sunrise) {
			if ts := parseOpenMeteoTime(d.Sunrise[i]); !ts.IsZero() {
				p.Sunrise = &ts
			}
		}
		if i < len(d.Sunset) {
			if ts := parseOpenMeteoTime(d.Sunset[i]); !ts.IsZero() {
				p.Sunset = &ts
			}
		}
		points = append(points, p)
	}
	return points
}

// parseOpenMeteoTime handles the API's minute-precision ISO timestamps as
// well as date-only daily entries.
func parseOpenMeteoTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// openMeteoCondition maps WMO weather interpretation codes onto the canonical
// vocabulary. Codes the table does not cover resolve to unknown.
func openMeteoCondition(code int) models.Condition {
	switch {
	case code == 0:
		return models.ConditionClear
	case code == 1 || code == 2:
		return models.ConditionPartlyCloudy
	case code == 3:
		return models.ConditionOvercast
	case code == 45 || code == 48:
		return models.ConditionFog
	case code >= 51 && code <= 55:
		return models.ConditionDrizzle
	case code == 56 || code == 57 || code == 66 || code == 67:
		return models.ConditionFreezingRain
	case code == 61 || code == 63 || code == 80 || code == 81:
		return models.ConditionRain
	case code == 65 || code == 82:
		return models.ConditionHeavyRain
	case code == 71 || code == 77 || code == 85:
		return models.ConditionLightSnow
	case code == 73:
		return models.ConditionSnow
	case code == 75 || code == 86:
		return models.ConditionHeavySnow
	case code >= 95:
		return models.ConditionThunderstorm
	default:
		return models.ConditionUnknown
	}
}

// at guards ragged parallel arrays in the provider payload.
func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func atInt(s []int, i int) int {
	if i < len(s) {
		return s[i]
	}
	return -1
}
