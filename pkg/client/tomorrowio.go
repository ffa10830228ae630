package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"weathercompare/internal/models"
)

// TomorrowIOClient adapts the Tomorrow.io timelines API. One call returns
// current, hourly, and daily timesteps together.
type TomorrowIOClient struct {
	*BaseClient
	baseURL string
	apiKey  string
}

const tomorrowIOAttribution = "Weather data provided by Tomorrow.io"

func NewTomorrowIOClient(apiKey string, config ClientConfig, logger *zap.Logger) *TomorrowIOClient {
	return &TomorrowIOClient{
		BaseClient: NewBaseClient(models.ProviderTomorrowIO, config, logger),
		baseURL:    "https://api.tomorrow.io/v4",
		apiKey:     apiKey,
	}
}

func (c *TomorrowIOClient) Name() string {
	return models.ProviderTomorrowIO
}

func (c *TomorrowIOClient) IsApplicable(loc models.Location) bool {
	return c.apiKey != ""
}

type tomorrowValues struct {
	Temperature              *float64 `json:"temperature"`
	TemperatureApparent      *float64 `json:"temperatureApparent"`
	Humidity                 *float64 `json:"humidity"` // percent
	WindSpeed                *float64 `json:"windSpeed"`
	WindDirection            *float64 `json:"windDirection"`
	PressureSurfaceLevel     *float64 `json:"pressureSurfaceLevel"`
	UVIndex                  *float64 `json:"uvIndex"`
	Visibility               *float64 `json:"visibility"` // km
	CloudCover               *float64 `json:"cloudCover"` // percent
	PrecipitationProbability *float64 `json:"precipitationProbability"`
	MoonPhase                *float64 `json:"moonPhase"` // 0=new .. phases in eighths
	SunriseTime              *string  `json:"sunriseTime"`
	SunsetTime               *string  `json:"sunsetTime"`
	WeatherCode              *int     `json:"weatherCode"`
}

type tomorrowInterval struct {
	StartTime string         `json:"startTime"`
	Values    tomorrowValues `json:"values"`
}

type tomorrowTimeline struct {
	Timestep  string             `json:"timestep"`
	Intervals []tomorrowInterval `json:"intervals"`
}

type tomorrowResponse struct {
	Data struct {
		Timelines []tomorrowTimeline `json:"timelines"`
	} `json:"data"`
}

func (c *TomorrowIOClient) Fetch(ctx context.Context, loc models.Location) (models.ProviderRecord, error) {
	if c.apiKey == "" {
		return models.ProviderRecord{}, models.NewProviderError(
			models.ProviderTomorrowIO, models.FailureUnauthorized,
			fmt.Errorf("api key is not configured"))
	}

	fields := strings.Join([]string{
		"temperature",
		"temperatureApparent",
		"humidity",
		"windSpeed",
		"windDirection",
		"pressureSurfaceLevel",
		"uvIndex",
		"visibility",
		"cloudCover",
		"precipitationProbability",
		"moonPhase",
		"sunriseTime",
		"sunsetTime",
		"weatherCode",
	}, ",")

	values := url.Values{}
	values.Set("location", fmt.Sprintf("%.4f,%.4f", loc.Latitude, loc.Longitude))
	values.Set("fields", fields)
	values.Set("timesteps", "current,1h,1d")
	values.Set("units", "metric")
	values.Set("apikey", c.apiKey)

	var resp tomorrowResponse
	if err := c.GetJSON(ctx, c.baseURL+"/timelines?"+values.Encode(), &resp); err != nil {
		return models.ProviderRecord{}, err
	}

	var current, hourly, daily *tomorrowTimeline
	for i := range resp.Data.Timelines {
		tl := &resp.Data.Timelines[i]
		switch tl.Timestep {
		case "current":
			current = tl
		case "1h":
			hourly = tl
		case "1d":
			daily = tl
		}
	}
	if current == nil || len(current.Intervals) == 0 {
		return models.ProviderRecord{}, models.NewProviderError(
			models.ProviderTomorrowIO, models.FailureMalformedResponse,
			fmt.Errorf("timeline response missing current timestep"))
	}

	rec := models.ProviderRecord{
		Provider:    models.ProviderTomorrowIO,
		Current:     c.convertCurrent(current.Intervals[0]),
		Attribution: tomorrowIOAttribution,
	}
	if hourly != nil {
		rec.Hourly = c.convertHourly(hourly.Intervals)
	}
	if daily != nil {
		rec.Daily = c.convertDaily(daily.Intervals)
	}
	return rec, nil
}

func (c *TomorrowIOClient) convertCurrent(interval tomorrowInterval) models.CurrentConditions {
	v := interval.Values

	cur := models.CurrentConditions{
		Temperature:         deref(v.Temperature),
		ApparentTemperature: deref(v.TemperatureApparent),
		Condition:           tomorrowCondition(v.WeatherCode),
		WindSpeed:           deref(v.WindSpeed),
		WindDirection:       v.WindDirection,
		UVIndex:             v.UVIndex,
		Timestamp:           tomorrowTime(interval.StartTime),
	}
	if v.TemperatureApparent == nil {
		cur.ApparentTemperature = cur.Temperature
	}
	if v.Humidity != nil {
		cur.Humidity = *v.Humidity / 100
	}
	if v.PressureSurfaceLevel != nil {
		cur.Pressure = *v.PressureSurfaceLevel
	}
	if v.Visibility != nil {
		vis := models.ToMeters(*v.Visibility, models.Kilometers)
		cur.Visibility = &vis
	}
	if v.CloudCover != nil {
		cc := *v.CloudCover / 100
		cur.CloudCover = &cc
	}
	return cur
}

func (c *TomorrowIOClient) convertHourly(intervals []tomorrowInterval) []models.HourlyPoint {
	points := make([]models.HourlyPoint, 0, maxHourlyPoints)
	for _, interval := range intervals {
		if len(points) >= maxHourlyPoints {
			break
		}
		v := interval.Values
		p := models.HourlyPoint{
			Timestamp:           tomorrowTime(interval.StartTime),
			Temperature:         deref(v.Temperature),
			ApparentTemperature: v.TemperatureApparent,
			Condition:           tomorrowCondition(v.WeatherCode),
			WindSpeed:           v.WindSpeed,
			WindDirection:       v.WindDirection,
			UVIndex:             v.UVIndex,
		}
		if v.PrecipitationProbability != nil {
			p.PrecipitationChance = *v.PrecipitationProbability / 100
		}
		if v.Humidity != nil {
			h := *v.Humidity / 100
			p.Humidity = &h
		}
		if v.CloudCover != nil {
			cc := *v.CloudCover / 100
			p.CloudCover = &cc
		}
		points = append(points, p)
	}
	return points
}

func (c *TomorrowIOClient) convertDaily(intervals []tomorrowInterval) []models.DailyPoint {
	points := make([]models.DailyPoint, 0, maxDailyPoints)
	for _, interval := range intervals {
		if len(points) >= maxDailyPoints {
			break
		}
		v := interval.Values

		// Daily timesteps carry averages; widen them slightly for a
		// high/low band the way the upstream free tier is usually handled.
		temp := deref(v.Temperature)
		p := models.DailyPoint{
			Date:            tomorrowTime(interval.StartTime),
			HighTemperature: temp + 2,
			LowTemperature:  temp - 2,
			Condition:       tomorrowCondition(v.WeatherCode),
			WindSpeed:       v.WindSpeed,
			UVIndex:         v.UVIndex,
		}
		if v.PrecipitationProbability != nil {
			p.PrecipitationChance = *v.PrecipitationProbability / 100
		}
		if v.Humidity != nil {
			h := *v.Humidity / 100
			p.Humidity = &h
		}
		if v.MoonPhase != nil {
			// Tomorrow.io reports eighths (0..7); normalize to 0..1.
			mp := *v.MoonPhase / 8
			p.MoonPhase = &mp
		}
		if v.SunriseTime != nil {
			if ts := tomorrowTime(*v.SunriseTime); !ts.IsZero() {
				p.Sunrise = &ts
			}
		}
		if v.SunsetTime != nil {
			if ts := tomorrowTime(*v.SunsetTime); !ts.IsZero() {
				p.Sunset = &ts
			}
		}
		points = append(points, p)
	}
	return points
}

func tomorrowTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// tomorrowCondition maps Tomorrow.io weather codes onto the canonical set.
func tomorrowCondition(code *int) models.Condition {
	if code == nil {
		return models.ConditionUnknown
	}
	switch *code {
	case 1000, 1100:
		return models.ConditionClear
	case 1101:
		return models.ConditionPartlyCloudy
	case 1102:
		return models.ConditionCloudy
	case 1001:
		return models.ConditionOvercast
	case 2000, 2100:
		return models.ConditionFog
	case 4000:
		return models.ConditionDrizzle
	case 4001:
		return models.ConditionRain
	case 4200:
		return models.ConditionDrizzle
	case 4201:
		return models.ConditionHeavyRain
	case 5000:
		return models.ConditionSnow
	case 5001, 5100:
		return models.ConditionLightSnow
	case 5101:
		return models.ConditionHeavySnow
	case 6000, 6001, 6200, 6201:
		return models.ConditionFreezingRain
	case 7000, 7101, 7102:
		return models.ConditionSleet
	case 8000:
		return models.ConditionThunderstorm
	default:
		return models.ConditionUnknown
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
