package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"weathercompare/internal/models"
)

// OpenWeatherClient adapts OpenWeatherMap. Current conditions and the
// 5-day/3-hour forecast live on separate endpoints; the two calls are
// independent, so Fetch runs them in parallel.
type OpenWeatherClient struct {
	*BaseClient
	baseURL string
	apiKey  string
}

const openWeatherAttribution = "Weather data provided by OpenWeatherMap"

func NewOpenWeatherClient(apiKey string, config ClientConfig, logger *zap.Logger) *OpenWeatherClient {
	return &OpenWeatherClient{
		BaseClient: NewBaseClient(models.ProviderOpenWeatherMap, config, logger),
		baseURL:    "https://api.openweathermap.org/data/2.5",
		apiKey:     apiKey,
	}
}

func (c *OpenWeatherClient) Name() string {
	return models.ProviderOpenWeatherMap
}

// IsApplicable: a missing credential makes the adapter non-applicable rather
// than an error at fetch time.
func (c *OpenWeatherClient) IsApplicable(loc models.Location) bool {
	return c.apiKey != ""
}

type owmWeatherInfo struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type owmCurrentResponse struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Visibility *float64         `json:"visibility"`
	Weather    []owmWeatherInfo `json:"weather"`
	Sys        struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type owmForecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Pop     float64          `json:"pop"`
	Weather []owmWeatherInfo `json:"weather"`
}

type owmForecastResponse struct {
	List []owmForecastItem `json:"list"`
}

func (c *OpenWeatherClient) Fetch(ctx context.Context, loc models.Location) (models.ProviderRecord, error) {
	if c.apiKey == "" {
		return models.ProviderRecord{}, models.NewProviderError(
			models.ProviderOpenWeatherMap, models.FailureUnauthorized,
			fmt.Errorf("api key is not configured"))
	}

	var (
		current  owmCurrentResponse
		forecast owmForecastResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.GetJSON(gctx, c.endpoint("weather", loc), &current)
	})
	g.Go(func() error {
		return c.GetJSON(gctx, c.endpoint("forecast", loc), &forecast)
	})
	if err := g.Wait(); err != nil {
		return models.ProviderRecord{}, err
	}

	return models.ProviderRecord{
		Provider:    models.ProviderOpenWeatherMap,
		Current:     c.convertCurrent(current),
		Hourly:      c.convertHourly(forecast.List),
		Daily:       c.convertDaily(forecast.List, current),
		Attribution: openWeatherAttribution,
	}, nil
}

func (c *OpenWeatherClient) endpoint(path string, loc models.Location) string {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%.4f", loc.Latitude))
	values.Set("lon", fmt.Sprintf("%.4f", loc.Longitude))
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	return fmt.Sprintf("%s/%s?%s", c.baseURL, path, values.Encode())
}

func (c *OpenWeatherClient) convertCurrent(resp owmCurrentResponse) models.CurrentConditions {
	cond := models.ConditionUnknown
	desc := ""
	if len(resp.Weather) > 0 {
		cond = owmCondition(resp.Weather[0].ID)
		desc = resp.Weather[0].Description
	}
	cloud := resp.Clouds.All / 100

	cur := models.CurrentConditions{
		Temperature:         resp.Main.Temp,
		ApparentTemperature: resp.Main.FeelsLike,
		Condition:           cond,
		Description:         desc,
		Humidity:            resp.Main.Humidity / 100,
		Pressure:            resp.Main.Pressure,
		WindSpeed:           resp.Wind.Speed,
		WindDirection:       resp.Wind.Deg,
		CloudCover:          &cloud,
		Visibility:          resp.Visibility,
		Timestamp:           time.Unix(resp.Dt, 0).UTC(),
	}
	return cur
}

// convertHourly maps the 3-hour forecast slots directly; OWM has no true
// hourly resolution on this endpoint.
func (c *OpenWeatherClient) convertHourly(items []owmForecastItem) []models.HourlyPoint {
	points := make([]models.HourlyPoint, 0, maxHourlyPoints)
	for _, item := range items {
		if len(points) >= maxHourlyPoints {
			break
		}
		cond := models.ConditionUnknown
		if len(item.Weather) > 0 {
			cond = owmCondition(item.Weather[0].ID)
		}
		feels := item.Main.FeelsLike
		humidity := item.Main.Humidity / 100
		wind := item.Wind.Speed
		cloud := item.Clouds.All / 100

		points = append(points, models.HourlyPoint{
			Timestamp:           time.Unix(item.Dt, 0).UTC(),
			Temperature:         item.Main.Temp,
			ApparentTemperature: &feels,
			Condition:           cond,
			PrecipitationChance: item.Pop,
			Humidity:            &humidity,
			WindSpeed:           &wind,
			WindDirection:       item.Wind.Deg,
			CloudCover:          &cloud,
		})
	}
	return points
}

// convertDaily groups the 3-hour slots by UTC day: high/low from the
// extremes, condition and wind from the midday slot, precipitation chance
// averaged. Sunrise/sunset come from the current-weather response and only
// apply to the first day.
func (c *OpenWeatherClient) convertDaily(items []owmForecastItem, current owmCurrentResponse) []models.DailyPoint {
	byDay := make(map[time.Time][]owmForecastItem)
	for _, item := range items {
		day := time.Unix(item.Dt, 0).UTC().Truncate(24 * time.Hour)
		byDay[day] = append(byDay[day], item)
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	points := make([]models.DailyPoint, 0, maxDailyPoints)
	for idx, day := range days {
		if len(points) >= maxDailyPoints {
			break
		}
		slots := byDay[day]

		high, low := slots[0].Main.Temp, slots[0].Main.Temp
		var popSum float64
		for _, s := range slots {
			if s.Main.Temp > high {
				high = s.Main.Temp
			}
			if s.Main.Temp < low {
				low = s.Main.Temp
			}
			popSum += s.Pop
		}

		midday := slots[len(slots)/2]
		cond := models.ConditionUnknown
		desc := ""
		if len(midday.Weather) > 0 {
			cond = owmCondition(midday.Weather[0].ID)
			desc = midday.Weather[0].Description
		}
		humidity := midday.Main.Humidity / 100
		wind := midday.Wind.Speed

		p := models.DailyPoint{
			Date:                day,
			HighTemperature:     high,
			LowTemperature:      low,
			Condition:           cond,
			Description:         desc,
			PrecipitationChance: popSum / float64(len(slots)),
			Humidity:            &humidity,
			WindSpeed:           &wind,
		}
		if idx == 0 && current.Sys.Sunrise > 0 {
			sunrise := time.Unix(current.Sys.Sunrise, 0).UTC()
			sunset := time.Unix(current.Sys.Sunset, 0).UTC()
			p.Sunrise = &sunrise
			p.Sunset = &sunset
		}
		points = append(points, p)
	}
	return points
}

// owmCondition maps OpenWeatherMap condition ids
// (https://openweathermap.org/weather-conditions) onto the canonical set.
func owmCondition(id int) models.Condition {
	switch {
	case id >= 200 && id <= 232:
		return models.ConditionThunderstorm
	case id >= 300 && id <= 321:
		return models.ConditionDrizzle
	case id >= 500 && id <= 504:
		return models.ConditionRain
	case id == 511:
		return models.ConditionFreezingRain
	case id >= 520 && id <= 531:
		return models.ConditionRain
	case id >= 600 && id <= 602:
		return models.ConditionSnow
	case id >= 611 && id <= 616:
		return models.ConditionSleet
	case id >= 620 && id <= 622:
		return models.ConditionSnow
	case id == 701 || id == 741:
		return models.ConditionFog
	case id == 711:
		return models.ConditionSmoke
	case id == 721:
		return models.ConditionHaze
	case id == 731 || id == 751 || id == 761:
		return models.ConditionDust
	case id == 771:
		return models.ConditionWind
	case id == 781:
		return models.ConditionTornado
	case id == 800:
		return models.ConditionClear
	case id == 801 || id == 802:
		return models.ConditionPartlyCloudy
	case id == 803:
		return models.ConditionCloudy
	case id == 804:
		return models.ConditionOvercast
	default:
		return models.ConditionUnknown
	}
}
