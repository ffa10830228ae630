package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"weathercompare/internal/models"
)

// NWSClient adapts the NOAA/NWS API. It needs no key but only covers US
// territories, and requires an endpoint-resolution step: the points endpoint
// maps coordinates to per-gridpoint forecast URLs, which are then fetched
// (daily and hourly are independent, so they run in parallel).
type NWSClient struct {
	*BaseClient
	baseURL string
}

const nwsAttribution = "Weather data provided by NOAA National Weather Service"

func NewNWSClient(config ClientConfig, logger *zap.Logger) *NWSClient {
	c := &NWSClient{
		BaseClient: NewBaseClient(models.ProviderNWS, config, logger),
		baseURL:    "https://api.weather.gov",
	}
	// api.weather.gov rejects requests without a User-Agent.
	c.SetHeader("User-Agent", "weathercompare (contact: ops@weathercompare.dev)")
	c.SetHeader("Accept", "application/geo+json")
	return c
}

func (c *NWSClient) Name() string {
	return models.ProviderNWS
}

// IsApplicable checks the ISO country code; an unknown country is assumed to
// be in coverage so the provider still gets a chance.
func (c *NWSClient) IsApplicable(loc models.Location) bool {
	return loc.IsUS()
}

type nwsPointsResponse struct {
	Properties struct {
		Forecast       string `json:"forecast"`
		ForecastHourly string `json:"forecastHourly"`
	} `json:"properties"`
}

type nwsPeriod struct {
	StartTime       string  `json:"startTime"`
	IsDaytime       bool    `json:"isDaytime"`
	Temperature     float64 `json:"temperature"`
	TemperatureUnit string  `json:"temperatureUnit"`
	WindSpeed       string  `json:"windSpeed"` // e.g. "10 mph" or "5 to 10 mph"
	WindDirection   string  `json:"windDirection"`
	ShortForecast   string  `json:"shortForecast"`
	RelativeHumidity struct {
		Value *float64 `json:"value"`
	} `json:"relativeHumidity"`
	ProbabilityOfPrecipitation struct {
		Value *float64 `json:"value"`
	} `json:"probabilityOfPrecipitation"`
	Dewpoint struct {
		Value    *float64 `json:"value"`
		UnitCode string   `json:"unitCode"`
	} `json:"dewpoint"`
}

type nwsForecastResponse struct {
	Properties struct {
		Periods []nwsPeriod `json:"periods"`
	} `json:"properties"`
}

func (c *NWSClient) Fetch(ctx context.Context, loc models.Location) (models.ProviderRecord, error) {
	// Step 1: resolve the per-location forecast endpoints.
	var points nwsPointsResponse
	pointsURL := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, loc.Latitude, loc.Longitude)
	if err := c.GetJSON(ctx, pointsURL, &points); err != nil {
		return models.ProviderRecord{}, err
	}
	if points.Properties.Forecast == "" || points.Properties.ForecastHourly == "" {
		return models.ProviderRecord{}, models.NewProviderError(
			models.ProviderNWS, models.FailureMalformedResponse,
			fmt.Errorf("points response missing forecast urls"))
	}

	// Step 2: daily and hourly forecasts are independent of each other.
	var daily, hourly nwsForecastResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.GetJSON(gctx, points.Properties.Forecast, &daily)
	})
	g.Go(func() error {
		return c.GetJSON(gctx, points.Properties.ForecastHourly, &hourly)
	})
	if err := g.Wait(); err != nil {
		return models.ProviderRecord{}, err
	}

	if len(hourly.Properties.Periods) == 0 {
		return models.ProviderRecord{}, models.NewProviderError(
			models.ProviderNWS, models.FailureMalformedResponse,
			fmt.Errorf("hourly forecast has no periods"))
	}

	return models.ProviderRecord{
		Provider:    models.ProviderNWS,
		Current:     c.convertCurrent(hourly.Properties.Periods[0]),
		Hourly:      c.convertHourly(hourly.Properties.Periods),
		Daily:       c.convertDaily(daily.Properties.Periods),
		Attribution: nwsAttribution,
	}, nil
}

// convertCurrent treats the first hourly period as current conditions; NWS
// has no dedicated observation endpoint on this path. Pressure is not
// supplied by the forecast API at all, so standard sea-level pressure stands
// in rather than zero.
func (c *NWSClient) convertCurrent(p nwsPeriod) models.CurrentConditions {
	temp := nwsCelsius(p)
	cur := models.CurrentConditions{
		Temperature:         temp,
		ApparentTemperature: temp,
		Condition:           nwsCondition(p.ShortForecast),
		Description:         p.ShortForecast,
		Pressure:            1013.25,
		WindSpeed:           nwsWindSpeed(p.WindSpeed),
		WindDirection:       nwsWindDirection(p.WindDirection),
		Timestamp:           nwsTime(p.StartTime),
	}
	if p.RelativeHumidity.Value != nil {
		cur.Humidity = *p.RelativeHumidity.Value / 100
	} else {
		cur.Humidity = 0.5
	}
	if p.Dewpoint.Value != nil {
		dew := *p.Dewpoint.Value
		if strings.HasSuffix(p.Dewpoint.UnitCode, "degF") {
			dew = models.ToCelsius(dew, models.Fahrenheit)
		}
		cur.DewPoint = &dew
	}
	return cur
}

func (c *NWSClient) convertHourly(periods []nwsPeriod) []models.HourlyPoint {
	points := make([]models.HourlyPoint, 0, maxHourlyPoints)
	for _, p := range periods {
		if len(points) >= maxHourlyPoints {
			break
		}
		wind := nwsWindSpeed(p.WindSpeed)
		hp := models.HourlyPoint{
			Timestamp:     nwsTime(p.StartTime),
			Temperature:   nwsCelsius(p),
			Condition:     nwsCondition(p.ShortForecast),
			WindSpeed:     &wind,
			WindDirection: nwsWindDirection(p.WindDirection),
		}
		if p.ProbabilityOfPrecipitation.Value != nil {
			hp.PrecipitationChance = *p.ProbabilityOfPrecipitation.Value / 100
		}
		if p.RelativeHumidity.Value != nil {
			v := *p.RelativeHumidity.Value / 100
			hp.Humidity = &v
		}
		points = append(points, hp)
	}
	return points
}

// convertDaily merges NWS day/night period pairs into single daily points:
// the daytime temperature is the high, the following night the low.
func (c *NWSClient) convertDaily(periods []nwsPeriod) []models.DailyPoint {
	points := make([]models.DailyPoint, 0, maxDailyPoints)

	for i := 0; i < len(periods) && len(points) < maxDailyPoints; {
		day := periods[i]

		var night *nwsPeriod
		if i+1 < len(periods) && !periods[i+1].IsDaytime {
			night = &periods[i+1]
			i += 2
		} else {
			i++
		}

		high := nwsCelsius(day)
		low := high
		if night != nil {
			low = nwsCelsius(*night)
		}
		if low > high {
			high, low = low, high
		}

		wind := nwsWindSpeed(day.WindSpeed)
		p := models.DailyPoint{
			Date:            nwsTime(day.StartTime),
			HighTemperature: high,
			LowTemperature:  low,
			Condition:       nwsCondition(day.ShortForecast),
			Description:     day.ShortForecast,
			WindSpeed:       &wind,
		}
		if day.ProbabilityOfPrecipitation.Value != nil {
			p.PrecipitationChance = *day.ProbabilityOfPrecipitation.Value / 100
		}
		if day.RelativeHumidity.Value != nil {
			v := *day.RelativeHumidity.Value / 100
			p.Humidity = &v
		}
		points = append(points, p)
	}
	return points
}

func nwsCelsius(p nwsPeriod) float64 {
	if strings.EqualFold(p.TemperatureUnit, "F") {
		return models.ToCelsius(p.Temperature, models.Fahrenheit)
	}
	return p.Temperature
}

// nwsWindSpeed parses strings like "10 mph" or "5 to 10 mph", taking the
// upper bound of a range, and normalizes to m/s.
func nwsWindSpeed(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}

	unit := models.MilesPerHour
	switch fields[len(fields)-1] {
	case "km/h":
		unit = models.KilometersPerHour
	case "kt", "kn":
		unit = models.Knots
	}

	var value float64
	for _, f := range fields {
		if v, err := strconv.ParseFloat(f, 64); err == nil && v > value {
			value = v
		}
	}
	return models.ToMetersPerSecond(value, unit)
}

func nwsWindDirection(cardinal string) *float64 {
	degrees := map[string]float64{
		"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
		"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
		"S": 180, "SSW": 202.5, "SW": 225, "WSW": 247.5,
		"W": 270, "WNW": 292.5, "NW": 315, "NNW": 337.5,
	}
	if deg, ok := degrees[strings.ToUpper(strings.TrimSpace(cardinal))]; ok {
		return &deg
	}
	return nil
}

func nwsTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return ts.UTC()
}

// nwsCondition keyword-matches the human-readable short forecast. Checks run
// most-specific first; anything unmatched is unknown.
func nwsCondition(shortForecast string) models.Condition {
	f := strings.ToLower(shortForecast)
	has := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(f, sub) {
				return true
			}
		}
		return false
	}

	switch {
	case has("tornado"):
		return models.ConditionTornado
	case has("hurricane"):
		return models.ConditionHurricane
	case has("tropical storm"):
		return models.ConditionTropicalStorm
	case has("thunder"):
		return models.ConditionThunderstorm
	case has("freezing rain", "freezing drizzle"):
		return models.ConditionFreezingRain
	case has("sleet", "ice pellets"):
		return models.ConditionSleet
	case has("snow", "flurries"):
		if has("heavy") {
			return models.ConditionHeavySnow
		}
		if has("light", "slight chance") {
			return models.ConditionLightSnow
		}
		return models.ConditionSnow
	case has("drizzle"):
		return models.ConditionDrizzle
	case has("rain", "showers"):
		if has("heavy") {
			return models.ConditionHeavyRain
		}
		if has("light") {
			return models.ConditionDrizzle
		}
		return models.ConditionRain
	case has("fog"):
		return models.ConditionFog
	case has("haze"):
		return models.ConditionHaze
	case has("smoke"):
		return models.ConditionSmoke
	case has("dust", "sand"):
		return models.ConditionDust
	case has("windy", "breezy", "blustery"):
		return models.ConditionWind
	case has("overcast", "mostly cloudy"):
		return models.ConditionOvercast
	case has("partly cloudy", "partly sunny"):
		return models.ConditionPartlyCloudy
	case has("cloud"):
		return models.ConditionCloudy
	case has("clear", "sunny", "fair"):
		return models.ConditionClear
	default:
		return models.ConditionUnknown
	}
}
