package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	toolcore "github.com/harunnryd/biwa/internal/tool"
)

const defaultWeatherBaseURL = "https://wttr.in"

type wttrNamedValue struct {
	Value string `json:"value"`
}

type wttrCurrentCondition struct {
	TempC         string           `json:"temp_C"`
	FeelsLikeC    string           `json:"FeelsLikeC"`
	WeatherDesc   []wttrNamedValue `json:"weatherDesc"`
	Humidity      string           `json:"humidity"`
	WindspeedKmph string           `json:"windspeedKmph"`
}

type wttrNearestArea struct {
	AreaName []wttrNamedValue `json:"areaName"`
	Country  []wttrNamedValue `json:"country"`
}

type wttrWeatherDay struct {
	Date     string `json:"date"`
	MaxTempC string `json:"maxtempC"`
	MinTempC string `json:"mintempC"`
}

type wttrResponse struct {
	CurrentCondition []wttrCurrentCondition `json:"current_condition"`
	NearestArea      []wttrNearestArea      `json:"nearest_area"`
	Weather          []wttrWeatherDay       `json:"weather"`
}

func init() {
	toolcore.RegisterBuiltin("get_weather", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		timeout := options.WeatherTimeout
		if timeout <= 0 {
			timeout = toolcore.DefaultBuiltinWebTimeout
		}

		baseURL := strings.TrimSpace(options.WeatherBaseURL)
		if baseURL == "" {
			baseURL = defaultWeatherBaseURL
		}

		return &WeatherTool{
			Client:  &http.Client{Timeout: timeout},
			BaseURL: baseURL,
		}, nil
	})
}

// WeatherTool fetches current conditions and a short forecast from wttr.in.
type WeatherTool struct {
	Client  *http.Client
	BaseURL string
}

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string {
	return "Get the current weather and forecast for a location."
}

func (t *WeatherTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Location in text format (for example: San Francisco, CA)",
			},
		},
		"required": []string{"location"},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		Location string `json:"location"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	location := strings.TrimSpace(args.Location)
	if location == "" {
		return nil, fmt.Errorf("location is required")
	}

	endpoint, err := weatherEndpoint(t.BaseURL, location)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "biwa/1.0")

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: toolcore.DefaultBuiltinWebTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather request failed: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}

	var payload wttrResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	if len(payload.CurrentCondition) == 0 {
		return nil, fmt.Errorf("weather response missing current condition")
	}

	forecast := make([]map[string]string, 0, len(payload.Weather))
	for _, day := range payload.Weather {
		forecast = append(forecast, map[string]string{
			"date":       strings.TrimSpace(day.Date),
			"min_temp_c": strings.TrimSpace(day.MinTempC),
			"max_temp_c": strings.TrimSpace(day.MaxTempC),
		})
	}

	current := payload.CurrentCondition[0]
	return json.Marshal(map[string]interface{}{
		"location": resolveLocation(payload.NearestArea, location),
		"current": map[string]string{
			"temperature_c": strings.TrimSpace(current.TempC),
			"feels_like_c":  strings.TrimSpace(current.FeelsLikeC),
			"condition":     firstNamedValue(current.WeatherDesc),
			"humidity_pct":  strings.TrimSpace(current.Humidity),
			"wind_kmph":     strings.TrimSpace(current.WindspeedKmph),
		},
		"forecast": forecast,
	})
}

func weatherEndpoint(baseURL, location string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("invalid weather endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid weather endpoint")
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/" + url.PathEscape(location)
	q := parsed.Query()
	q.Set("format", "j1")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func resolveLocation(nearest []wttrNearestArea, fallback string) string {
	if len(nearest) == 0 {
		return fallback
	}

	parts := make([]string, 0, 2)
	for _, part := range []string{firstNamedValue(nearest[0].AreaName), firstNamedValue(nearest[0].Country)} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}

func firstNamedValue(values []wttrNamedValue) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}
