package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"teamhealth/internal/model"
	"teamhealth/internal/survey"
)

type Config struct {
	Endpoint  string
	PublicURL string
	Responses int
	Pattern   model.ResponseVector
	Timeout   time.Duration
}

func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("missing -endpoint")
	}
	if c.Responses < 0 {
		return fmt.Errorf("-responses must not be negative")
	}
	if c.Pattern != nil && len(c.Pattern) != survey.TopicCount() {
		return fmt.Errorf("-pattern has %d ratings, want %d", len(c.Pattern), survey.TopicCount())
	}
	return nil
}

func defaultConfig() Config {
	endpoint := os.Getenv("GRAPHQL_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4000/graphql"
	}
	publicURL := os.Getenv("PUBLIC_URL")
	if publicURL == "" {
		publicURL = "http://localhost:8080"
	}
	return Config{
		Endpoint:  endpoint,
		PublicURL: publicURL,
		Responses: 5,
		Timeout:   15 * time.Second,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	var pattern string

	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "GraphQL endpoint of the health check backend")
	fs.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "base URL used in the printed share and results links")
	fs.IntVar(&cfg.Responses, "responses", cfg.Responses, "number of responses to submit")
	fs.StringVar(&pattern, "pattern", "", "comma separated ratings (0-2), one per topic; empty rotates ratings per response")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout of each backend call")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if pattern != "" {
		p, err := parsePattern(pattern)
		if err != nil {
			return Config{}, err
		}
		cfg.Pattern = p
	}
	return cfg, nil
}

func parsePattern(s string) (model.ResponseVector, error) {
	parts := strings.Split(s, ",")
	out := make(model.ResponseVector, 0, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("-pattern position %d: %w", i, err)
		}
		r := model.Rating(n)
		if !r.Valid() {
			return nil, fmt.Errorf("-pattern position %d: %w", i, model.ErrInvalidRating)
		}
		out = append(out, r)
	}
	return out, nil
}
