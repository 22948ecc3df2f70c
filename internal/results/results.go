// Package results turns the stored response vectors of one health check into
// per-topic tallies for the results view.
package results

import (
	"log"
	"math"

	"github.com/dustin/go-humanize/english"

	"teamhealth/internal/model"
)

// Bucket is the display class derived from a topic's rounded average
type Bucket string

const (
	BucketNone Bucket = "none"
	BucketLow  Bucket = "low"
	BucketMid  Bucket = "mid"
	BucketHigh Bucket = "high"
)

// TopicTally is the aggregate for one topic. Counts is indexed by rating:
// [Sucky, OK, Awesome].
type TopicTally struct {
	Index     int                     `json:"index"`
	Title     string                  `json:"title"`
	Counts    [model.RatingLevels]int `json:"counts"`
	Responses int                     `json:"responses"`
	Average   *float64                `json:"average"`
	Bucket    Bucket                  `json:"bucket"`
}

// HasResponses is false for the "no responses yet" state
func (t TopicTally) HasResponses() bool {
	return t.Average != nil
}

// Summary is what the results page and the results endpoint render
type Summary struct {
	HealthCheckID  string       `json:"healthCheckId"`
	TotalResponses int          `json:"totalResponses"`
	ResponsesText  string       `json:"responsesText"`
	Malformed      int          `json:"malformed"`
	Topics         []TopicTally `json:"topics"`
}

// BucketFor maps an average on the 0..2 scale to its display bucket
func BucketFor(average float64) Bucket {
	switch math.Round(average) {
	case 0:
		return BucketLow
	case 1:
		return BucketMid
	case 2:
		return BucketHigh
	}
	return BucketNone
}

// Aggregate tallies responses per topic, in topic order. Positions a vector
// does not cover and ratings off the scale are skipped for that vector; the
// average is always taken over len(responses).
func Aggregate(topics []model.Topic, responses []model.ResponseVector) []TopicTally {
	tallies, _ := aggregate(topics, responses)
	return tallies
}

func aggregate(topics []model.Topic, responses []model.ResponseVector) ([]TopicTally, []int) {
	tallies := make([]TopicTally, len(topics))
	for i, t := range topics {
		tallies[i] = TopicTally{Index: i, Title: t.Title, Bucket: BucketNone}
	}

	var malformed []int
	for ri, vec := range responses {
		bad := len(vec) != len(topics)
		for i := 0; i < len(vec) && i < len(topics); i++ {
			if !vec[i].Valid() {
				bad = true
				continue
			}
			tallies[i].Counts[vec[i]]++
		}
		if bad {
			malformed = append(malformed, ri)
		}
	}

	total := len(responses)
	for i := range tallies {
		tallies[i].Responses = total
		if total == 0 {
			continue
		}
		avg := float64(tallies[i].Counts[model.RatingOK]+2*tallies[i].Counts[model.RatingAwesome]) / float64(total)
		tallies[i].Average = &avg
		tallies[i].Bucket = BucketFor(avg)
	}
	return tallies, malformed
}

// Summarize aggregates a health check's responses and logs any malformed
// vectors. It never fails on bad stored data.
func Summarize(healthCheckID string, topics []model.Topic, responses []model.ResponseVector) Summary {
	tallies, malformed := aggregate(topics, responses)
	for _, ri := range malformed {
		log.Printf("[Results] %v: health check %s response %d has %d ratings for %d topics",
			model.ErrMalformedResponseVector, healthCheckID, ri, len(responses[ri]), len(topics))
	}

	return Summary{
		HealthCheckID:  healthCheckID,
		TotalResponses: len(responses),
		ResponsesText:  english.Plural(len(responses), "response", "") + " so far",
		Malformed:      len(malformed),
		Topics:         tallies,
	}
}
