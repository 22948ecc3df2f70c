// Package survey holds the compiled-in health check definition: the ordered
// topic list and the labels of the three-point rating scale.
//
// Topic order is significant. Position i in every ResponseVector refers to
// Topics()[i], both when a session collects ratings and when results are
// aggregated.
package survey

import "teamhealth/internal/model"

var topics = []model.Topic{
	{
		Title:               "Delivering Value",
		PositiveDescription: "We deliver great stuff! We're proud of it and our stakeholders are really happy.",
		NegativeDescription: "We deliver crap. We feel ashamed to deliver it. Our stakeholders hate us.",
	},
	{
		Title:               "Easy to release",
		PositiveDescription: "Releasing is simple, safe, painless and mostly automated.",
		NegativeDescription: "Releasing is risky, painful, lots of manual work, and takes forever.",
	},
	{
		Title:               "Fun",
		PositiveDescription: "We love going to work, and have great fun working together.",
		NegativeDescription: "Boooooooring.",
	},
	{
		Title:               "Health of Codebase",
		PositiveDescription: "We're proud of the quality of our code! It is clean, easy to read, and has great test coverage.",
		NegativeDescription: "Our code is a pile of dung, and technical debt is raging out of control.",
	},
	{
		Title:               "Learning",
		PositiveDescription: "We're learning lots of interesting stuff all the time!",
		NegativeDescription: "We never have time to learn anything.",
	},
	{
		Title:               "Mission",
		PositiveDescription: "We know exactly why we are here, and we are really excited about it.",
		NegativeDescription: "We have no idea why we are here. There is no high level picture or focus.",
	},
	{
		Title:               "Pawns or Players",
		PositiveDescription: "We are in control of our destiny! We decide what to build and how to build it.",
		NegativeDescription: "We are just pawns in a game of chess, with no influence over what we build or how we build it.",
	},
	{
		Title:               "Speed",
		PositiveDescription: "We get stuff done really quickly. No waiting, no delays.",
		NegativeDescription: "We never seem to get done with anything. We keep getting stuck or interrupted.",
	},
	{
		Title:               "Suitable Process",
		PositiveDescription: "Our way of working fits us perfectly.",
		NegativeDescription: "Our way of working sucks.",
	},
	{
		Title:               "Support",
		PositiveDescription: "We always get great support and help when we ask for it!",
		NegativeDescription: "We keep getting stuck because we can't get the support and help that we ask for.",
	},
	{
		Title:               "Teamwork",
		PositiveDescription: "We are a totally gelled super-team with awesome collaboration!",
		NegativeDescription: "We are a bunch of individuals that neither know nor care about what the others are doing.",
	},
}

var ratingLabels = [model.RatingLevels]string{
	model.RatingSucky:   "Sucky",
	model.RatingOK:      "OK",
	model.RatingAwesome: "Awesome",
}

// topic heading colours, cycled by topic position
var topicColors = []string{"orange", "purple", "cyan", "pink", "green", "primary"}

// Topics returns the ordered topic list. The returned slice is a copy.
func Topics() []model.Topic {
	out := make([]model.Topic, len(topics))
	copy(out, topics)
	return out
}

// TopicCount is N, the required length of every submitted ResponseVector
func TopicCount() int {
	return len(topics)
}

// Topic returns the topic at position i
func Topic(i int) (model.Topic, bool) {
	if i < 0 || i >= len(topics) {
		return model.Topic{}, false
	}
	return topics[i], true
}

// RatingLabel returns the display label for r, or "" when r is off the scale
func RatingLabel(r model.Rating) string {
	if !r.Valid() {
		return ""
	}
	return ratingLabels[r]
}

// Choices lists the ratings in the order they are offered to a participant
func Choices() []model.Rating {
	return []model.Rating{model.RatingAwesome, model.RatingOK, model.RatingSucky}
}

func TopicColor(i int) string {
	if i < 0 {
		return topicColors[0]
	}
	return topicColors[i%len(topicColors)]
}
