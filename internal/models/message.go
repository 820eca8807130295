package models

// Message is one transcript entry. The sentiment fields are only filled on bot replies
// derived from a well-formed analysis.
type Message struct {
	ID   int64
	Text string
	Role Role

	// SentimentLabel is the lowercase label returned by the sentiment service.
	SentimentLabel string
	// Score is the compound score, roughly within [-1, 1]. Nil when the service did not
	// return a numeric compound value.
	Score *float64
	// RawScores is the score breakdown as received.
	RawScores *Scores
}

// Role represents the author of a message.
type Role string

const (
	// RoleUser marks text typed by the user.
	RoleUser Role = "user"
	// RoleBot marks replies generated by the application.
	RoleBot Role = "bot"
)

// Scores is the polarity breakdown produced by the sentiment service. The values are passed
// through as received, without range or sum checks.
type Scores struct {
	Positive float64 `json:"pos"`
	Neutral  float64 `json:"neu"`
	Negative float64 `json:"neg"`
	Compound float64 `json:"compound"`
}

// FromUser reports whether the user typed the message.
func (m Message) FromUser() bool {
	return m.Role == RoleUser
}

// HasSentiment reports whether the message carries sentiment metadata.
func (m Message) HasSentiment() bool {
	return m.SentimentLabel != ""
}
