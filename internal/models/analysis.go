package models

// Analysis is a decoded sentiment service response. Fields the service omitted or sent with
// an unexpected type are left at their zero value.
type Analysis struct {
	// Sentiment is the label as sent by the service, e.g. "Positive".
	Sentiment string
	Scores    *Scores
	// HasCompound is true when scores carried a numeric compound value.
	HasCompound bool
}

// Complete reports whether the analysis has both a label and a score breakdown.
func (a Analysis) Complete() bool {
	return a.Sentiment != "" && a.Scores != nil
}
