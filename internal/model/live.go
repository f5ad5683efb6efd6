package model

import "time"

// StatusOK is the upstream status code of a successful weather reading.
const StatusOK = 200

// Observation is one reading reported by the weather-data collaborator. On failure only
// StatusCode and Message are meaningful.
type Observation struct {
	StatusCode  int     `json:"status_code"`
	Message     string  `json:"message,omitempty"`
	City        string  `json:"city,omitempty"`
	Temperature float64 `json:"temperature"`
	Timestamp   int64   `json:"dt"`       // Unix seconds, UTC
	Timezone    int     `json:"timezone"` // offset from UTC in seconds
}

// LocalTime returns the observation instant shifted by its UTC offset. The result is
// expressed in UTC so that calendar fields read as local wall-clock values.
func (o Observation) LocalTime() time.Time {
	return time.Unix(o.Timestamp, 0).UTC().Add(time.Duration(o.Timezone) * time.Second)
}

// ClassificationStatus tells a presentation layer which branch of a LiveClassification
// is populated.
type ClassificationStatus string

const (
	ClassificationOK    ClassificationStatus = "ok"
	ClassificationError ClassificationStatus = "error"
)

// LiveClassification is the result of classifying one Observation.
type LiveClassification struct {
	Status      ClassificationStatus `json:"status"`
	Code        int                  `json:"code"`
	Message     string               `json:"message,omitempty"`
	City        string               `json:"city,omitempty"`
	Season      Season               `json:"season,omitempty"`
	Temperature float64              `json:"temperature"`
	Anomalous   bool                 `json:"anomalous"`
}

// OK reports whether the classification carries a temperature decision.
func (c LiveClassification) OK() bool {
	return c.Status == ClassificationOK
}

// Dataset describes one uploaded historical table.
type Dataset struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"` // hex SHA-256 of the raw input bytes
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Cities    int       `json:"cities"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckRecord is a persisted live classification.
type CheckRecord struct {
	ID             string             `json:"id"`
	DatasetID      string             `json:"dataset_id"`
	Classification LiveClassification `json:"classification"`
	CheckedAt      time.Time          `json:"checked_at"`
}
