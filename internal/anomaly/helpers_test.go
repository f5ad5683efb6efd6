package anomaly

import (
	"time"

	"github.com/sells-group/temp-anomaly/internal/model"
)

func day(n int) time.Time {
	return time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func reading(city string, ts time.Time, temp float64, season model.Season) model.Reading {
	return model.Reading{City: city, Timestamp: ts, Temperature: temp, Season: season}
}

// parisTable is a single city with three winter rows and one spring row.
func parisTable() *model.Table {
	return &model.Table{
		Columns: []string{"city", "timestamp", "temperature", "season"},
		Readings: []model.Reading{
			reading("Paris", day(0), 5, model.SeasonWinter),
			reading("Paris", day(1), 6, model.SeasonWinter),
			reading("Paris", day(2), 7, model.SeasonWinter),
			reading("Paris", day(90), 20, model.SeasonSpring),
		},
	}
}
