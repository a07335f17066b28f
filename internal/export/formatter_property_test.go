package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/five82/logsift/internal/logentry"
)

var propertyBase = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func genRecord() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.Int64Range(0, int64(72*time.Hour)),
		gen.AlphaString(),
		gen.OneConstOf("", "http", "db", "a,b"),
		gen.IntRange(int(logentry.LevelDebug), int(logentry.LevelFault)),
		gen.OneGenOf(gen.AlphaString(), gen.OneConstOf("line\nbreak", "crlf\r\nline", "\r", "cr\r\r\nrun", `quote "x"`, "comma, here", "")),
	).Map(func(values []interface{}) logentry.Record {
		return logentry.Record{
			ID:        values[0].(string),
			Timestamp: propertyBase.Add(time.Duration(values[1].(int64))),
			Subsystem: values[2].(string),
			Category:  values[3].(string),
			Level:     logentry.Level(values[4].(int)),
			Message:   values[5].(string),
		}
	})
}

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	return gopter.NewProperties(parameters)
}

func sameRecords(a, b []logentry.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !logentry.Equal(a[i], b[i]) || a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func TestStructuredExportsRoundTrip(t *testing.T) {
	properties := newProperties()

	properties.Property("csv export parses back to the same records", prop.ForAll(
		func(records []logentry.Record) bool {
			data, err := Formatter{}.Render(FileTypeCSV, records)
			if err != nil {
				return false
			}
			parsed, err := ParseCSV(bytes.NewReader(data))
			if err != nil {
				return false
			}
			return sameRecords(records, parsed)
		},
		gen.SliceOf(genRecord()),
	))

	properties.Property("json export parses back to the same records", prop.ForAll(
		func(records []logentry.Record) bool {
			data, err := Formatter{}.Render(FileTypeJSON, records)
			if err != nil {
				return false
			}
			parsed, err := ParseJSON(bytes.NewReader(data))
			if err != nil {
				return false
			}
			return sameRecords(records, parsed)
		},
		gen.SliceOf(genRecord()),
	))

	properties.Property("log export has one line per record", prop.ForAll(
		func(records []logentry.Record) bool {
			data, err := Formatter{}.Render(FileTypeLog, records)
			if err != nil {
				return false
			}
			return strings.Count(string(data), "\n") == len(records)
		},
		gen.SliceOf(genRecord()),
	))

	properties.TestingRun(t)
}
