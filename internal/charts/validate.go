package charts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"insightchat-backend/internal/models"
)

var (
	ErrMalformed   = errors.New("candidate is not valid structured text")
	ErrNotObject   = errors.New("candidate is not an object")
	ErrEmptyData   = errors.New("candidate has no data")
	ErrDataNotRows = errors.New("candidate data is not a sequence of records")
)

// Validate turns a parsed candidate into a chart descriptor. Unknown chart
// types are kept verbatim rather than rejected.
func Validate(c Candidate) (models.ChartSpec, error) {
	var spec models.ChartSpec
	if c.Err != nil || len(c.Raw) == 0 {
		return spec, ErrMalformed
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(c.Raw, &fields); err != nil || fields == nil {
		return spec, ErrNotObject
	}

	rawData, ok := fields["data"]
	if !ok || isNull(rawData) {
		return spec, ErrEmptyData
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(rawData, &rows); err != nil {
		return spec, ErrDataNotRows
	}
	if len(rows) == 0 {
		return spec, ErrEmptyData
	}
	spec.Data = make([]models.Record, 0, len(rows))
	for i, row := range rows {
		var rec models.Record
		if err := json.Unmarshal(row, &rec); err != nil {
			return models.ChartSpec{}, fmt.Errorf("%w: row %d: %v", ErrDataNotRows, i, err)
		}
		spec.Data = append(spec.Data, rec)
	}

	if raw, ok := fields["type"]; ok && !isNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			spec.Type = models.ChartType(s)
		} else {
			spec.Type = models.ChartType(strings.TrimSpace(string(raw)))
		}
	}
	spec.Title = optionalString(fields["title"])
	spec.Description = optionalString(fields["description"])

	return spec, nil
}

func optionalString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
