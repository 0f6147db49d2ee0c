package handler

import (
	"bytes"
	"encoding/json"
	"errors"
)

// flexString accepts a JSON string or a JSON number and keeps its literal
// text, so a phone sent as 441234567890 is not rounded through float64.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return errors.New("expected a string or a number")
	}
	*s = flexString(n.String())
	return nil
}

// errorResponse and validationResponse document the envelopes rendered by
// the API error handler.
type errorResponse struct {
	Error string `json:"error" example:"Unauthorized"`
}

type validationResponse struct {
	Message string              `json:"message" example:"The given data was invalid."`
	Errors  map[string][]string `json:"errors"`
}
