package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleString allows JSON fields to be provided as string or number
type FlexibleString string

func (fs *FlexibleString) UnmarshalJSON(data []byte) error {
	if fs == nil {
		return fmt.Errorf("FlexibleString: nil receiver")
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		*fs = FlexibleString(strings.TrimSpace(s))
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err == nil {
		*fs = FlexibleString(num.String())
		return nil
	}

	return fmt.Errorf("FlexibleString: expected string or number, got %s", string(data))
}

func (fs FlexibleString) String() string {
	return string(fs)
}

// FlexibleNumber accepts a JSON number or a numeric string. Use a pointer
// field to tell an absent value from zero.
type FlexibleNumber float64

func (fn *FlexibleNumber) UnmarshalJSON(data []byte) error {
	if fn == nil {
		return fmt.Errorf("FlexibleNumber: nil receiver")
	}
	trimmed := bytes.TrimSpace(data)

	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		*fn = FlexibleNumber(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("FlexibleNumber: %q is not a number", s)
		}
		*fn = FlexibleNumber(f)
		return nil
	}

	return fmt.Errorf("FlexibleNumber: expected number or numeric string, got %s", string(data))
}

// Float returns nil when the field was absent.
func (fn *FlexibleNumber) Float() *float64 {
	if fn == nil {
		return nil
	}
	f := float64(*fn)
	return &f
}
