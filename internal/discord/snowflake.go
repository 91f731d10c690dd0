package discord

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Snowflake is the service's 64-bit, time-ordered entity identifier. The
// zero value is the "invalid" sentinel. Snowflakes travel on the wire as
// decimal strings because the numeric value can exceed the safe-integer
// range of some peers.
type Snowflake uint64

// SnowflakeInvalid is the sentinel for an unset identifier.
const SnowflakeInvalid Snowflake = 0

// ParseError is returned when a snowflake string is not a valid unsigned
// decimal number.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid snowflake %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseSnowflake parses a decimal-string snowflake. An empty string parses
// to the invalid sentinel without error; a non-empty non-numeric string
// fails with a *ParseError.
func ParseSnowflake(s string) (Snowflake, error) {
	if s == "" {
		return SnowflakeInvalid, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return SnowflakeInvalid, &ParseError{Input: s, Err: err}
	}

	return Snowflake(n), nil
}

// IsValid reports whether the snowflake is set.
func (s Snowflake) IsValid() bool {
	return s != SnowflakeInvalid
}

// String renders the snowflake in its decimal wire form.
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// MarshalJSON encodes the snowflake as a decimal string.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a snowflake from its decimal-string wire form.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return &ParseError{Input: string(data), Err: err}
	}

	parsed, err := ParseSnowflake(str)
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}
