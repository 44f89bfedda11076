package payload

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/waftester/reconsuite/pkg/jsonutil"
)

// Status is an HTTP status reported for a sensitive file. The backend sends
// it as a number ("status": 200); some replies use a string. Both decode to
// the same value.
type Status string

// Code returns the numeric status, or 0 when it is not a number.
func (s Status) Code() int {
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return 0
	}
	return n
}

// UnmarshalJSON accepts a JSON string, number or null.
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return fmt.Errorf("status: empty value")
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var str string
		if err := jsonutil.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Status(str)
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("status: want string or number, got %s", data)
		}
		*s = Status(data)
	}
	return nil
}
