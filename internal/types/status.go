package types

import (
	"encoding/json"
	"fmt"
)

// CheckStatus is the outcome of a single check. The zero value is invalid;
// only StatusPass, StatusFail and StatusNeedsAttention exist.
type CheckStatus struct {
	value string
}

var (
	StatusPass           = CheckStatus{"pass"}
	StatusFail           = CheckStatus{"fail"}
	StatusNeedsAttention = CheckStatus{"needs-attention"}
)

// AllStatuses lists every status in display order.
var AllStatuses = []CheckStatus{StatusPass, StatusFail, StatusNeedsAttention}

// ParseCheckStatus converts a wire value into a CheckStatus.
func ParseCheckStatus(s string) (CheckStatus, error) {
	for _, st := range AllStatuses {
		if st.value == s {
			return st, nil
		}
	}
	return CheckStatus{}, fmt.Errorf("unknown check status %q", s)
}

// String returns the wire value.
func (s CheckStatus) String() string {
	return s.value
}

// Label returns the human readable badge text.
func (s CheckStatus) Label() string {
	switch s {
	case StatusPass:
		return "Pass"
	case StatusFail:
		return "Fail"
	case StatusNeedsAttention:
		return "Needs Attention"
	default:
		return "Unknown"
	}
}

// IsValid reports whether s is one of the three known statuses.
func (s CheckStatus) IsValid() bool {
	_, err := ParseCheckStatus(s.value)
	return err == nil
}

func (s CheckStatus) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("cannot marshal invalid check status %q", s.value)
	}
	return json.Marshal(s.value)
}

func (s *CheckStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("check status must be a string: %w", err)
	}
	parsed, err := ParseCheckStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
