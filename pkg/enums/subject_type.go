package enums

import "fmt"

// SubjectType names the entity an activity entry is about.
type SubjectType string

const (
	SubjectTypeOrder    SubjectType = "order"
	SubjectTypeCustomer SubjectType = "customer"
)

func (s SubjectType) String() string {
	return string(s)
}

func (s SubjectType) IsValid() bool {
	return s == SubjectTypeOrder || s == SubjectTypeCustomer
}

// ParseSubjectType converts raw input into SubjectType.
func ParseSubjectType(value string) (SubjectType, error) {
	candidate := SubjectType(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid subject type %q", value)
	}
	return candidate, nil
}
