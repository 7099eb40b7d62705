package memregion

import (
	"fmt"
	"strings"
)

// AccessPlan selects the traversal order over the pages of a Region.
type AccessPlan int

const (
	Sequential AccessPlan = iota
	Random
)

func (p AccessPlan) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("AccessPlan(%d)", int(p))
	}
}

// ParseAccessPlan accepts "sequential"/"seq" and "random"/"rand", case-insensitive.
func ParseAccessPlan(s string) (AccessPlan, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "seq":
		return Sequential, nil
	case "random", "rand":
		return Random, nil
	default:
		return 0, fmt.Errorf("unknown access pattern %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (p AccessPlan) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *AccessPlan) UnmarshalText(text []byte) error {
	plan, err := ParseAccessPlan(string(text))
	if err != nil {
		return err
	}
	*p = plan
	return nil
}
