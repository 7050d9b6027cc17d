package chat

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Side is the inferred conversational side of a message.
type Side int

const (
	SideMiddle Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "middle"
	}
}

// Role returns the conversational name of the side: the left column holds
// replies from the other party, the right column holds the device owner.
func (s Side) Role() string {
	switch s {
	case SideLeft:
		return "response"
	case SideRight:
		return "user"
	default:
		return "middle"
	}
}

// ParseSide accepts both positional and role names.
func ParseSide(name string) (Side, error) {
	switch name {
	case "left", "response":
		return SideLeft, nil
	case "right", "user":
		return SideRight, nil
	case "middle", "":
		return SideMiddle, nil
	default:
		return SideMiddle, fmt.Errorf("unknown side: %s", name)
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	side, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = side
	return nil
}

func (s Side) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *Side) UnmarshalYAML(node *yaml.Node) error {
	return s.UnmarshalText([]byte(node.Value))
}
