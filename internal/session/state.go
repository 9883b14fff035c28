package session

import "fmt"

type Principal struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar,omitempty"`
	AccessToken string `json:"-"`
}

type Status int

const (
	StatusResolving Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusResolving:
		return "resolving"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "resolving":
		*s = StatusResolving
	case "unauthenticated":
		*s = StatusUnauthenticated
	case "authenticated":
		*s = StatusAuthenticated
	default:
		return fmt.Errorf("unknown session state %q", b)
	}
	return nil
}

// State is what observers see. Principal is set only when Status is
// StatusAuthenticated.
type State struct {
	Status    Status     `json:"state"`
	Principal *Principal `json:"principal,omitempty"`
}

func (s State) Loading() bool {
	return s.Status == StatusResolving
}

func resolving() State { return State{Status: StatusResolving} }

func signedOut() State { return State{Status: StatusUnauthenticated} }

func signedIn(p Principal) State {
	return State{Status: StatusAuthenticated, Principal: &p}
}
