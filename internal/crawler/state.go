package crawler

import "fmt"

type State int

const (
	STATE_LOGGED_OUT State = iota
	STATE_AUTHENTICATING
	STATE_AUTHENTICATED
	STATE_LISTING
	STATE_ITEM_NAVIGATE
	STATE_ITEM_EXTRACT
	STATE_ITEM_PERSIST
	STATE_MEMBERS
	STATE_ANNOUNCEMENTS
	STATE_DONE
	STATE_FAILED
)

func (s State) String() string {
	switch s {
	case STATE_LOGGED_OUT:
		return "LOGGED_OUT"
	case STATE_AUTHENTICATING:
		return "AUTHENTICATING"
	case STATE_AUTHENTICATED:
		return "AUTHENTICATED"
	case STATE_LISTING:
		return "LISTING"
	case STATE_ITEM_NAVIGATE:
		return "ITEM_NAVIGATE"
	case STATE_ITEM_EXTRACT:
		return "ITEM_EXTRACT"
	case STATE_ITEM_PERSIST:
		return "ITEM_PERSIST"
	case STATE_MEMBERS:
		return "MEMBERS"
	case STATE_ANNOUNCEMENTS:
		return "ANNOUNCEMENTS"
	case STATE_DONE:
		return "DONE"
	case STATE_FAILED:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// after the list, any of these may follow depending on which stages are
// configured and whether there are units left
var afterList = []State{STATE_ITEM_NAVIGATE, STATE_MEMBERS, STATE_ANNOUNCEMENTS, STATE_DONE, STATE_FAILED}

var transitions = map[State][]State{
	STATE_LOGGED_OUT:     {STATE_AUTHENTICATING},
	STATE_AUTHENTICATING: {STATE_AUTHENTICATED, STATE_FAILED},
	STATE_AUTHENTICATED:  {STATE_LISTING, STATE_FAILED},
	STATE_LISTING:        afterList,
	// a failed item moves straight on to the next one
	STATE_ITEM_NAVIGATE: append([]State{STATE_ITEM_EXTRACT}, afterList...),
	STATE_ITEM_EXTRACT:  append([]State{STATE_ITEM_PERSIST}, afterList...),
	STATE_ITEM_PERSIST:  afterList,
	STATE_MEMBERS:       {STATE_ANNOUNCEMENTS, STATE_DONE, STATE_FAILED},
	STATE_ANNOUNCEMENTS: {STATE_DONE, STATE_FAILED},
}

func canTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (c *Crawler) State() State {
	return c.state
}

func (c *Crawler) transition(to State) {
	if !canTransition(c.state, to) {
		panic(fmt.Sprintf("invalid crawler transition %s -> %s", c.state, to))
	}
	c.tel.ReportDebug("state transition", c.state.String(), to.String())
	c.state = to
	c.trail = append(c.trail, to)
}
