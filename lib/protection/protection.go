package protection

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"tfaprotbot/lib/timezone"
	"time"
)

const (
	TypeEdit   = "edit"
	TypeMove   = "move"
	TypeUpload = "upload"
	TypeCreate = "create"

	// the highest protection level available on the wiki
	LevelSysop = "sysop"

	// the long dead article feedback tool still shows up as a protection
	// type on old pages, but the API refuses to accept it back (T57389)
	typeArticleFeedback = "aft"

	infinityToken = "infinity"
)

var infiniteTokens = []string{"infinity", "infinite", "indefinite", "never"}

// Expiry is either an absolute point in time or the permanent marker.
type Expiry struct {
	Time     time.Time
	Infinite bool
}

var Infinite = Expiry{Infinite: true}

func At(t time.Time) Expiry {
	return Expiry{Time: t.In(timezone.Location)}
}

func ParseExpiry(s string) (Expiry, error) {
	s = strings.TrimSpace(s)
	if slices.Contains(infiniteTokens, strings.ToLower(s)) {
		return Infinite, nil
	}
	t, err := timezone.ParseTimestamp(s)
	if err != nil {
		return Expiry{}, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	return At(t), nil
}

func (e Expiry) String() string {
	if e.Infinite {
		return infinityToken
	}
	return timezone.FormatTimestamp(e.Time)
}

// Before reports whether the protection lapses before t. Permanent
// protection never does.
func (e Expiry) Before(t time.Time) bool {
	if e.Infinite {
		return false
	}
	return e.Time.Before(t)
}

func (e Expiry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *Expiry) UnmarshalJSON(data []byte) error {
	var raw string
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	parsed, err := ParseExpiry(raw)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Entry is a single protection row as reported by the API.
type Entry struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Expiry  Expiry `json:"expiry"`
	Cascade bool   `json:"cascade,omitempty"`
	// the page the (cascading) protection is inherited from
	Source string `json:"source,omitempty"`
}

// Status is the full protection state of a page.
type Status []Entry

// Get returns the page's own protection of the given type, rows
// inherited through cascading protection are ignored.
func (s Status) Get(protectionType string) (Entry, bool) {
	for _, e := range s {
		if e.Type == protectionType && e.Source == "" {
			return e, true
		}
	}
	return Entry{}, false
}

type Change struct {
	Level  string
	Expiry Expiry
}

// Plan maps protection types to the change that has to be applied.
// An empty plan means the page is already protected well enough.
type Plan map[string]Change

var typeOrder = []string{TypeEdit, TypeMove, TypeUpload, TypeCreate}

// Types returns the planned protection types in a stable order.
func (p Plan) Types() []string {
	types := make([]string, 0, len(p))
	for t := range p {
		types = append(types, t)
	}
	slices.SortFunc(types, func(a, b string) int {
		ai := slices.Index(typeOrder, a)
		bi := slices.Index(typeOrder, b)
		if ai < 0 {
			ai = len(typeOrder)
		}
		if bi < 0 {
			bi = len(typeOrder)
		}
		if ai != bi {
			return ai - bi
		}
		return strings.Compare(a, b)
	})
	return types
}
