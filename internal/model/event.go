package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// eventRe matches raw event names such as "BS U17", "GD U13", "X U15" or
// "xd u11". Gender is B, G or X; the discipline letter may be omitted for
// mixed events (mixed is always doubles).
var eventRe = regexp.MustCompile(`^([BGX])([SD]?)\s*U\s*(\d+)$`)

// Event identifies one competitive event: a gender, a discipline and an
// age bracket. Code is the canonical form used as the storage key.
type Event struct {
	Code       string `json:"event_code"`
	Gender     string `json:"gender"`
	Discipline string `json:"discipline"`
	Age        string `json:"age"`
}

// Family returns the EventFamily code shared by all age brackets of the
// same gender and discipline, e.g. "BS", "GD" or "XD". Carry-up only
// flows between events of the same family.
func (e Event) Family() string {
	return strings.SplitN(e.Code, " ", 2)[0]
}

var genderNames = map[string]string{
	"B": "Boys",
	"G": "Girls",
	"X": "Mixed",
}

var disciplineNames = map[string]string{
	"S": "Singles",
	"D": "Doubles",
}

// ParseEventCode canonicalizes a raw event name into an Event.
// "X U15" is mixed doubles; boys/girls events must carry an explicit
// S or D since neither discipline is implied.
func ParseEventCode(raw string) (Event, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	m := eventRe.FindStringSubmatch(s)
	if m == nil {
		m = eventRe.FindStringSubmatch(strings.ReplaceAll(s, " ", ""))
	}
	if m == nil {
		return Event{}, eris.Errorf("model: invalid event name %q", raw)
	}

	g, d, n := m[1], m[2], m[3]
	if d == "" {
		if g != "X" {
			return Event{}, eris.Errorf("model: event name %q is missing a discipline", raw)
		}
		d = "D"
	}

	age := "U" + n
	return Event{
		Code:       fmt.Sprintf("%s%s %s", g, d, age),
		Gender:     genderNames[g],
		Discipline: disciplineNames[d],
		Age:        age,
	}, nil
}
