package player

import (
	"fmt"
	"regexp"
	"strings"
)

// Position represents the tactical role used by imputation profiles.
type Position string

const (
	PositionGoalkeeper Position = "GK"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
	PositionUnknown    Position = ""
)

var AllPositions = map[Position]struct{}{
	PositionGoalkeeper: {},
	PositionDefender:   {},
	PositionMidfielder: {},
	PositionForward:    {},
}

var (
	goalkeeperLabel = regexp.MustCompile(`(?i)\b(gk|goalkeeper|keeper|portiere|por|p)\b`)
	defenderLabel   = regexp.MustCompile(`(?i)\b(def|defender|difensore|difesa|dc|cb|lb|rb|terzino|fullback|centre[- ]?back|center[- ]?back)\b`)
	midfielderLabel = regexp.MustCompile(`(?i)\b(mid|midfielder|centrocampista|cc|cm|dm|am|mediano|regista|trequartista|mezzala)\b`)
	forwardLabel    = regexp.MustCompile(`(?i)\b(fwd|fw|forward|attaccante|att|st|striker|punta|ala|winger|cf)\b`)
)

// ParsePosition maps a free-text Italian or English role label to a Position.
func ParsePosition(label string) Position {
	label = strings.TrimSpace(label)
	if label == "" {
		return PositionUnknown
	}
	if _, ok := AllPositions[Position(strings.ToUpper(label))]; ok {
		return Position(strings.ToUpper(label))
	}
	switch {
	case goalkeeperLabel.MatchString(label):
		return PositionGoalkeeper
	case defenderLabel.MatchString(label):
		return PositionDefender
	case midfielderLabel.MatchString(label):
		return PositionMidfielder
	case forwardLabel.MatchString(label):
		return PositionForward
	}
	return PositionUnknown
}

// Candidate is a roster player considered during identifier resolution.
type Candidate struct {
	PlayerID    string   `json:"player_id" db:"id"`
	TeamID      string   `json:"team_id,omitempty" db:"team_id"`
	FirstName   string   `json:"first_name" db:"first_name"`
	LastName    string   `json:"last_name" db:"last_name"`
	Position    Position `json:"position,omitempty" db:"position"`
	ShirtNumber int      `json:"shirt_number,omitempty" db:"shirt_number"`
	Confidence  int      `json:"confidence,omitempty" db:"-"`
	MatchReason string   `json:"match_reason,omitempty" db:"-"`
}

func (c Candidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c Candidate) Validate() error {
	if c.PlayerID == "" {
		return fmt.Errorf("player id is required")
	}
	if c.LastName == "" && c.FirstName == "" {
		return fmt.Errorf("player name is required")
	}
	if c.ShirtNumber < 0 {
		return fmt.Errorf("shirt number must not be negative")
	}
	return nil
}
