package player

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var latinFold = map[rune]string{
	'à': "a", 'á': "a", 'ä': "a", 'â': "a", 'ā': "a", 'ą': "a", 'å': "a", 'ã': "a",
	'è': "e", 'é': "e", 'ë': "e", 'ê': "e", 'ē': "e", 'ę': "e", 'ė': "e",
	'ì': "i", 'í': "i", 'ï': "i", 'î': "i", 'ī': "i", 'į': "i",
	'ò': "o", 'ó': "o", 'ö': "o", 'ô': "o", 'ō': "o", 'ø': "o", 'õ': "o",
	'ù': "u", 'ú': "u", 'ü': "u", 'û': "u", 'ū': "u", 'ų': "u",
	'ç': "c", 'č': "c", 'ć': "c",
	'ñ': "n", 'ń': "n",
	'š': "s", 'ś': "s", 'ß': "ss",
	'ž': "z", 'ź': "z", 'ż': "z",
	'ł': "l", 'ľ': "l",
	'ř': "r", 'ŕ': "r",
	'ť': "t",
	'ý': "y", 'ÿ': "y",
	'đ': "d", 'ď': "d",
}

// NormalizeName folds case and Latin diacritics, turns punctuation into
// spaces and collapses whitespace.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var folded strings.Builder
	folded.Grow(len(s))
	for _, r := range s {
		if repl, ok := latinFold[r]; ok {
			folded.WriteString(repl)
			continue
		}
		folded.WriteRune(r)
	}

	decomposed := norm.NFD.String(folded.String())
	var out strings.Builder
	out.Grow(len(decomposed))
	space := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if space && out.Len() > 0 {
				out.WriteByte(' ')
			}
			space = false
			out.WriteRune(r)
		default:
			space = true
		}
	}
	return out.String()
}

// FormatKind is the lexical shape of a player token.
type FormatKind string

const (
	FormatShirtNumber  FormatKind = "shirtNumber"
	FormatEmail        FormatKind = "emailFormat"
	FormatLastFirst    FormatKind = "lastFirst"
	FormatFirstInitial FormatKind = "firstInitial"
	FormatInitialLast  FormatKind = "initialLast"
	FormatFullName     FormatKind = "fullName"
	FormatSingleName   FormatKind = "singleName"
)

// Format holds the parts extracted from a token by DetectFormat.
type Format struct {
	Kind   FormatKind
	First  string
	Last   string
	Name   string
	Number int
}

var (
	shirtNumberPattern = regexp.MustCompile(`(?i)^(?:#|player[_\s]*)?(\d{1,2})$`)
	emailPattern       = regexp.MustCompile(`^([a-zA-Z]+)[._]([a-zA-Z]+)(?:@.*)?$`)
	lastFirstPattern   = regexp.MustCompile(`^([\p{L}\s'-]+),\s*([\p{L}\s'-]+)$`)
	firstInitialDotted = regexp.MustCompile(`^(\p{L}{2,})\s*(\p{L})\.$`)
	firstInitialSpaced = regexp.MustCompile(`^(\p{L}{2,})\s+(\p{L})$`)
	initialLastPattern = regexp.MustCompile(`^(\p{L})(?:\.\s*|\s+)(\p{L}[\p{L}\s'-]*)$`)
	fullNamePattern    = regexp.MustCompile(`^([\p{L}\s'-]+?)\s+([\p{L}'-][\p{L}\s'-]*)$`)
)

// DetectFormat classifies the raw token. Order matters: the first pattern that
// matches wins. Letter case never changes the result.
func DetectFormat(token string) Format {
	trimmed := strings.TrimSpace(token)

	if m := shirtNumberPattern.FindStringSubmatch(trimmed); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Format{Kind: FormatShirtNumber, Number: n}
	}
	if m := emailPattern.FindStringSubmatch(trimmed); m != nil {
		return Format{Kind: FormatEmail, First: m[1], Last: m[2]}
	}
	if m := lastFirstPattern.FindStringSubmatch(trimmed); m != nil {
		return Format{Kind: FormatLastFirst, Last: strings.TrimSpace(m[1]), First: strings.TrimSpace(m[2])}
	}
	if m := firstInitialDotted.FindStringSubmatch(trimmed); m != nil {
		return Format{Kind: FormatFirstInitial, First: m[1], Last: m[2]}
	}
	if m := firstInitialSpaced.FindStringSubmatch(trimmed); m != nil {
		return Format{Kind: FormatFirstInitial, First: m[1], Last: m[2]}
	}
	if m := initialLastPattern.FindStringSubmatch(trimmed); m != nil {
		return Format{Kind: FormatInitialLast, First: m[1], Last: strings.TrimSpace(m[2])}
	}
	if m := fullNamePattern.FindStringSubmatch(trimmed); m != nil {
		return Format{Kind: FormatFullName, First: strings.TrimSpace(m[1]), Last: strings.TrimSpace(m[2])}
	}
	return Format{Kind: FormatSingleName, Name: trimmed}
}

// Similarity is the Levenshtein similarity of a and b on runes, in [0,100].
func Similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	ar, br := []rune(a), []rune(b)
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	if len(ar) == 0 || len(br) == 0 {
		return 0
	}
	d := levenshtein(ar, br)
	return math.Max(0, float64(maxLen-d)/float64(maxLen)*100)
}

func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range a {
		curr[0] = i + 1
		for j, cb := range b {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// MatchConfig holds the acceptance floors and discounts of each strategy.
type MatchConfig struct {
	GlobalFloor        float64
	FullNameFloor      float64
	InitialFloor       float64
	EmailFloor         float64
	SingleNameFloor    float64
	SuggestionFloor    float64
	InitialDiscount    float64
	EmailDiscount      float64
	SingleNameDiscount float64
	LastFirstDiscount  float64
	MaxSuggestions     int
}

func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		GlobalFloor:        60,
		FullNameFloor:      70,
		InitialFloor:       70,
		EmailFloor:         75,
		SingleNameFloor:    85,
		SuggestionFloor:    30,
		InitialDiscount:    0.9,
		EmailDiscount:      0.95,
		SingleNameDiscount: 0.8,
		LastFirstDiscount:  0.95,
		MaxSuggestions:     3,
	}
}

type OutcomeKind string

const (
	OutcomeResolved  OutcomeKind = "resolved"
	OutcomeAmbiguous OutcomeKind = "ambiguous"
	OutcomeNotFound  OutcomeKind = "not_found"
)

const (
	MatchExactFullName     = "exact_full_name"
	MatchExactReversedName = "exact_reversed_name"
	MatchExactShirtNumber  = "exact_shirt_number"
	MatchFuzzySingle       = "fuzzy_single"

	ReasonFullName      = "fuzzy_full_name"
	ReasonLastFirst     = "fuzzy_last_first"
	ReasonFirstInitial  = "fuzzy_first_initial"
	ReasonInitialLast   = "fuzzy_initial_last"
	ReasonEmail         = "fuzzy_email_format"
	ReasonFirstNameOnly = "fuzzy_first_name_only"
	ReasonLastNameOnly  = "fuzzy_last_name_only"
)

// Suggestion is a below-floor candidate offered when nothing matched.
type Suggestion struct {
	PlayerID    string   `json:"player_id"`
	DisplayName string   `json:"display_name"`
	Position    Position `json:"position,omitempty"`
	ShirtNumber int      `json:"shirt_number,omitempty"`
	Similarity  int      `json:"similarity"`
}

type Outcome struct {
	Kind        OutcomeKind
	MatchType   string
	Format      Format
	Best        Candidate
	Options     []Candidate
	Suggestions []Suggestion
}

// Matcher resolves tokens against an in-memory roster snapshot.
type Matcher struct {
	cfg MatchConfig
}

func NewMatcher(cfg MatchConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

func (m *Matcher) Config() MatchConfig {
	return m.cfg
}

func (m *Matcher) Match(token string, roster []Candidate) Outcome {
	format := DetectFormat(token)
	if exact, matchType, ok := m.exact(token, format, roster); ok {
		exact.Confidence = 100
		exact.MatchReason = matchType
		return Outcome{Kind: OutcomeResolved, MatchType: matchType, Format: format, Best: exact}
	}

	matches := m.fuzzy(token, format, roster)
	switch len(matches) {
	case 0:
		return Outcome{Kind: OutcomeNotFound, Format: format, Suggestions: m.Suggest(token, roster)}
	case 1:
		return Outcome{Kind: OutcomeResolved, MatchType: MatchFuzzySingle, Format: format, Best: matches[0]}
	default:
		return Outcome{Kind: OutcomeAmbiguous, Format: format, Best: matches[0], Options: matches}
	}
}

func (m *Matcher) exact(token string, format Format, roster []Candidate) (Candidate, string, bool) {
	normalized := NormalizeName(token)
	if normalized != "" {
		for _, p := range roster {
			if normalized == NormalizeName(p.FirstName+" "+p.LastName) {
				return p, MatchExactFullName, true
			}
		}
		for _, p := range roster {
			if normalized == NormalizeName(p.LastName+" "+p.FirstName) {
				return p, MatchExactReversedName, true
			}
		}
	}
	if format.Kind == FormatShirtNumber {
		for _, p := range roster {
			if p.ShirtNumber > 0 && p.ShirtNumber == format.Number {
				return p, MatchExactShirtNumber, true
			}
		}
	}
	return Candidate{}, "", false
}

type scored struct {
	score  float64
	reason string
}

func (m *Matcher) fuzzy(token string, format Format, roster []Candidate) []Candidate {
	normalized := NormalizeName(token)
	out := make([]Candidate, 0, 4)

	for _, p := range roster {
		first := NormalizeName(p.FirstName)
		last := NormalizeName(p.LastName)
		full := NormalizeName(p.FirstName + " " + p.LastName)

		var best scored
		consider := func(s scored) {
			if s.score > best.score {
				best = s
			}
		}

		if sim := Similarity(normalized, full); sim >= m.cfg.FullNameFloor {
			consider(scored{score: sim, reason: ReasonFullName})
		}

		switch format.Kind {
		case FormatLastFirst:
			rebuilt := NormalizeName(format.First + " " + format.Last)
			if sim := Similarity(rebuilt, full); sim >= m.cfg.FullNameFloor {
				consider(scored{score: sim * m.cfg.LastFirstDiscount, reason: ReasonLastFirst})
			}
		case FormatFirstInitial:
			// "Mario R.": complete first name, surname reduced to its initial.
			if strings.HasPrefix(last, NormalizeName(format.Last)) {
				if sim := Similarity(NormalizeName(format.First), first); sim >= m.cfg.InitialFloor {
					consider(scored{score: sim * m.cfg.InitialDiscount, reason: ReasonFirstInitial})
				}
			}
		case FormatInitialLast:
			if strings.HasPrefix(first, NormalizeName(format.First)) {
				if sim := Similarity(NormalizeName(format.Last), last); sim >= m.cfg.InitialFloor {
					consider(scored{score: sim * m.cfg.InitialDiscount, reason: ReasonInitialLast})
				}
			}
		case FormatEmail:
			avg := (Similarity(NormalizeName(format.First), first) + Similarity(NormalizeName(format.Last), last)) / 2
			if avg >= m.cfg.EmailFloor {
				consider(scored{score: avg * m.cfg.EmailDiscount, reason: ReasonEmail})
			}
		case FormatSingleName:
			if sim := Similarity(normalized, first); sim >= m.cfg.SingleNameFloor {
				consider(scored{score: sim * m.cfg.SingleNameDiscount, reason: ReasonFirstNameOnly})
			}
			if sim := Similarity(normalized, last); sim >= m.cfg.SingleNameFloor {
				consider(scored{score: sim * m.cfg.SingleNameDiscount, reason: ReasonLastNameOnly})
			}
		}

		confidence := int(math.Round(best.score))
		if best.reason == "" || float64(confidence) < m.cfg.GlobalFloor {
			continue
		}
		p.Confidence = confidence
		p.MatchReason = best.reason
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Suggest lists the closest roster players by full-name similarity for
// guidance only, regardless of the acceptance floors.
func (m *Matcher) Suggest(token string, roster []Candidate) []Suggestion {
	normalized := NormalizeName(token)
	out := make([]Suggestion, 0, m.cfg.MaxSuggestions)
	for _, p := range roster {
		sim := Similarity(normalized, NormalizeName(p.FirstName+" "+p.LastName))
		if sim < m.cfg.SuggestionFloor {
			continue
		}
		out = append(out, Suggestion{
			PlayerID:    p.PlayerID,
			DisplayName: p.FullName(),
			Position:    p.Position,
			ShirtNumber: p.ShirtNumber,
			Similarity:  int(math.Round(sim)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > m.cfg.MaxSuggestions {
		out = out[:m.cfg.MaxSuggestions]
	}
	return out
}

// Describe renders a candidate for disambiguation messages.
func (c Candidate) Describe() string {
	if c.ShirtNumber > 0 {
		return fmt.Sprintf("%s (#%d, %d%%)", c.FullName(), c.ShirtNumber, c.Confidence)
	}
	return fmt.Sprintf("%s (%d%%)", c.FullName(), c.Confidence)
}
