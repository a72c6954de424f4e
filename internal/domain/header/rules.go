package header

import (
	"regexp"
	"strings"

	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

// Target is what a rule assigns to a matched header.
type Target struct {
	Field        telemetry.Field
	Transform    telemetry.Transform
	SemanticType string
	Description  string
	Required     bool
}

// Rule is one semantic category of the classifier. Patterns decide whether
// the category applies; Resolve picks the concrete sub-variant and may
// decline, in which case classification continues with the next rule.
type Rule struct {
	Category   string
	Patterns   []*regexp.Regexp
	Confidence int
	Resolve    func(p Subject) (Target, bool)
}

// Subject carries the forms of a header that patterns are tested against.
type Subject struct {
	Raw    string
	Lower  string
	Bare   string
	Spaced string
}

var unitSuffix = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]\s*$`)

func newSubject(raw string) Subject {
	lower := strings.ToLower(strings.TrimSpace(raw))
	bare := strings.TrimSpace(unitSuffix.ReplaceAllString(lower, ""))
	return Subject{
		Raw:    raw,
		Lower:  lower,
		Bare:   bare,
		Spaced: strings.ReplaceAll(Normalize(raw), "_", " "),
	}
}

func (p Subject) forms() [3]string {
	return [3]string{p.Lower, p.Bare, p.Spaced}
}

// Matches reports whether any pattern accepts any form of the header.
func (r Rule) Matches(p Subject) bool {
	for _, re := range r.Patterns {
		for _, form := range p.forms() {
			if form != "" && re.MatchString(form) {
				return true
			}
		}
	}
	return false
}

func anchored(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)^(?:`+e+`)$`))
	}
	return out
}

func fixed(t Target) func(Subject) (Target, bool) {
	return func(Subject) (Target, bool) { return t, true }
}

func metric(field telemetry.Field, semantic, description string) Target {
	return Target{Field: field, Transform: telemetry.TransformParseFloat, SemanticType: semantic, Description: description}
}

func count(field telemetry.Field, semantic, description string) Target {
	return Target{Field: field, Transform: telemetry.TransformParseInt, SemanticType: semantic, Description: description}
}

var (
	maxRe       = regexp.MustCompile(`(?i)max|maximum|top|peak|massima|picco|fastest`)
	avgRe       = regexp.MustCompile(`(?i)avg|average|mean|media|medio`)
	hrMaxRe     = regexp.MustCompile(`(?i)max|maximum|massima|picco|peak`)
	kmRe        = regexp.MustCompile(`(?i)km|kilomet|chilometri`)
	pctRe       = regexp.MustCompile(`(?i)%|pct|perc|percentuale`)
	perMinRe    = regexp.MustCompile(`(?i)min|minuto|events|eventi`)
	countRe     = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:num|numero|count|nr|n)(?:[^\p{L}]|$)`)
	range1520Re = regexp.MustCompile(`15\s*[-_ ]\s*20`)
	range2025Re = regexp.MustCompile(`20\s*[-_ ]\s*25`)
	over25Re    = regexp.MustCompile(`(?i)(?:>|over|oltre|above)\s*_?\s*25`)
	over20Re    = regexp.MustCompile(`(?i)(?:>|over|oltre|above)\s*_?\s*20`)
	over15Re    = regexp.MustCompile(`(?i)(?:>|over|oltre|above)\s*_?\s*15`)
	over35Re    = regexp.MustCompile(`(?i)(?:>|over|oltre|above)?\s*_?\s*35`)
	fiveSecRe   = regexp.MustCompile(`(?i)5\s*_?\s*s|5\s*secondi|pm\s*_?\s*5`)
	threeRe     = regexp.MustCompile(`(?:^|[^\p{L}\d])-?3(?:[^\d]|$)`)
	twoRe       = regexp.MustCompile(`(?:^|[^\p{L}\d])-?2(?:[^\d]|$)`)
	under5Re    = regexp.MustCompile(`(?i)<|under|sotto`)
	range510Re  = regexp.MustCompile(`5\s*[-_ ]\s*10`)
)

const (
	sp  = `[\s_]*`
	sp1 = `[\s_]+`
)

const (
	accWord    = `acc(?:el(?:erazion[ie]|erations?|s)?)?\.?`
	decWord    = `dec(?:el(?:erazion[ie]|erations?|s)?)?\.?`
	eventWords = `(?:(?:distanza|distance|dist|d|num|numero|count|n|nr|%|pct|perc|percentuale|eventi|events)[\s_.]*)?`
	msUnit     = `(?:[\s_]*m/?s(?:2|²|\^2)?)?`
	perMinute  = `(?:[\s_]*(?:/|per|al)?[\s_]*min(?:uto|ute)?)?`
)

// DefaultRules is the ordered rule table used by Classify. The first rule
// whose patterns match and whose Resolve accepts the header wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category:   "session_type",
			Confidence: 92,
			Patterns: anchored(
				`session`+sp+`type|tipo`+sp+`sessione|type|session`+sp+`category|categoria`,
				`allenamento|training|partita|match`,
			),
			Resolve: fixed(Target{Field: telemetry.FieldSessionType, Transform: telemetry.TransformNormalizeSessionType, SemanticType: "session_type", Description: "Session type (Training/Match)"}),
		},
		{
			Category:   "session_name",
			Confidence: 85,
			Patterns:   anchored(`session`+sp+`name|nome`+sp+`sessione|session|sessione|titolo`+sp+`sessione`),
			Resolve:    fixed(Target{Field: telemetry.FieldSessionName, Transform: telemetry.TransformString, SemanticType: "session_name", Description: "Session name"}),
		},
		{
			Category:   "player",
			Confidence: 90,
			Patterns: anchored(
				`giocatore|atleta|nome|player|name|athlete|calciatore`,
				`nome`+sp+`(?:giocatore|atleta|completo)`,
				`cognome`+sp+`nome|nome`+sp+`cognome`,
				`(?:athlete|player|full)`+sp+`name`,
				`first`+sp+`name|last`+sp+`name|surname|cognome`,
				`polar`+sp+`athlete|garmin`+sp+`user|catapult`+sp+`player`,
				`user`+sp+`name|participant`,
				`numero`+sp+`maglia|shirt`+sp+`(?:number|no\.?)|jersey(?:`+sp+`(?:num|number|no\.?))?`,
				`(?:player|athlete)`+sp+`id|#`,
			),
			Resolve: fixed(Target{Field: telemetry.FieldPlayerID, Transform: telemetry.TransformPlayerLookup, SemanticType: "player", Description: "Player name or id (lookup)", Required: true}),
		},
		{
			Category:   "date",
			Confidence: 95,
			Patterns: anchored(
				`data(?:`+sp+`(?:allenamento|sessione|training))?|giorno`,
				`data`+sp+`partita|match`+sp+`date`,
				`(?:session|training|workout)`+sp+`date`,
				`date|timestamp|time|quando|when|day`,
				`(?:activity|exercise)`+sp+`date|start`+sp+`time`,
				`created`+sp+`at|recorded`+sp+`on`,
			),
			Resolve: fixed(Target{Field: telemetry.FieldSessionDate, Transform: telemetry.TransformSmartDate, SemanticType: "date", Description: "Session date", Required: true}),
		},
		{
			Category:   "position",
			Confidence: 85,
			Patterns:   anchored(`posizione|ruolo|position|role|pos\.?|player`+sp+`position`),
			Resolve:    fixed(Target{Field: telemetry.FieldPosition, Transform: telemetry.TransformString, SemanticType: "position", Description: "Player role"}),
		},
		{
			Category:   "distance",
			Confidence: 85,
			Patterns: anchored(
				`distanza(?:`+sp+`(?:totale|km|m|metri|percorsa))?|percorso`,
				`(?:chilometri|metri)`+sp+`totali`,
				`total`+sp+`distance|distance(?:`+sp+`(?:km|m|meters|metres|total))?|covered`,
				`kilometers|kilometres|meters|metres`,
				`dist\.?(?:`+sp+`(?:km|m|meters))?|total`+sp+`dist`,
				`(?:covered|running)`+sp+`distance`,
			),
			Resolve: func(p Subject) (Target, bool) {
				t := Target{Field: telemetry.FieldTotalDistance, Transform: telemetry.TransformParseFloat, SemanticType: "distance", Description: "Total distance (m)"}
				if kmRe.MatchString(p.Lower) {
					t.Transform = telemetry.TransformKmToMeters
					t.Description = "Total distance (km to m)"
				}
				return t, true
			},
		},
		{
			Category:   "speed",
			Confidence: 88,
			Patterns: anchored(
				`velocit[aà](?:`+sp+`(?:max|massima|picco|media|medio))?|v\.?`+sp+`max|v\.?`+sp+`avg`,
				`(?:max|maximum|top|peak)`+sp+`(?:speed|velocity)`,
				`(?:speed|velocity|vel\.?)`+sp+`(?:max|maximum|top|peak|avg|average|mean|media)|fastest`,
				`(?:avg|average|mean)`+sp+`(?:speed|velocity)`,
				`speed|velocity`,
				`speed`+sp+`\(?(?:kmh|km/h|kph)\)?`,
			),
			Resolve: func(p Subject) (Target, bool) {
				if avgRe.MatchString(p.Lower) && !maxRe.MatchString(p.Lower) {
					return metric(telemetry.FieldAvgSpeed, "speed_avg", "Average speed (km/h)"), true
				}
				return metric(telemetry.FieldTopSpeed, "speed_max", "Top speed (km/h)"), true
			},
		},
		{
			Category:   "heart_rate",
			Confidence: 82,
			Patterns: anchored(
				`frequenza`+sp+`cardiaca(?:`+sp+`(?:media|max|massima))?|battito(?:`+sp+`(?:cardiaco|medio|max))?|fc(?:`+sp+`(?:max|media|med|avg))?|bpm`,
				`heart`+sp+`rate|hr|cardiac`+sp+`frequency`,
				`(?:max|avg|mean)`+sp+`hr|hr`+sp+`(?:max|avg|mean)|(?:maximum|average|max|avg|mean)`+sp+`heart`+sp+`rate`,
				`heart`+sp+`rate`+sp+`\(?bpm\)?|pulse(?:`+sp+`rate)?`,
			),
			Resolve: func(p Subject) (Target, bool) {
				if hrMaxRe.MatchString(p.Lower) {
					return count(telemetry.FieldMaxHeartRate, "hr_max", "Max heart rate (bpm)"), true
				}
				return count(telemetry.FieldAvgHeartRate, "hr_avg", "Average heart rate (bpm)"), true
			},
		},
		{
			Category:   "duration",
			Confidence: 80,
			Patterns: anchored(
				`durata|tempo(?:`+sp+`(?:totale|allenamento|gioco))?|duration|time`,
				`(?:session|training|elapsed|total|active|playing)`+sp+`time|workout`+sp+`duration`,
				`minuti|minutes|min|mins|hours|ore|t`,
			),
			Resolve: fixed(Target{Field: telemetry.FieldDurationMinutes, Transform: telemetry.TransformDurationToMinutes, SemanticType: "duration", Description: "Duration (minutes)"}),
		},
		{
			Category:   "equivalent_distance",
			Confidence: 85,
			Patterns: anchored(
				`(?:(?:%|pct|perc|percentuale)`+sp+`)?(?:distanza`+sp+`equivalente|dist\.?`+sp+`eq\.?|equivalent`+sp+`distance|eq\.?`+sp+`dist\.?|distance`+sp+`equiv\.?|metabolic`+sp+`distance)(?:`+sp+`(?:%|pct|perc|percentuale))?`,
			),
			Resolve: func(p Subject) (Target, bool) {
				if pctRe.MatchString(p.Lower) {
					return metric(telemetry.FieldEquivalentDistancePct, "equivalent_distance_pct", "Equivalent distance (% of total)"), true
				}
				return metric(telemetry.FieldEquivalentDistance, "equivalent_distance", "Equivalent distance (m)"), true
			},
		},
		{
			Category:   "distance_per_min",
			Confidence: 85,
			Patterns: anchored(
				`distanza`+sp+`per`+sp+`minuto|dist\.?`+sp+`/?`+sp+`min|distance`+sp+`per`+sp+`min(?:ute)?`,
				`m`+sp+`/`+sp+`min|meters`+sp+`per`+sp+`minute|metri`+sp+`al`+sp+`minuto`,
			),
			Resolve: fixed(metric(telemetry.FieldDistancePerMin, "distance_per_min", "Distance per minute (m/min)")),
		},
		{
			Category:   "speed_zone",
			Confidence: 85,
			Patterns: anchored(
				`(?:distanza|distance|dist\.?|d)` + sp + `(?:>|over|oltre|above)?` + sp + `(?:15|20|25)(?:` + sp + `[-_]?` + sp + `(?:20|25))?(?:` + sp + `(?:km/?h|kmh|kph))?`,
			),
			Resolve: func(p Subject) (Target, bool) {
				switch {
				case range1520Re.MatchString(p.Lower):
					return metric(telemetry.FieldDistance15To20, "distance_zone_15_20", "Distance 15-20 km/h (m)"), true
				case range2025Re.MatchString(p.Lower):
					return metric(telemetry.FieldDistance20To25, "distance_zone_20_25", "Distance 20-25 km/h (m)"), true
				case over25Re.MatchString(p.Lower):
					return metric(telemetry.FieldDistanceOver25, "distance_zone_over_25", "Distance > 25 km/h (m)"), true
				case over20Re.MatchString(p.Lower):
					return metric(telemetry.FieldDistanceOver20, "distance_zone_over_20", "Distance > 20 km/h (m)"), true
				case over15Re.MatchString(p.Lower):
					return metric(telemetry.FieldDistanceOver15, "distance_zone_over_15", "Distance > 15 km/h (m)"), true
				}
				return Target{}, false
			},
		},
		{
			Category:   "metabolic_power",
			Confidence: 85,
			Patterns: anchored(
				`potenza`+sp+`metabolica(?:`+sp+`media)?|pot\.?`+sp+`met\.?(?:`+sp+`media)?|metabolic`+sp+`power`,
				`(?:avg|average)`+sp+`metabolic`+sp+`power|potenza`+sp+`media|power`+sp+`w/?kg`,
				`w/kg|watts`+sp+`per`+sp+`kg|potenza`+sp+`w/?kg|pmm|amp`,
			),
			Resolve: fixed(metric(telemetry.FieldAvgMetabolicPower, "metabolic_power_avg", "Average metabolic power (W/kg)")),
		},
		{
			Category:   "power_zone",
			Confidence: 85,
			Patterns: anchored(
				`(?:distanza|distance|dist\.?|d)`+sp+`(?:>|over|oltre|above)?`+sp+`(?:20|35)`+sp+`w(?:`+sp+`/?`+sp+`kg)?`,
				`(?:max|peak)`+sp+`(?:power|pot\.?|potenza)`+sp+`5`+sp+`s(?:ec)?|max`+sp+`pm`+sp+`5|maxpm5`,
			),
			Resolve: func(p Subject) (Target, bool) {
				switch {
				case fiveSecRe.MatchString(p.Lower):
					return metric(telemetry.FieldMaxPower5s, "max_power_5s", "Max power 5s (W/kg)"), true
				case strings.Contains(p.Lower, "35") && over35Re.MatchString(p.Lower):
					return metric(telemetry.FieldDistanceOver35WKg, "power_zone_over_35", "Distance > 35 W/kg (m)"), true
				case strings.Contains(p.Lower, "20"):
					return metric(telemetry.FieldDistanceOver20WKg, "power_zone_over_20", "Distance > 20 W/kg (m)"), true
				}
				return Target{}, false
			},
		},
		{
			Category:   "acceleration",
			Confidence: 85,
			Patterns: anchored(
				eventWords+accWord+sp+`(?:>|over|oltre)?`+sp+`[23](?:[,.]0)?`+msUnit+perMinute,
				`(?:eventi`+sp+`acc|acc`+sp+`events|acceleration`+sp+`events)`+perMinute+`(?:`+sp+`(?:>|over)?`+sp+`2`+msUnit+`)?`,
			),
			Resolve: func(p Subject) (Target, bool) {
				return resolveAccDec(p, accTargets)
			},
		},
		{
			Category:   "deceleration",
			Confidence: 85,
			Patterns: anchored(
				eventWords+decWord+sp+`(?:>|<|over|under|oltre)?`+sp+`-?[23](?:[,.]0)?`+msUnit+perMinute,
				`(?:eventi`+sp+`dec|dec`+sp+`events|deceleration`+sp+`events)`+perMinute+`(?:`+sp+`(?:>|<|over|under)?`+sp+`-?2`+msUnit+`)?`,
			),
			Resolve: func(p Subject) (Target, bool) {
				return resolveAccDec(p, decTargets)
			},
		},
		{
			Category:   "intensity_zone",
			Confidence: 85,
			Patterns: anchored(
				`(?:tempo|time|duration)`+sp+`(?:<|under|sotto)`+sp+`5`+sp+`w?(?:`+sp+`/?`+sp+`kg)?(?:`+sp+`\(?min\)?)?`,
				`(?:tempo|time|duration)`+sp+`5`+sp+`[-_]?`+sp+`10`+sp+`w?(?:`+sp+`/?`+sp+`kg)?(?:`+sp+`\(?min\)?)?`,
			),
			Resolve: func(p Subject) (Target, bool) {
				switch {
				case under5Re.MatchString(p.Lower):
					return count(telemetry.FieldTimeUnder5WKg, "time_under_5wkg", "Time < 5 W/kg (min)"), true
				case range510Re.MatchString(p.Lower):
					return count(telemetry.FieldTime5To10WKg, "time_5_10_wkg", "Time 5-10 W/kg (min)"), true
				}
				return Target{}, false
			},
		},
		{
			Category:   "rvp",
			Confidence: 85,
			Patterns: anchored(
				`indice`+sp+`rvp|rvp`+sp+`index|running`+sp+`velocity`+sp+`profile`,
				`rvp|profile`+sp+`index|velocity`+sp+`profile`,
			),
			Resolve: fixed(metric(telemetry.FieldRVPIndex, "rvp_index", "RVP index")),
		},
		{
			Category:   "training_load",
			Confidence: 85,
			Patterns: anchored(
				`training`+sp+`load|carico`+sp+`allenamento|load`+sp+`training`,
				`workload|carico`+sp+`(?:lavoro|interno|esterno)?|session`+sp+`load|player`+sp+`load|tl|srpe|rpe`+sp+`load`,
			),
			Resolve: fixed(metric(telemetry.FieldTrainingLoad, "training_load", "Training load")),
		},
		{
			Category:   "session_day",
			Confidence: 85,
			Patterns: anchored(
				`giorno`+sp+`sessione|day`+sp+`session|session`+sp+`day`,
				`weekday|giorno`+sp+`(?:della`+sp1+`)?settimana|day`+sp+`of`+sp+`week|md|match`+sp+`day`,
			),
			Resolve: fixed(Target{Field: telemetry.FieldSessionDay, Transform: telemetry.TransformString, SemanticType: "session_day", Description: "Day of week or match-day label"}),
		},
		{
			Category:   "match_flag",
			Confidence: 85,
			Patterns: anchored(
				`[eè]`+sp+`partita|is`+sp+`match|match`+sp+`flag`,
				`partita|match|game|competition|gara`,
			),
			Resolve: fixed(Target{Field: telemetry.FieldIsMatch, Transform: telemetry.TransformBoolean, SemanticType: "is_match", Description: "Match flag (true/false)"}),
		},
		{
			Category:   "drill",
			Confidence: 85,
			Patterns: anchored(
				`nome`+sp+`esercizio|drill`+sp+`name|exercise`+sp+`name`,
				`esercizio|drill|exercise|activity`+sp+`type|period|periodo|fase`,
				`possesso`+sp+`palla|tiri`+sp+`in`+sp+`porta|passing`+sp+`drills?`,
			),
			Resolve: fixed(Target{Field: telemetry.FieldDrillName, Transform: telemetry.TransformString, SemanticType: "drill_name", Description: "Drill name"}),
		},
		{
			Category:   "notes",
			Confidence: 80,
			Patterns:   anchored(`note|notes|commento|commenti|comment|comments|osservazioni|remarks`),
			Resolve:    fixed(Target{Field: telemetry.FieldNotes, Transform: telemetry.TransformString, SemanticType: "notes", Description: "Free-text notes"}),
		},
	}
}

type accDecTargets struct {
	distance3    Target
	count3       Target
	distance2    Target
	pct2         Target
	eventsPerMin Target
}

var accTargets = accDecTargets{
	distance3:    metric(telemetry.FieldDistanceAccOver3, "acc_distance_over_3", "Acceleration distance > 3 m/s² (m)"),
	count3:       count(telemetry.FieldNumAccOver3, "acc_count_over_3", "Accelerations > 3 m/s²"),
	distance2:    metric(telemetry.FieldDistanceAccOver2, "acc_distance_over_2", "Acceleration distance > 2 m/s² (m)"),
	pct2:         metric(telemetry.FieldPctDistanceAcc2, "acc_pct_over_2", "% distance accelerating > 2 m/s²"),
	eventsPerMin: metric(telemetry.FieldAccEventsPerMin2, "acc_events_per_min_over_2", "Acceleration events/min > 2 m/s²"),
}

var decTargets = accDecTargets{
	distance3:    metric(telemetry.FieldDistanceDecOver3, "dec_distance_under_minus3", "Deceleration distance < -3 m/s² (m)"),
	count3:       count(telemetry.FieldNumDecOver3, "dec_count_under_minus3", "Decelerations < -3 m/s²"),
	distance2:    metric(telemetry.FieldDistanceDecOver2, "dec_distance_over_minus2", "Deceleration distance > -2 m/s² (m)"),
	pct2:         metric(telemetry.FieldPctDistanceDec2, "dec_pct_over_minus2", "% distance decelerating > -2 m/s²"),
	eventsPerMin: metric(telemetry.FieldDecEventsPerMin2, "dec_events_per_min_over_minus2", "Deceleration events/min > -2 m/s²"),
}

func resolveAccDec(p Subject, t accDecTargets) (Target, bool) {
	if threeRe.MatchString(p.Lower) {
		if countRe.MatchString(p.Lower) {
			return t.count3, true
		}
		return t.distance3, true
	}
	switch {
	case pctRe.MatchString(p.Lower):
		return t.pct2, true
	case perMinRe.MatchString(p.Lower):
		return t.eventsPerMin, true
	case twoRe.MatchString(p.Lower):
		return t.distance2, true
	}
	return Target{}, false
}
