package telemetry

import "strings"

// Field is a canonical schema field a source column is classified into.
type Field string

const customPrefix = "custom."

const (
	FieldPlayerID    Field = "player_id"
	FieldSessionDate Field = "session_date"
	FieldSessionType Field = "session_type"
	FieldSessionName Field = "session_name"
	FieldSessionDay  Field = "session_day"
	FieldDrillName   Field = "drill_name"
	FieldPosition    Field = "position"
	FieldIsMatch     Field = "is_match"
	FieldNotes       Field = "notes"

	FieldDurationMinutes Field = "duration_minutes"
	FieldTotalDistance   Field = "total_distance_m"
	FieldTopSpeed        Field = "top_speed_kmh"
	FieldAvgSpeed        Field = "avg_speed_kmh"
	FieldMaxHeartRate    Field = "max_heart_rate"
	FieldAvgHeartRate    Field = "avg_heart_rate"

	FieldEquivalentDistance    Field = "equivalent_distance_m"
	FieldEquivalentDistancePct Field = "equivalent_distance_pct"
	FieldDistancePerMin        Field = "distance_per_min"

	FieldDistanceOver15 Field = "distance_over_15_kmh_m"
	FieldDistance15To20 Field = "distance_15_20_kmh_m"
	FieldDistance20To25 Field = "distance_20_25_kmh_m"
	FieldDistanceOver25 Field = "distance_over_25_kmh_m"
	FieldDistanceOver20 Field = "distance_over_20_kmh_m"

	FieldAvgMetabolicPower Field = "avg_metabolic_power_wkg"
	FieldDistanceOver20WKg Field = "distance_over_20wkg_m"
	FieldDistanceOver35WKg Field = "distance_over_35wkg_m"
	FieldMaxPower5s        Field = "max_power_5s_wkg"

	FieldDistanceAccOver2  Field = "distance_acc_over_2_ms2_m"
	FieldDistanceAccOver3  Field = "distance_acc_over_3_ms2_m"
	FieldNumAccOver3       Field = "num_acc_over_3_ms2"
	FieldPctDistanceAcc2   Field = "pct_distance_acc_over_2_ms2"
	FieldAccEventsPerMin2  Field = "acc_events_per_min_over_2_ms2"
	FieldDistanceDecOver2  Field = "distance_dec_over_minus2_ms2_m"
	FieldDistanceDecOver3  Field = "distance_dec_over_minus3_ms2_m"
	FieldNumDecOver3       Field = "num_dec_over_minus3_ms2"
	FieldPctDistanceDec2   Field = "pct_distance_dec_over_minus2_ms2"
	FieldDecEventsPerMin2  Field = "dec_events_per_min_over_minus2_ms2"
	FieldTimeUnder5WKg     Field = "time_under_5wkg_min"
	FieldTime5To10WKg      Field = "time_5_10_wkg_min"
	FieldRVPIndex          Field = "rvp_index"
	FieldTrainingLoad      Field = "training_load"
)

// RequiredFields must each be covered by at least one mapped header.
var RequiredFields = []Field{FieldPlayerID, FieldSessionDate}

var descriptiveFields = map[Field]struct{}{
	FieldPlayerID:    {},
	FieldSessionDate: {},
	FieldSessionType: {},
	FieldSessionName: {},
	FieldSessionDay:  {},
	FieldDrillName:   {},
	FieldPosition:    {},
	FieldIsMatch:     {},
	FieldNotes:       {},
}

// CustomField builds a passthrough bucket field for an unrecognized column.
func CustomField(key string) Field {
	return Field(customPrefix + key)
}

func (f Field) IsCustom() bool {
	return strings.HasPrefix(string(f), customPrefix)
}

func (f Field) CustomKey() string {
	return strings.TrimPrefix(string(f), customPrefix)
}

// IsMetric reports whether the field holds a numeric telemetry value.
func (f Field) IsMetric() bool {
	if f == "" || f.IsCustom() {
		return false
	}
	_, descriptive := descriptiveFields[f]
	return !descriptive
}

func (f Field) String() string {
	return string(f)
}
