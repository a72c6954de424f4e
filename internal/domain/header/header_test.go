package header

import (
	"math/rand"
	"testing"

	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Velocity Max (km/h)": "velocity_max_km_h",
		"  Distanza (m) ":     "distanza_m",
		"D > 20 W/Kg":         "d_20_w_kg",
		"__Velocità__Max__":   "velocità_max",
		"Num Dec <-3 m/s2":    "num_dec_3_m_s2",
		"":                    "",
		"***":                 "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q): got=%q want=%q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Velocity Max (km/h)", "Distanza (m)", "D 15-20 km/h", "Pot. met. media",
		"\ufeffGiocatore", "Tempo < 5 W/kg", "ÀÉÎ õü", "a__b", "_x_", "Num Acc > 3 m/s2",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestCleanHeaderStripsBOM(t *testing.T) {
	assert.Equal(t, "Giocatore", CleanHeader("\ufeffGiocatore "))
	assert.Equal(t, "Data", CleanHeader("  Data"))
}

func TestFingerprintOrderIndependent(t *testing.T) {
	headers := []string{"Giocatore", "Data", "Distanza (m)", "Velocità Max", "D > 20 W/Kg", "Dist/min"}
	want := Fingerprint(headers)
	require.Len(t, want, 40)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		shuffled := append([]string(nil), headers...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := Fingerprint(shuffled); got != want {
			t.Fatalf("fingerprint changed for %v: got=%s want=%s", shuffled, got, want)
		}
	}

	assert.Equal(t, want, Fingerprint([]string{"giocatore", "DATA", "distanza m", "velocità_max", "d_20_w_kg", "dist min"}))
	assert.NotEqual(t, want, Fingerprint(headers[:5]))
}

func TestNormalizedSorted(t *testing.T) {
	got := NormalizedSorted([]string{"Data", "Giocatore", "Distanza (m)"})
	assert.Equal(t, []string{"data", "distanza_m", "giocatore"}, got)
}

func TestJaccard(t *testing.T) {
	a := []string{"Giocatore", "Data", "Distanza (m)", "Durata"}
	b := []string{"giocatore", "data", "distanza_m", "Top Speed"}

	assert.InDelta(t, 3.0/5.0, Jaccard(a, b), 1e-9)
	assert.InDelta(t, Jaccard(a, b), Jaccard(b, a), 1e-9)
	assert.Equal(t, 1.0, Jaccard(a, a))
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard([]string{"x"}, []string{"y"}))
}

func TestClassifyKnownHeaders(t *testing.T) {
	tests := []struct {
		header    string
		field     telemetry.Field
		transform telemetry.Transform
	}{
		{"Giocatore", telemetry.FieldPlayerID, telemetry.TransformPlayerLookup},
		{"Player Name", telemetry.FieldPlayerID, telemetry.TransformPlayerLookup},
		{"Numero Maglia", telemetry.FieldPlayerID, telemetry.TransformPlayerLookup},
		{"Data", telemetry.FieldSessionDate, telemetry.TransformSmartDate},
		{"Session Date", telemetry.FieldSessionDate, telemetry.TransformSmartDate},
		{"Tipo Sessione", telemetry.FieldSessionType, telemetry.TransformNormalizeSessionType},
		{"Ruolo", telemetry.FieldPosition, telemetry.TransformString},
		{"Distanza (m)", telemetry.FieldTotalDistance, telemetry.TransformParseFloat},
		{"Distance (km)", telemetry.FieldTotalDistance, telemetry.TransformKmToMeters},
		{"Velocità Max", telemetry.FieldTopSpeed, telemetry.TransformParseFloat},
		{"Velocity Max (km/h)", telemetry.FieldTopSpeed, telemetry.TransformParseFloat},
		{"Avg Speed", telemetry.FieldAvgSpeed, telemetry.TransformParseFloat},
		{"Velocità Media", telemetry.FieldAvgSpeed, telemetry.TransformParseFloat},
		{"HR Max", telemetry.FieldMaxHeartRate, telemetry.TransformParseInt},
		{"Heart Rate", telemetry.FieldAvgHeartRate, telemetry.TransformParseInt},
		{"Durata", telemetry.FieldDurationMinutes, telemetry.TransformDurationToMinutes},
		{"Distanza Equivalente", telemetry.FieldEquivalentDistance, telemetry.TransformParseFloat},
		{"Dist. Eq. %", telemetry.FieldEquivalentDistancePct, telemetry.TransformParseFloat},
		{"Dist/min", telemetry.FieldDistancePerMin, telemetry.TransformParseFloat},
		{"D > 15 Km/h", telemetry.FieldDistanceOver15, telemetry.TransformParseFloat},
		{"D 15-20 km/h", telemetry.FieldDistance15To20, telemetry.TransformParseFloat},
		{"D 20-25 km/h", telemetry.FieldDistance20To25, telemetry.TransformParseFloat},
		{"D > 25 km/h", telemetry.FieldDistanceOver25, telemetry.TransformParseFloat},
		{"Distance over 20", telemetry.FieldDistanceOver20, telemetry.TransformParseFloat},
		{"Pot. met. media", telemetry.FieldAvgMetabolicPower, telemetry.TransformParseFloat},
		{"D > 20 W/Kg", telemetry.FieldDistanceOver20WKg, telemetry.TransformParseFloat},
		{"D>35 W", telemetry.FieldDistanceOver35WKg, telemetry.TransformParseFloat},
		{"Max Power 5s", telemetry.FieldMaxPower5s, telemetry.TransformParseFloat},
		{"Distanza Acc > 2", telemetry.FieldDistanceAccOver2, telemetry.TransformParseFloat},
		{"Distanza Acc > 3", telemetry.FieldDistanceAccOver3, telemetry.TransformParseFloat},
		{"Num Acc > 3 m/s2", telemetry.FieldNumAccOver3, telemetry.TransformParseInt},
		{"Acc Events/min", telemetry.FieldAccEventsPerMin2, telemetry.TransformParseFloat},
		{"Num Dec <-3 m/s2", telemetry.FieldNumDecOver3, telemetry.TransformParseInt},
		{"Distanza Dec > -2", telemetry.FieldDistanceDecOver2, telemetry.TransformParseFloat},
		{"Tempo < 5 W/kg", telemetry.FieldTimeUnder5WKg, telemetry.TransformParseInt},
		{"Tempo 5-10 W/kg", telemetry.FieldTime5To10WKg, telemetry.TransformParseInt},
		{"RVP", telemetry.FieldRVPIndex, telemetry.TransformParseFloat},
		{"Training Load", telemetry.FieldTrainingLoad, telemetry.TransformParseFloat},
		{"Giorno Sessione", telemetry.FieldSessionDay, telemetry.TransformString},
		{"Is Match", telemetry.FieldIsMatch, telemetry.TransformBoolean},
		{"Drill Name", telemetry.FieldDrillName, telemetry.TransformString},
		{"Note", telemetry.FieldNotes, telemetry.TransformString},
	}

	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			got, ok := Classify(tc.header)
			require.True(t, ok, "header %q not classified", tc.header)
			assert.Equal(t, tc.field, got.CanonicalField)
			assert.Equal(t, tc.transform, got.Transform)
			assert.Equal(t, tc.header, got.SourceHeader)
			assert.GreaterOrEqual(t, got.Confidence, 80)
			assert.LessOrEqual(t, got.Confidence, 95)
		})
	}
}

func TestClassifyMaxSpeedVariantsAgree(t *testing.T) {
	it, ok := Classify("Velocità Max")
	require.True(t, ok)
	en, ok := Classify("Velocity Max (km/h)")
	require.True(t, ok)

	assert.Equal(t, it.CanonicalField, en.CanonicalField)
	assert.Equal(t, telemetry.FieldTopSpeed, en.CanonicalField)
	assert.GreaterOrEqual(t, it.Confidence, 85)
	assert.GreaterOrEqual(t, en.Confidence, 85)
}

func TestClassifyFixedConfidences(t *testing.T) {
	date, _ := Classify("Data")
	player, _ := Classify("Giocatore")
	speed, _ := Classify("Top Speed")

	assert.Equal(t, 95, date.Confidence)
	assert.Equal(t, 90, player.Confidence)
	assert.Equal(t, 88, speed.Confidence)
	assert.True(t, date.Required)
	assert.True(t, player.Required)
	assert.False(t, speed.Required)
}

func TestClassifyUnknown(t *testing.T) {
	for _, h := range []string{"Sponsor", "Colore maglia", "", "   "} {
		_, ok := Classify(h)
		assert.False(t, ok, "header %q", h)
	}
}

func TestClassifyAllWarningsAndCustom(t *testing.T) {
	c := NewClassifier(nil)
	headers := []string{"\ufeffGiocatore", "Distanza (m)", "Sponsor"}

	res := c.ClassifyAll(headers, Options{})
	require.Len(t, res.Mappings, 2)
	assert.Equal(t, "Giocatore", res.Mappings[0].SourceHeader)
	assert.Equal(t, []string{"Sponsor"}, res.Unrecognized)
	assert.Equal(t, []telemetry.Field{telemetry.FieldSessionDate}, res.MissingRequired)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, 88, res.AverageConfidence)

	res = c.ClassifyAll(headers, Options{CaptureCustom: true})
	require.Len(t, res.Mappings, 3)
	custom := res.Mappings[2]
	assert.Equal(t, telemetry.CustomField("sponsor"), custom.CanonicalField)
	assert.True(t, custom.CanonicalField.IsCustom())
	assert.Equal(t, CustomConfidence, custom.Confidence)
	assert.Equal(t, telemetry.TransformString, custom.Transform)
	assert.Equal(t, 88, res.AverageConfidence)
}

func TestClassifyAllBothRequiredPresent(t *testing.T) {
	res := NewClassifier(nil).ClassifyAll([]string{"Player", "Date"}, Options{})
	assert.Empty(t, res.MissingRequired)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 93, res.AverageConfidence)
}
