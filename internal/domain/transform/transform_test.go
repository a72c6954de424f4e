package transform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/perf-import/internal/domain/player"
	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloatLocale(t *testing.T) {
	tests := map[string]float64{
		"10000,5":   10000.5,
		"12.5":      12.5,
		"1.234,5":   1234.5,
		"1,234.5":   1234.5,
		" 42 ":      42,
		"1 234,75":  1234.75,
		"-3,5":      -3.5,
		"0":         0,
		"7,0000001": 7.0000001,
	}
	for in, want := range tests {
		got, err := ParseFloat(in)
		require.NoError(t, err, "input %q", in)
		if got != want {
			t.Fatalf("ParseFloat(%q): got=%v want=%v", in, got, want)
		}
	}

	for _, in := range []string{"", "abc", "1,2,3", "12km", "NaN", "inf"} {
		_, err := ParseFloat(in)
		require.Error(t, err, "input %q", in)
		te, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, telemetry.TransformParseFloat, te.Transform)
		assert.Equal(t, in, te.Value)
	}
}

func TestParseIntTruncates(t *testing.T) {
	got, err := ParseInt("145,7")
	require.NoError(t, err)
	assert.Equal(t, int64(145), got)

	got, err = ParseInt("-3")
	require.NoError(t, err)
	assert.Equal(t, int64(-3), got)

	_, err = ParseInt("x12")
	require.Error(t, err)
}

func TestKmToMeters(t *testing.T) {
	got, err := KmToMeters("10,5")
	require.NoError(t, err)
	assert.Equal(t, 10500.0, got)

	_, err = KmToMeters("far")
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, telemetry.TransformKmToMeters, te.Transform)
}

func TestPlausibleRanges(t *testing.T) {
	assert.True(t, FloatPlausible(0))
	assert.True(t, FloatPlausible(100000))
	assert.False(t, FloatPlausible(100000.5))
	assert.False(t, FloatPlausible(-1))
	assert.True(t, IntPlausible(1000000))
	assert.False(t, IntPlausible(1000001))
}

func TestSmartDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2024-03-15", want: day(2024, time.March, 15)},
		{in: "15/03/2024", want: day(2024, time.March, 15)},
		{in: "15-03-2024", want: day(2024, time.March, 15)},
		{in: "05/04/2024", want: day(2024, time.April, 5)},
		{in: "03/15/2024", want: day(2024, time.March, 15)},
		{in: "1700000000", want: time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)},
		{in: "1700000000000", want: time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)},
		{in: "2024-03-15T10:30:00Z", want: time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)},
		{in: "2024-03-15 10:30:00", want: time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)},
		{in: "2024/03/15", want: day(2024, time.March, 15)},
		{in: "March 15, 2024", want: day(2024, time.March, 15)},
		{in: "15 Mar 2024", want: day(2024, time.March, 15)},
	}
	for _, tc := range tests {
		got, err := SmartDate(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		if !got.Equal(tc.want) {
			t.Fatalf("SmartDate(%q): got=%v want=%v", tc.in, got, tc.want)
		}
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestSmartDateRejects(t *testing.T) {
	for _, in := range []string{"", "not a date", "32/13/2024", "123", "2024-3-5x"} {
		_, err := SmartDate(in)
		require.Error(t, err, "input %q", in)
		te, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, telemetry.TransformSmartDate, te.Transform)
	}
}

func TestDurationToMinutes(t *testing.T) {
	tests := map[string]float64{
		"90":       90,
		"45,5":     45.5,
		"01:15:30": 75.5,
		"1:30:20":  90.33,
		"1:30":     90,
		"1h 30m":   90,
		"1h":       60,
		"2 hours":  120,
		"90m":      90,
		"90 min":   90,
		"75 MIN":   75,
	}
	for in, want := range tests {
		got, err := DurationToMinutes(in)
		require.NoError(t, err, "input %q", in)
		if got != want {
			t.Fatalf("DurationToMinutes(%q): got=%v want=%v", in, got, want)
		}
	}

	_, err := DurationToMinutes("ninety")
	require.Error(t, err)
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, telemetry.TransformDurationToMinutes, te.Transform)
}

func TestNormalizeSessionType(t *testing.T) {
	tests := map[string]string{
		"Allenamento":      telemetry.SessionTypeTraining,
		" practice ":       telemetry.SessionTypeTraining,
		"PARTITA":          telemetry.SessionTypeMatch,
		"game":             telemetry.SessionTypeMatch,
		"recovery session": "Recovery Session",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSessionType(in), "input %q", in)
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"yes", "TRUE", "1", "Sì", "si", "Partita", "match"} {
		v, err := ParseBool(in)
		require.NoError(t, err, "input %q", in)
		assert.True(t, v, "input %q", in)
	}
	for _, in := range []string{"no", "0", "false", "Allenamento"} {
		v, err := ParseBool(in)
		require.NoError(t, err, "input %q", in)
		assert.False(t, v, "input %q", in)
	}
	_, err := ParseBool("maybe")
	require.Error(t, err)
}

type stubResolver struct {
	tokens  []string
	outcome player.Outcome
	err     error
}

func (s *stubResolver) ResolveToken(_ context.Context, token string) (player.Outcome, error) {
	s.tokens = append(s.tokens, token)
	return s.outcome, s.err
}

func TestPipelineDispatch(t *testing.T) {
	resolver := &stubResolver{outcome: player.Outcome{
		Kind: player.OutcomeResolved,
		Best: player.Candidate{PlayerID: "p-1", Confidence: 100},
	}}
	var flagged []telemetry.Field
	p := NewPipeline(resolver, ObserverFunc(func(field telemetry.Field, _ string, _ float64) {
		flagged = append(flagged, field)
	}))
	ctx := context.Background()

	v, err := p.Apply(ctx, "10000,5", telemetry.FieldMapping{CanonicalField: telemetry.FieldTotalDistance, Transform: telemetry.TransformParseFloat})
	require.NoError(t, err)
	assert.Equal(t, KindNumber, v.Kind)
	assert.Equal(t, 10000.5, v.Number)

	v, err = p.Apply(ctx, "Mario Rossi", telemetry.FieldMapping{CanonicalField: telemetry.FieldPlayerID, Transform: telemetry.TransformPassthrough})
	require.NoError(t, err)
	assert.Equal(t, KindPlayer, v.Kind)
	assert.Equal(t, "p-1", v.Player.Best.PlayerID)
	assert.Equal(t, []string{"Mario Rossi"}, resolver.tokens)

	v, err = p.Apply(ctx, "15/03/2024", telemetry.FieldMapping{CanonicalField: telemetry.FieldSessionDate, Transform: telemetry.TransformPassthrough})
	require.NoError(t, err)
	assert.Equal(t, KindDate, v.Kind)
	assert.Equal(t, time.March, v.Date.Month())

	v, err = p.Apply(ctx, "partita", telemetry.FieldMapping{CanonicalField: telemetry.FieldSessionType, Transform: telemetry.TransformPassthrough})
	require.NoError(t, err)
	assert.Equal(t, telemetry.SessionTypeMatch, v.Text)

	v, err = p.Apply(ctx, "  ", telemetry.FieldMapping{CanonicalField: telemetry.FieldTopSpeed, Transform: telemetry.TransformParseFloat})
	require.NoError(t, err)
	assert.Equal(t, KindEmpty, v.Kind)

	v, err = p.Apply(ctx, "Rondo 4v4", telemetry.FieldMapping{CanonicalField: telemetry.FieldDrillName, Transform: telemetry.TransformString})
	require.NoError(t, err)
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, "Rondo 4v4", v.Text)

	assert.Empty(t, flagged)
}

func TestPipelineReportsImplausibleValues(t *testing.T) {
	var flagged []telemetry.Field
	p := NewPipeline(nil, ObserverFunc(func(field telemetry.Field, _ string, _ float64) {
		flagged = append(flagged, field)
	}))
	ctx := context.Background()

	v, err := p.Apply(ctx, "250000", telemetry.FieldMapping{CanonicalField: telemetry.FieldTotalDistance, Transform: telemetry.TransformParseFloat})
	require.NoError(t, err)
	assert.Equal(t, 250000.0, v.Number)

	_, err = p.Apply(ctx, "-4", telemetry.FieldMapping{CanonicalField: telemetry.FieldNumAccOver3, Transform: telemetry.TransformParseInt})
	require.NoError(t, err)

	assert.Equal(t, []telemetry.Field{telemetry.FieldTotalDistance, telemetry.FieldNumAccOver3}, flagged)
}

func TestPipelinePlayerLookupErrors(t *testing.T) {
	ctx := context.Background()
	mapping := telemetry.FieldMapping{CanonicalField: telemetry.FieldPlayerID, Transform: telemetry.TransformPlayerLookup}

	_, err := NewPipeline(nil, nil).Apply(ctx, "Mario Rossi", mapping)
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, telemetry.TransformPlayerLookup, te.Transform)

	boom := errors.New("roster offline")
	_, err = NewPipeline(&stubResolver{err: boom}, nil).Apply(ctx, "Mario Rossi", mapping)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
