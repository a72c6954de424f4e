package transform

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/player"
	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

type Kind uint8

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindDate
	KindBool
	KindPlayer
)

// Value is the typed result of one cell. Only the member named by Kind is set.
type Value struct {
	Kind   Kind
	Number float64
	Text   string
	Date   time.Time
	Bool   bool
	Player player.Outcome
}

// PlayerResolver resolves a player token within a team already bound to it.
type PlayerResolver interface {
	ResolveToken(ctx context.Context, token string) (player.Outcome, error)
}

// Pipeline dispatches a cell to the coercion its mapping names.
type Pipeline struct {
	resolver PlayerResolver
	observer Observer
}

func NewPipeline(resolver PlayerResolver, observer Observer) *Pipeline {
	return &Pipeline{resolver: resolver, observer: observer}
}

// Apply coerces raw according to mapping. Blank cells yield KindEmpty.
func (p *Pipeline) Apply(ctx context.Context, raw string, mapping telemetry.FieldMapping) (Value, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{}, nil
	}

	switch p.effectiveTransform(mapping) {
	case telemetry.TransformPlayerLookup:
		return p.resolvePlayer(ctx, s)
	case telemetry.TransformSmartDate:
		t, err := SmartDate(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindDate, Date: t}, nil
	case telemetry.TransformNormalizeSessionType:
		return Value{Kind: KindText, Text: NormalizeSessionType(s)}, nil
	case telemetry.TransformDurationToMinutes:
		v, err := DurationToMinutes(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindNumber, Number: v}, nil
	case telemetry.TransformKmToMeters:
		v, err := KmToMeters(s)
		if err != nil {
			return Value{}, err
		}
		if !FloatPlausible(v) {
			p.observe(mapping.CanonicalField, s, v)
		}
		return Value{Kind: KindNumber, Number: v}, nil
	case telemetry.TransformParseFloat:
		v, err := ParseFloat(s)
		if err != nil {
			return Value{}, err
		}
		if !FloatPlausible(v) {
			p.observe(mapping.CanonicalField, s, v)
		}
		return Value{Kind: KindNumber, Number: v}, nil
	case telemetry.TransformParseInt:
		v, err := ParseInt(s)
		if err != nil {
			return Value{}, err
		}
		if !IntPlausible(v) {
			p.observe(mapping.CanonicalField, s, float64(v))
		}
		return Value{Kind: KindNumber, Number: float64(v)}, nil
	case telemetry.TransformBoolean:
		b, err := ParseBool(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBool, Bool: b}, nil
	default:
		return Value{Kind: KindText, Text: s}, nil
	}
}

// effectiveTransform resolves passthrough and unset transforms from the
// canonical field they feed.
func (p *Pipeline) effectiveTransform(mapping telemetry.FieldMapping) telemetry.Transform {
	if mapping.Transform != "" && mapping.Transform != telemetry.TransformPassthrough {
		return mapping.Transform
	}
	switch field := mapping.CanonicalField; {
	case field == telemetry.FieldPlayerID:
		return telemetry.TransformPlayerLookup
	case field == telemetry.FieldSessionDate:
		return telemetry.TransformSmartDate
	case field == telemetry.FieldSessionType:
		return telemetry.TransformNormalizeSessionType
	case field == telemetry.FieldIsMatch:
		return telemetry.TransformBoolean
	case field == telemetry.FieldDurationMinutes:
		return telemetry.TransformDurationToMinutes
	case field.IsMetric():
		return telemetry.TransformParseFloat
	default:
		return telemetry.TransformString
	}
}

func (p *Pipeline) resolvePlayer(ctx context.Context, token string) (Value, error) {
	if p.resolver == nil {
		return Value{}, newError(telemetry.TransformPlayerLookup, token, "no player resolver configured")
	}
	outcome, err := p.resolver.ResolveToken(ctx, token)
	if err != nil {
		return Value{}, crerr.Wrapf(err, "resolve player %q", token)
	}
	return Value{Kind: KindPlayer, Player: outcome}, nil
}

func (p *Pipeline) observe(field telemetry.Field, raw string, v float64) {
	if p.observer != nil {
		p.observer.Implausible(field, raw, v)
	}
}
