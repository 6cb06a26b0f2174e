package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// FieldKind is the value type of a filterable detail field
type FieldKind string

const (
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "bool"
	KindString FieldKind = "string"
)

// DetailOp is a comparison used by the polymorphic filter
type DetailOp string

const (
	OpEq  DetailOp = "eq"
	OpGt  DetailOp = "gt"
	OpGte DetailOp = "gte"
	OpLt  DetailOp = "lt"
	OpLte DetailOp = "lte"
)

// SQL returns the SQL comparison operator
func (o DetailOp) SQL() string {
	switch o {
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// DetailPredicate constrains one type-specific field
type DetailPredicate struct {
	Field string
	Op    DetailOp
	Kind  FieldKind
	// Value is float64, bool or string according to Kind
	Value interface{}
}

// Matches evaluates the predicate against a decoded detail value
func (p DetailPredicate) Matches(v interface{}) bool {
	switch p.Kind {
	case KindNumber:
		got, ok := v.(float64)
		want, _ := p.Value.(float64)
		if !ok {
			return false
		}
		switch p.Op {
		case OpGt:
			return got > want
		case OpGte:
			return got >= want
		case OpLt:
			return got < want
		case OpLte:
			return got <= want
		default:
			return got == want
		}
	case KindBool:
		got, ok := v.(bool)
		return ok && got == p.Value
	default:
		got, ok := v.(string)
		return ok && got == p.Value
	}
}

// detailSchema lists the filterable fields of one discriminator value
type detailSchema map[string]FieldKind

func (s detailSchema) predicate(discriminator, field string, op DetailOp, raw string) (DetailPredicate, error) {
	kind, ok := s[field]
	if !ok {
		return DetailPredicate{}, NewInvalidQueryError("field %q is not filterable for %s", field, discriminator)
	}
	switch op {
	case OpEq, OpGt, OpGte, OpLt, OpLte:
	default:
		return DetailPredicate{}, NewInvalidQueryError("unknown operator %q", op)
	}
	if kind != KindNumber && op != OpEq {
		return DetailPredicate{}, NewInvalidQueryError("operator %s not supported on %s field %q", op, kind, field)
	}

	p := DetailPredicate{Field: field, Op: op, Kind: kind}
	switch kind {
	case KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return DetailPredicate{}, NewInvalidQueryError("field %q expects a number", field)
		}
		p.Value = f
	case KindBool:
		switch raw {
		case "true":
			p.Value = true
		case "false":
			p.Value = false
		default:
			return DetailPredicate{}, NewInvalidQueryError("field %q expects true or false", field)
		}
	default:
		p.Value = raw
	}
	return p, nil
}

func (s detailSchema) fields() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// decodeDetailMap turns a variant struct into its JSON object form
func decodeDetailMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	_ = json.Unmarshal(data, &m)
	return m
}
