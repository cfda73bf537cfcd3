package health

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// ErrUnusableInput is returned only when a whole payload has the wrong shape,
// such as an object or scalar where a list is required.
var ErrUnusableInput = errors.New("unusable input")

func decodeRecord(in any, out any) error {
	m, ok := in.(map[string]any)
	if !ok {
		return fmt.Errorf("record is %T, not an object", in)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

// asList accepts a bare list or an object carrying the list under one of keys.
// A nil payload is an empty list.
func asList(in any, keys ...string) ([]any, error) {
	switch v := in.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, nil
	case map[string]any:
		for _, k := range keys {
			if inner, ok := v[k]; ok {
				return asList(inner)
			}
		}
		return nil, fmt.Errorf("%w: object without a %s list", ErrUnusableInput, strings.Join(keys, "/"))
	default:
		return nil, fmt.Errorf("%w: expected a list, got %T", ErrUnusableInput, in)
	}
}

// parseTimestamp understands RFC3339-like strings and epoch seconds or
// milliseconds.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t.UTC(), !t.IsZero()
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, false
		}
		if ts, err := cast.ToTimeE(t); err == nil {
			return ts.UTC(), true
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Unix(int64(f), 0).UTC(), true
}

type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{items: []string{}, seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
