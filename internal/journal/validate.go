package journal

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"trading-journal/internal/models"
)

// Validate checks a trade before it is stored. Every problem found is
// reported, each wrapping ErrInvalidTrade.
func Validate(t models.Trade) error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidTrade}, args...)...))
	}

	switch {
	case t.Pair == "":
		invalid("pair is required")
	case !slices.Contains(models.Pairs, t.Pair):
		invalid("unsupported pair %q", t.Pair)
	}

	for _, tag := range []struct {
		field   string
		value   string
		allowed []string
	}{
		{"direction", t.Direction, models.Directions},
		{"trade_type", t.TradeType, models.TradeTypes},
		{"entry_type", t.EntryType, models.EntryTypes},
		{"timeframe", t.Timeframe, models.Timeframes},
	} {
		if tag.value != "" && !slices.Contains(tag.allowed, tag.value) {
			invalid("unsupported %s %q", tag.field, tag.value)
		}
	}

	if t.Result != "" && !t.Result.Known() {
		invalid("unsupported result %q", t.Result)
	}
	if t.RR != "" && !t.RR.Valid() {
		invalid("rr %q is not a number", t.RR)
	}
	if text, ok := t.OpenDate.Unparsed(); ok {
		invalid("open_date %q is not a valid date", text)
	}
	if text, ok := t.ClosureDate.Unparsed(); ok {
		invalid("closure_date %q is not a valid date", text)
	}
	if t.OpenDate.Valid && t.ClosureDate.Valid && t.ClosureDate.Time.Before(t.OpenDate.Time) {
		invalid("closure_date is before open_date")
	}

	if t.ImageBefore != "" && !isWebURL(t.ImageBefore) {
		invalid("image_before must be an http(s) URL")
	}
	if t.ImageAfter != "" && !isWebURL(t.ImageAfter) {
		invalid("image_after must be an http(s) URL")
	}

	return errors.Join(errs...)
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
