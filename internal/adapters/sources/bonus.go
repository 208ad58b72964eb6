package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/okian/teamboard/internal/domain/model"
)

// BonusProvider returns the current team -> bonus mapping.
type BonusProvider interface {
	Bonuses(ctx context.Context) (model.BonusMapping, error)
}

// Bonus fetches per-team supplemental scores from the manual flag service.
type Bonus struct {
	c *client
}

// NewBonus creates a supplemental score client for url.
func NewBonus(url string, opts ...Option) *Bonus {
	return &Bonus{c: newClient(BonusSource, url, opts...)}
}

// Bonuses fetches a fresh mapping. Every value must be a JSON integer.
func (b *Bonus) Bonuses(ctx context.Context) (model.BonusMapping, error) {
	obj, err := b.c.fetchObject(ctx)
	if err != nil {
		return nil, err
	}

	out := make(model.BonusMapping, len(obj))
	for team, raw := range obj {
		n, err := parseInteger(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w: team %q: %w", ErrSourceUnavailable, BonusSource, ErrMalformedResponse, team, err)
		}
		out[model.TeamName(team)] = n
	}
	return out, nil
}

func parseInteger(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("bonus is not a number")
	}
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bonus is not an integer: %s", num)
	}
	return n, nil
}
