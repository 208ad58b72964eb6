// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedBatch is returned when a score batch is not a JSON object.
var ErrMalformedBatch = errors.New("malformed score batch")

// LoginID identifies a single participant account.
type LoginID string

// TeamName identifies a competing team. Several logins may share one team.
type TeamName string

// ScorePair is one login's raw score as submitted by the scraper.
// Valid is false when the submitted value is not an integer; such a pair is
// harmless unless its login is known to the registry.
type ScorePair struct {
	Login LoginID
	Score int64
	Valid bool
}

// RawScoreBatch is a login -> score submission in the order the logins
// appeared in the request body. Ranking ties keep this order.
type RawScoreBatch []ScorePair

// UnmarshalJSON decodes a JSON object keeping key order. A repeated login
// keeps the position of its first occurrence and the value of its last.
// Values may be JSON integers or strings holding a base-10 integer.
func (b *RawScoreBatch) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBatch, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformedBatch)
	}

	pairs := RawScoreBatch{}
	index := make(map[LoginID]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedBatch, err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected a login key", ErrMalformedBatch)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: login %q: %w", ErrMalformedBatch, key, err)
		}

		p := ScorePair{Login: LoginID(key)}
		p.Score, p.Valid = parseScore(raw)
		if i, seen := index[p.Login]; seen {
			pairs[i] = p
			continue
		}
		index[p.Login] = len(pairs)
		pairs = append(pairs, p)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBatch, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after object", ErrMalformedBatch)
	}

	*b = pairs
	return nil
}

// MarshalJSON encodes the batch as a JSON object in batch order. Invalid
// scores are written as null.
func (b RawScoreBatch) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(p.Login))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if p.Valid {
			buf.WriteString(strconv.FormatInt(p.Score, 10))
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Add appends a valid score, replacing the value of an existing login in place.
func (b *RawScoreBatch) Add(login LoginID, score int64) {
	for i := range *b {
		if (*b)[i].Login == login {
			(*b)[i] = ScorePair{Login: login, Score: score, Valid: true}
			return
		}
	}
	*b = append(*b, ScorePair{Login: login, Score: score, Valid: true})
}

func parseScore(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// LoginTeamMapping is the login registry's login -> team view.
type LoginTeamMapping map[LoginID]TeamName

// BonusMapping is the supplemental score source's team -> bonus view.
type BonusMapping map[TeamName]int64
