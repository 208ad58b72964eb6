package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/teamboard/internal/domain/model"
)

// LoginRegistry returns the current login -> team mapping.
type LoginRegistry interface {
	Logins(ctx context.Context) (model.LoginTeamMapping, error)
}

// Registry fetches the login -> team mapping from the credential dispenser's
// admin endpoint.
type Registry struct {
	c *client
}

// NewRegistry creates a registry client for url.
func NewRegistry(url string, opts ...Option) *Registry {
	return &Registry{c: newClient(RegistrySource, url, opts...)}
}

// Logins fetches a fresh mapping. Every value must be a JSON string.
func (r *Registry) Logins(ctx context.Context) (model.LoginTeamMapping, error) {
	obj, err := r.c.fetchObject(ctx)
	if err != nil {
		return nil, err
	}

	out := make(model.LoginTeamMapping, len(obj))
	for login, raw := range obj {
		var team string
		if string(bytes.TrimSpace(raw)) == "null" || json.Unmarshal(raw, &team) != nil {
			return nil, fmt.Errorf("%w: %s: %w: login %q: team is not a string", ErrSourceUnavailable, RegistrySource, ErrMalformedResponse, login)
		}
		out[model.LoginID(login)] = model.TeamName(team)
	}
	return out, nil
}
