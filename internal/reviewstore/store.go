// Package reviewstore keeps reviewer-owned state (investigation, assignee,
// last update) per document number, outside the reconciliation itself.
//
// A reconciliation run reads the states for the doc_nos it produced and
// overlays them on the computed items:
//
//	store, err := reviewstore.Open(ctx, reviewstore.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	states, err := store.GetMany(ctx, docNos)
package reviewstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/errors"
)

// ErrNotFound is returned by Get when no state was saved for a doc_no
var ErrNotFound = stderrors.New("review state not found")

// Store persists review states keyed by doc_no
type Store interface {
	// Get returns the state for docNo or ErrNotFound
	Get(ctx context.Context, docNo string) (models.ReviewState, error)

	// GetMany returns the saved states among docNos. Doc numbers without
	// a saved state are absent from the map.
	GetMany(ctx context.Context, docNos []string) (map[string]models.ReviewState, error)

	// Put creates or replaces the state for state.DocNo
	Put(ctx context.Context, state models.ReviewState) error

	// Delete removes the state for docNo. Deleting a missing state is not an error.
	Delete(ctx context.Context, docNo string) error

	// List returns every saved state ordered by doc_no
	List(ctx context.Context) ([]models.ReviewState, error)

	Close() error
}

// Backend names
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config selects and configures a store backend
type Config struct {
	Backend  string         `json:"backend" mapstructure:"backend"`
	Path     string         `json:"path,omitempty" mapstructure:"path"`
	Redis    RedisConfig    `json:"redis" mapstructure:"redis"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// DefaultConfig keeps review state in a JSON file in the working directory
func DefaultConfig() *Config {
	return &Config{
		Backend:  BackendFile,
		Path:     "review_state.json",
		Redis:    DefaultRedisConfig(),
		Postgres: DefaultPostgresConfig(""),
	}
}

// Validate checks if the store configuration is valid
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendFile:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("file backend requires a path")
		}
		return nil
	case BackendRedis:
		return c.Redis.Validate()
	case BackendPostgres:
		return c.Postgres.Validate()
	default:
		return fmt.Errorf("unknown review store backend %q: must be memory, file, redis or postgres", c.Backend)
	}
}

// Open creates the configured store. Network backends are pinged before
// Open returns.
func Open(ctx context.Context, config *Config) (Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "review_store", config.Backend, err)
	}

	switch config.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(config.Path)
	case BackendRedis:
		return OpenRedis(ctx, config.Redis)
	default:
		return OpenPostgres(ctx, config.Postgres)
	}
}

var now = func() time.Time { return time.Now().UTC() }

// prepare canonicalizes a state before it is written. The investigation
// state may be given in any form ParseInvestigationState accepts.
func prepare(state models.ReviewState) (models.ReviewState, error) {
	state.DocNo = strings.TrimSpace(state.DocNo)
	if state.DocNo == "" {
		return state, errors.ValidationError(errors.CodeMissingDocNo, "doc_no", "", nil)
	}

	if state.Investigation != "" {
		inv, err := models.ParseInvestigationState(string(state.Investigation))
		if err != nil {
			return state, errors.ValidationError(errors.CodeInvalidValue, "investigation", state.Investigation, err)
		}
		state.Investigation = inv
	}

	state.AssignedTo = strings.TrimSpace(state.AssignedTo)
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = now()
	}
	return state, nil
}

func sortStates(states []models.ReviewState) {
	sort.Slice(states, func(i, j int) bool { return states[i].DocNo < states[j].DocNo })
}

func uniqueDocNos(docNos []string) []string {
	seen := make(map[string]bool, len(docNos))
	out := make([]string, 0, len(docNos))
	for _, d := range docNos {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
