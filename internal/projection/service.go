package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"orchestrator/internal/auth"
	"orchestrator/internal/domain"
	"orchestrator/internal/namedquery"
	"orchestrator/internal/storage"
)

// Status is the outcome of requesting a stored projection.
type Status int

const (
	// StatusNotFound: no matching assets, or the customer/query is unknown.
	StatusNotFound Status = iota
	// StatusInProcess: another build holds the key within the staleness
	// window; the caller should retry later (HTTP 202).
	StatusInProcess
	// StatusAvailable: the artifact is ready and attached to the result.
	StatusAvailable
	// StatusRestricted: the artifact exists but the credential does not
	// grant its roles (HTTP 401).
	StatusRestricted
	// StatusError: the builder failed, or it claimed success while storage
	// disagrees (both HTTP 500).
	StatusError
)

// Result carries the artifact bytes when Status is StatusAvailable.
type Result struct {
	Status Status
	Data   []byte
}

// Creator builds and persists one projection artifact plus its control file.
// PersistProjection returns the final control file even on failure so the
// caller can report what was attempted.
type Creator interface {
	PersistProjection(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset) (*ControlFile, error)
}

// AssetSource lazily resolves the matched asset set; it is only invoked when
// a build is actually needed.
type AssetSource func(ctx context.Context) ([]domain.Asset, error)

// Service runs the control-file protocol over the output store.
//
// The write-control-file-then-build ordering is what makes concurrent
// requests for one key observe InProcess instead of starting duplicate
// builds. Two requests reading Absent simultaneously can still race; that
// narrow window is an accepted cost of avoiding a distributed lock.
type Service struct {
	store      storage.Store
	resolver   *auth.Resolver
	staleAfter time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewService constructs a Service with the given staleness threshold.
func NewService(store storage.Store, resolver *auth.Resolver, staleAfter time.Duration, log zerolog.Logger) *Service {
	return &Service{store: store, resolver: resolver, staleAfter: staleAfter, log: log, now: time.Now}
}

// StaleAfter exposes the staleness threshold; it doubles as the Retry-After
// hint for in-process responses.
func (s *Service) StaleAfter() time.Duration {
	return s.staleAfter
}

// GetResults serves the projection for q, building it when necessary.
func (s *Service) GetResults(ctx context.Context, q *namedquery.StoredParsedQuery, source AssetSource, creator Creator, cred auth.Credential) (Result, error) {
	existing, err := s.tryGetExisting(ctx, q, cred)
	if err != nil {
		return Result{Status: StatusError}, err
	}
	if existing.Status != StatusNotFound {
		return existing, nil
	}

	assets, err := source(ctx)
	if err != nil {
		return Result{Status: StatusError}, fmt.Errorf("resolve assets for %s: %w", q.StorageKey, err)
	}
	if len(assets) == 0 {
		s.log.Warn().Str("key", q.StorageKey).Msg("no results for projection, aborting")
		return Result{Status: StatusNotFound}, nil
	}

	controlFile, err := creator.PersistProjection(ctx, q, assets)
	if err != nil {
		s.log.Error().Err(err).Str("key", q.StorageKey).Msg("projection build failed")
		return Result{Status: StatusError}, nil
	}

	if controlFile.RequiresAuth() {
		if restricted, err := s.restricted(ctx, q.Customer, controlFile, cred); err != nil {
			return Result{Status: StatusError}, err
		} else if restricted {
			return Result{Status: StatusRestricted}, nil
		}
	}

	data, err := s.store.Read(ctx, q.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			// The build claimed success but storage disagrees: an integrity
			// anomaly, surfaced as a server error.
			s.log.Error().Str("key", q.StorageKey).Msg("artifact missing after successful build")
			return Result{Status: StatusError}, nil
		}
		return Result{Status: StatusError}, err
	}
	return Result{Status: StatusAvailable, Data: data}, nil
}

// GetControlFile reads the control file at key without triggering a build.
// Returns ErrNotFound if absent.
func (s *Service) GetControlFile(ctx context.Context, controlFileKey string) (*ControlFile, error) {
	data, err := s.store.Read(ctx, controlFileKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read control file %s: %w", controlFileKey, err)
	}
	var cf ControlFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("decode control file %s: %w", controlFileKey, err)
	}
	return &cf, nil
}

// tryGetExisting maps the stored control-file state onto a serving decision.
// StatusNotFound means "no usable artifact, build one".
func (s *Service) tryGetExisting(ctx context.Context, q *namedquery.StoredParsedQuery, cred auth.Credential) (Result, error) {
	cf, err := s.GetControlFile(ctx, q.ControlFileStorageKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{Status: StatusNotFound}, nil
		}
		return Result{}, err
	}

	if cf.RequiresAuth() {
		if restricted, err := s.restricted(ctx, q.Customer, cf, cred); err != nil {
			return Result{}, err
		} else if restricted {
			return Result{Status: StatusRestricted}, nil
		}
	}

	// Staleness outranks in-process: an abandoned build must not wedge the
	// key forever.
	if cf.Stale(s.staleAfter, s.now()) && cf.InProcess {
		s.log.Warn().Str("key", q.StorageKey).Msg("control file is stale, will recreate")
		return Result{Status: StatusNotFound}, nil
	}
	if cf.InProcess {
		s.log.Debug().Str("key", q.StorageKey).Msg("projection build in progress")
		return Result{Status: StatusInProcess}, nil
	}

	data, err := s.store.Read(ctx, q.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			// Complete control file but no artifact: recreate.
			s.log.Warn().Str("key", q.StorageKey).Msg("control file complete but artifact missing, will recreate")
			return Result{Status: StatusNotFound}, nil
		}
		return Result{}, err
	}
	return Result{Status: StatusAvailable, Data: data}, nil
}

func (s *Service) restricted(ctx context.Context, customer int, cf *ControlFile, cred auth.Credential) (bool, error) {
	access, err := s.resolver.Resolve(ctx, customer, cf.Roles, cred)
	if err != nil {
		return false, err
	}
	return access == auth.AccessUnauthorized, nil
}
