package projection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"orchestrator/internal/auth"
	"orchestrator/internal/domain"
	"orchestrator/internal/namedquery"
	"orchestrator/internal/storage"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Read(_ context.Context, key string) ([]byte, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return data, nil
}

func (m *memStore) Write(_ context.Context, key string, data []byte, _ string) error {
	m.data[key] = data
	return nil
}

type fakeTokenRepo struct {
	byBearer map[string]*domain.AuthToken
	byCookie map[string]*domain.AuthToken
}

func (f *fakeTokenRepo) GetForBearerToken(_ context.Context, _ int, token string) (*domain.AuthToken, error) {
	if t, ok := f.byBearer[token]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTokenRepo) GetForCookieID(_ context.Context, _ int, cookieID string) (*domain.AuthToken, error) {
	if t, ok := f.byCookie[cookieID]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTokenRepo) CreateToken(_ context.Context, _ *domain.AuthToken) error { return nil }

type fakeCreator struct {
	store    *memStore
	now      func() time.Time
	failWith error
	// skipArtifact simulates a creator that reports success while the
	// artifact never landed in storage.
	skipArtifact bool
	calls        int
}

func (f *fakeCreator) PersistProjection(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset) (*ControlFile, error) {
	f.calls++
	p := persister{store: f.store, log: zerolog.Nop(), now: f.now}
	return p.persist(ctx, q, assets, func(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset) (int64, error) {
		if f.failWith != nil {
			return 0, f.failWith
		}
		if f.skipArtifact {
			return 42, nil
		}
		if err := f.store.Write(ctx, q.StorageKey, []byte("artifact"), q.Channel.ContentType()); err != nil {
			return 0, err
		}
		return 8, nil
	})
}

func storedQuery(t *testing.T) *namedquery.StoredParsedQuery {
	t.Helper()
	nq := &domain.NamedQuery{Name: "my-query", Template: "s1=p1"}
	q, err := namedquery.ParseStored(nq, 99, []string{"folio-1"}, nil, namedquery.ChannelZIP)
	if err != nil {
		t.Fatalf("ParseStored: %v", err)
	}
	return q
}

func openAssets() []domain.Asset {
	return []domain.Asset{
		{ID: domain.AssetID{Customer: 99, Space: 1, Identifier: "page-1"}, MaxUnauthorised: -1},
		{ID: domain.AssetID{Customer: 99, Space: 1, Identifier: "page-2"}, MaxUnauthorised: -1},
	}
}

func newTestService(store *memStore, tokens domain.AuthTokenRepository) *Service {
	if tokens == nil {
		tokens = &fakeTokenRepo{}
	}
	resolver := auth.NewResolver(tokens, zerolog.Nop())
	return NewService(store, resolver, 10*time.Minute, zerolog.Nop())
}

func sourceFor(assets []domain.Asset) AssetSource {
	return func(context.Context) ([]domain.Asset, error) { return assets, nil }
}

func TestGetResultsBuildsWhenAbsent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	creator := &fakeCreator{store: store, now: time.Now}
	q := storedQuery(t)

	res, err := svc.GetResults(context.Background(), q, sourceFor(openAssets()), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusAvailable {
		t.Fatalf("status = %v, want StatusAvailable", res.Status)
	}
	if string(res.Data) != "artifact" {
		t.Fatalf("data = %q", res.Data)
	}
	if creator.calls != 1 {
		t.Fatalf("creator called %d times, want 1", creator.calls)
	}

	cf, err := svc.GetControlFile(context.Background(), q.ControlFileStorageKey)
	if err != nil {
		t.Fatalf("GetControlFile: %v", err)
	}
	if !cf.Exists || cf.InProcess {
		t.Fatalf("control file not finalized: %+v", cf)
	}
	if cf.ItemCount != 2 || cf.SizeBytes != 8 {
		t.Fatalf("control file counts: %+v", cf)
	}
}

func TestGetResultsServesExistingWithoutRebuild(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	creator := &fakeCreator{store: store, now: time.Now}
	q := storedQuery(t)
	ctx := context.Background()

	if _, err := svc.GetResults(ctx, q, sourceFor(openAssets()), creator, auth.Credential{}); err != nil {
		t.Fatalf("first GetResults: %v", err)
	}
	res, err := svc.GetResults(ctx, q, sourceFor(openAssets()), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("second GetResults: %v", err)
	}
	if res.Status != StatusAvailable {
		t.Fatalf("status = %v, want StatusAvailable", res.Status)
	}
	if creator.calls != 1 {
		t.Fatalf("creator called %d times, want 1", creator.calls)
	}
}

func TestGetResultsNoMatches(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	creator := &fakeCreator{store: store, now: time.Now}
	q := storedQuery(t)

	res, err := svc.GetResults(context.Background(), q, sourceFor(nil), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusNotFound {
		t.Fatalf("status = %v, want StatusNotFound", res.Status)
	}
	if creator.calls != 0 {
		t.Fatal("creator must not run for zero matches")
	}
}

func TestGetResultsInProcess(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	q := storedQuery(t)

	cf := ControlFile{Created: time.Now(), Key: q.StorageKey, InProcess: true, ItemCount: 2}
	writeControlFileRaw(t, store, q.ControlFileStorageKey, cf)

	creator := &fakeCreator{store: store, now: time.Now}
	res, err := svc.GetResults(context.Background(), q, sourceFor(openAssets()), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusInProcess {
		t.Fatalf("status = %v, want StatusInProcess", res.Status)
	}
	if creator.calls != 0 {
		t.Fatal("a fresh in-process build must not be restarted")
	}
}

func TestGetResultsStaleInProcessRebuilds(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	q := storedQuery(t)

	cf := ControlFile{Created: time.Now().Add(-time.Hour), Key: q.StorageKey, InProcess: true}
	writeControlFileRaw(t, store, q.ControlFileStorageKey, cf)

	creator := &fakeCreator{store: store, now: time.Now}
	res, err := svc.GetResults(context.Background(), q, sourceFor(openAssets()), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusAvailable {
		t.Fatalf("status = %v, want StatusAvailable", res.Status)
	}
	if creator.calls != 1 {
		t.Fatal("stale in-process control file must trigger a rebuild")
	}
}

func TestGetResultsCompleteButArtifactMissingRebuilds(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	q := storedQuery(t)

	cf := ControlFile{Created: time.Now(), Key: q.StorageKey, Exists: true, ItemCount: 2}
	writeControlFileRaw(t, store, q.ControlFileStorageKey, cf)

	creator := &fakeCreator{store: store, now: time.Now}
	res, err := svc.GetResults(context.Background(), q, sourceFor(openAssets()), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusAvailable {
		t.Fatalf("status = %v, want StatusAvailable", res.Status)
	}
	if creator.calls != 1 {
		t.Fatal("complete control file without artifact must trigger a rebuild")
	}
}

func TestGetResultsCreatorFailure(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	q := storedQuery(t)

	creator := &fakeCreator{store: store, now: time.Now, failWith: errors.New("boom")}
	res, err := svc.GetResults(context.Background(), q, sourceFor(openAssets()), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusError {
		t.Fatalf("status = %v, want StatusError", res.Status)
	}
}

func TestGetResultsArtifactMissingAfterBuild(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	q := storedQuery(t)

	creator := &fakeCreator{store: store, now: time.Now, skipArtifact: true}
	res, err := svc.GetResults(context.Background(), q, sourceFor(openAssets()), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusError {
		t.Fatalf("status = %v, want StatusError", res.Status)
	}
}

func TestGetResultsRestricted(t *testing.T) {
	session := &domain.SessionUser{ID: "sess-1", Roles: map[int][]string{99: {"clickthrough"}}}
	tokens := &fakeTokenRepo{byBearer: map[string]*domain.AuthToken{
		"good-token": {Customer: 99, SessionUser: session},
	}}
	store := newMemStore()
	svc := newTestService(store, tokens)
	q := storedQuery(t)

	cf := ControlFile{Created: time.Now(), Key: q.StorageKey, Exists: true, Roles: []string{"clickthrough"}}
	writeControlFileRaw(t, store, q.ControlFileStorageKey, cf)
	store.data[q.StorageKey] = []byte("artifact")

	creator := &fakeCreator{store: store, now: time.Now}
	ctx := context.Background()

	res, err := svc.GetResults(ctx, q, sourceFor(openAssets()), creator, auth.Credential{})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusRestricted {
		t.Fatalf("status without credential = %v, want StatusRestricted", res.Status)
	}

	res, err = svc.GetResults(ctx, q, sourceFor(openAssets()), creator, auth.Credential{BearerToken: "good-token"})
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if res.Status != StatusAvailable {
		t.Fatalf("status with credential = %v, want StatusAvailable", res.Status)
	}
	if creator.calls != 0 {
		t.Fatal("existing artifact must not be rebuilt")
	}
}

func TestGetControlFileNotFound(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	if _, err := svc.GetControlFile(context.Background(), "99/zip/none/x.zip.json"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestControlFileStale(t *testing.T) {
	now := time.Now()
	cf := ControlFile{Created: now.Add(-11 * time.Minute)}
	if !cf.Stale(10*time.Minute, now) {
		t.Fatal("11 minute old control file should be stale at a 10 minute threshold")
	}
	cf.Created = now.Add(-9 * time.Minute)
	if cf.Stale(10*time.Minute, now) {
		t.Fatal("9 minute old control file should not be stale")
	}
}

func writeControlFileRaw(t *testing.T, store *memStore, key string, cf ControlFile) {
	t.Helper()
	data, err := json.Marshal(cf)
	if err != nil {
		t.Fatalf("marshal control file: %v", err)
	}
	store.data[key] = data
}
