package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"orchestrator/internal/auth"
	"orchestrator/internal/domain"
	"orchestrator/internal/http/handlers"
	"orchestrator/internal/http/httpapi"
	"orchestrator/internal/infra"
	"orchestrator/internal/manifest"
	"orchestrator/internal/origin"
	"orchestrator/internal/projection"
	"orchestrator/internal/routing"
	"orchestrator/internal/storage"
)

// memStore is an in-memory storage.Store for tests.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Read(_ context.Context, key string) ([]byte, error) {
	if data, ok := m.data[key]; ok {
		return data, nil
	}
	return nil, storage.ErrNotExist
}

func (m *memStore) Write(_ context.Context, key string, data []byte, _ string) error {
	m.data[key] = data
	return nil
}

type fakeCustomerRepo struct {
	customers map[string]*domain.Customer
}

func (f *fakeCustomerRepo) GetCustomer(_ context.Context, pathValue string) (*domain.Customer, error) {
	if c, ok := f.customers[pathValue]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

type fakeAssetRepo struct {
	assets  map[domain.AssetID]*domain.Asset
	results []domain.Asset
}

func (f *fakeAssetRepo) GetAsset(_ context.Context, id domain.AssetID) (*domain.Asset, error) {
	if a, ok := f.assets[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAssetRepo) ExecuteQuery(_ context.Context, _ *domain.AssetQuery, _ domain.QueryField) ([]domain.Asset, error) {
	return f.results, nil
}

type fakeNamedQueryRepo struct {
	queries map[string]*domain.NamedQuery
}

func (f *fakeNamedQueryRepo) GetByName(_ context.Context, _ int, name string) (*domain.NamedQuery, error) {
	if nq, ok := f.queries[name]; ok {
		return nq, nil
	}
	return nil, domain.ErrNotFound
}

type fakeTokenRepo struct {
	byBearer map[string]*domain.AuthToken
	byCookie map[string]*domain.AuthToken
	created  []*domain.AuthToken
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

func (f *fakeTokenRepo) CreateToken(_ context.Context, token *domain.AuthToken) error {
	f.created = append(f.created, token)
	return nil
}

type fakeOriginStrategyRepo struct {
	strategies map[int][]domain.OriginStrategy
}

func (f *fakeOriginStrategyRepo) ListForCustomer(_ context.Context, customer int) ([]domain.OriginStrategy, error) {
	return f.strategies[customer], nil
}

// fixture bundles the fakes behind a fully wired router.
type fixture struct {
	app     *handlers.App
	router  http.Handler
	assets  *fakeAssetRepo
	queries *fakeNamedQueryRepo
	tokens  *fakeTokenRepo
	origins *fakeOriginStrategyRepo
	output  *memStore
	thumbs  *memStore
	backend *recordingBackend
}

// recordingBackend captures the proxied request path per destination root.
type recordingBackend struct {
	srv   *httptest.Server
	paths []string
}

func newRecordingBackend(t *testing.T) *recordingBackend {
	t.Helper()
	b := &recordingBackend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.paths = append(b.paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "proxied")
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *recordingBackend) lastPath(t *testing.T) string {
	t.Helper()
	if len(b.paths) == 0 {
		t.Fatal("backend received no request")
	}
	return b.paths[len(b.paths)-1]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	backend := newRecordingBackend(t)

	cfg := &infra.Config{
		AppEnv:                "development",
		PublicBaseURL:         "https://iiif.example",
		ImageServerRoot:       backend.srv.URL,
		ThumbsRoot:            backend.srv.URL,
		FallbackRoot:          backend.srv.URL,
		ControlFileStaleAfter: 10 * time.Minute,
		AuthTokenTTL:          10 * time.Minute,
		CacheTTL:              time.Minute,
		CanResizeThumbs:       true,
		AllowedOrigins:        []string{"*"},
	}

	f := &fixture{
		backend: backend,
		assets:  &fakeAssetRepo{assets: map[domain.AssetID]*domain.Asset{}},
		queries: &fakeNamedQueryRepo{queries: map[string]*domain.NamedQuery{}},
		tokens:  &fakeTokenRepo{byBearer: map[string]*domain.AuthToken{}, byCookie: map[string]*domain.AuthToken{}},
		origins: &fakeOriginStrategyRepo{strategies: map[int][]domain.OriginStrategy{}},
		output:  newMemStore(),
		thumbs:  newMemStore(),
	}

	app, err := handlers.NewApp(cfg, log)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	resolver := auth.NewResolver(f.tokens, log)
	thumbIndex := routing.NewIndex(f.thumbs, time.Minute, log)
	t.Cleanup(thumbIndex.Close)

	app.Customers = &fakeCustomerRepo{customers: map[string]*domain.Customer{
		"99":       {ID: 99, Name: "wellcome", DisplayName: "Wellcome"},
		"wellcome": {ID: 99, Name: "wellcome", DisplayName: "Wellcome"},
	}}
	app.Assets = f.assets
	app.NamedQueries = f.queries
	app.Resolver = resolver
	app.Sessions = auth.NewSessionService(f.tokens, cfg.AuthTokenTTL, log)
	app.Engine = routing.NewEngine(thumbIndex, true, log)
	app.Manifests = manifest.NewBuilder(cfg.PublicBaseURL)
	app.Origins = origin.NewService(f.origins, nil, log)
	app.Projections = projection.NewService(f.output, resolver, cfg.ControlFileStaleAfter, log)
	app.PDFCreator = projection.NewPDFCreator(f.output, backend.srv.URL, backend.srv.Client(), log)
	app.ZipCreator = projection.NewZipCreator(f.output, f.thumbs, log)

	f.app = app
	f.router = httpapi.NewRouter(app, cfg, log)
	return f
}

func (f *fixture) addAsset(a *domain.Asset) {
	f.assets.assets[a.ID] = a
}

func (f *fixture) addSizes(id domain.AssetID, open [][]int) {
	doc, _ := json.Marshal(map[string][][]int{"o": open, "a": {}})
	f.thumbs.data[id.String()+"/s.json"] = doc
}

func (f *fixture) get(t *testing.T, path string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withAccept(value string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Accept", value)
	}
}
