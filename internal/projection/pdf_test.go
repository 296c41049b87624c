package projection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
	"orchestrator/internal/namedquery"
)

func pdfQuery(t *testing.T) *namedquery.StoredParsedQuery {
	t.Helper()
	nq := &domain.NamedQuery{Name: "my-pdf", Template: "s1=p1&coverpage=https://covers.example/cover"}
	q, err := namedquery.ParseStored(nq, 99, []string{"folio-1"}, nil, namedquery.ChannelPDF)
	if err != nil {
		t.Fatalf("ParseStored: %v", err)
	}
	return q
}

func TestPDFCreatorSendsPlaybook(t *testing.T) {
	var got playbook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode playbook: %v", err)
		}
		json.NewEncoder(w).Encode(generatorResponse{Success: true, Size: 1234})
	}))
	defer srv.Close()

	output := newMemStore()
	creator := NewPDFCreator(output, srv.URL, srv.Client(), zerolog.Nop())
	q := pdfQuery(t)
	assets := []domain.Asset{
		{ID: domain.AssetID{Customer: 99, Space: 1, Identifier: "page-1"}, MaxUnauthorised: -1},
		{ID: domain.AssetID{Customer: 99, Space: 1, Identifier: "secret"}, Roles: []string{"clickthrough"}, MaxUnauthorised: -1},
		{ID: domain.AssetID{Customer: 99, Space: 1, Identifier: "page-3"}, MaxUnauthorised: -1},
	}

	cf, err := creator.PersistProjection(context.Background(), q, assets)
	if err != nil {
		t.Fatalf("PersistProjection: %v", err)
	}

	if got.Output != q.StorageKey {
		t.Fatalf("playbook output = %q, want %q", got.Output, q.StorageKey)
	}
	if got.CoverPage != "https://covers.example/cover" {
		t.Fatalf("playbook coverPage = %q", got.CoverPage)
	}
	if len(got.Pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(got.Pages))
	}
	// Protected images become redacted placeholders in-place, keeping the
	// page sequence aligned.
	if got.Pages[0].Type != pageTypeImage || got.Pages[1].Type != pageTypeRedacted || got.Pages[2].Type != pageTypeImage {
		t.Fatalf("page types = %v %v %v", got.Pages[0].Type, got.Pages[1].Type, got.Pages[2].Type)
	}
	if got.Pages[0].Input != "99/1/page-1/low.jpg" {
		t.Fatalf("first page input = %q", got.Pages[0].Input)
	}
	if got.Pages[1].Input != "" {
		t.Fatal("redacted pages must not name a source image")
	}

	if cf.SizeBytes != 1234 {
		t.Fatalf("control file size = %d, want 1234", cf.SizeBytes)
	}
	if len(cf.Roles) != 1 || cf.Roles[0] != "clickthrough" {
		t.Fatalf("control file roles = %v", cf.Roles)
	}
}

func TestPDFCreatorGeneratorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generatorResponse{Success: false})
	}))
	defer srv.Close()

	creator := NewPDFCreator(newMemStore(), srv.URL, srv.Client(), zerolog.Nop())
	if _, err := creator.PersistProjection(context.Background(), pdfQuery(t), openAssets()); err == nil {
		t.Fatal("expected error when the generator reports failure")
	}
}

func TestPDFCreatorGeneratorHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	creator := NewPDFCreator(newMemStore(), srv.URL, srv.Client(), zerolog.Nop())
	if _, err := creator.PersistProjection(context.Background(), pdfQuery(t), openAssets()); err == nil {
		t.Fatal("expected error on non-200 from the generator")
	}
}
