package projection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
	"orchestrator/internal/namedquery"
	"orchestrator/internal/storage"
)

// PDFCreator delegates rendering to an external generator service. It POSTs a
// playbook describing every page; the generator writes the finished document
// straight to the shared output store at the playbook's output key, so only
// the control file is written from here. Role-protected images become
// redacted placeholder pages rather than being dropped, keeping page numbers
// aligned with the source sequence.
type PDFCreator struct {
	persister
	client       *http.Client
	generatorURL string
}

// NewPDFCreator builds a PDFCreator talking to the generator at generatorURL.
func NewPDFCreator(output storage.Store, generatorURL string, client *http.Client, log zerolog.Logger) *PDFCreator {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &PDFCreator{
		persister:    persister{store: output, log: log, now: time.Now},
		client:       client,
		generatorURL: generatorURL,
	}
}

// PersistProjection renders the document for q and writes its control file.
func (c *PDFCreator) PersistProjection(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset) (*ControlFile, error) {
	return c.persist(ctx, q, assets, c.generate)
}

type playbook struct {
	Title     string         `json:"title"`
	Output    string         `json:"output"`
	CoverPage string         `json:"coverPage,omitempty"`
	Pages     []playbookPage `json:"pages"`
}

type playbookPage struct {
	Type   string `json:"type"`
	Method string `json:"method,omitempty"`
	Input  string `json:"input,omitempty"`
}

type generatorResponse struct {
	Success bool  `json:"success"`
	Size    int64 `json:"size"`
}

const (
	pageTypeImage    = "jpg"
	pageTypeRedacted = "redacted"
)

func (c *PDFCreator) generate(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset) (int64, error) {
	pb := playbook{
		Title:     q.QueryName,
		Output:    q.StorageKey,
		CoverPage: q.CoverPageURL,
		Pages:     make([]playbookPage, 0, len(assets)),
	}
	for i := range assets {
		a := &assets[i]
		if a.RequiresAuth() {
			pb.Pages = append(pb.Pages, playbookPage{Type: pageTypeRedacted})
			continue
		}
		pb.Pages = append(pb.Pages, playbookPage{
			Type:   pageTypeImage,
			Method: "download",
			Input:  sourceImageKey(a),
		})
	}

	body, err := json.Marshal(pb)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generatorURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call pdf generator: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pdf generator returned %d", resp.StatusCode)
	}

	var gr generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return 0, fmt.Errorf("decode pdf generator response: %w", err)
	}
	if !gr.Success {
		return 0, fmt.Errorf("pdf generator reported failure for %s", q.StorageKey)
	}
	return gr.Size, nil
}
