package v1

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/focuspilot/plugin/ai/rag"
)

const defaultTopK = 3

type DocumentRequest struct {
	ID       string         `json:"id"`
	Content  string         `json:"content" validate:"required"`
	Metadata map[string]any `json:"metadata"`
}

type AddDocumentsRequest struct {
	Documents []DocumentRequest `json:"documents" validate:"required,min=1,max=100,dive"`
	// Chunk splits long documents into "<id>#<n>" chunks before embedding.
	Chunk bool `json:"chunk"`
}

type AddDocumentsResponse struct {
	Added  int      `json:"added"`
	IDs    []string `json:"ids"`
	Failed []string `json:"failed"`
}

type QueryRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"topK" validate:"gte=0,lte=50"`
}

type RetrieveResponse struct {
	Results    []rag.Result   `json:"results"`
	Evaluation rag.Evaluation `json:"evaluation"`
}

type GenerateResponse struct {
	Answer string `json:"answer"`
}

// AddDocuments embeds and appends documents. Documents without an id get
// a generated one.
// POST /api/v1/rag/documents
func (s *APIV1Service) AddDocuments(c echo.Context) error {
	var req AddDocumentsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel, _ := requestContext(c)
	defer cancel()

	inputs := make([]rag.DocumentInput, len(req.Documents))
	for i, d := range req.Documents {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		inputs[i] = rag.DocumentInput{ID: id, Content: d.Content, Metadata: d.Metadata}
	}
	if req.Chunk {
		inputs = rag.ChunkInputs(inputs)
	}
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		ids[i] = in.ID
	}

	added, err := s.Assistant.RAG.AddDocuments(ctx, inputs)
	resp := AddDocumentsResponse{Added: added, IDs: ids, Failed: []string{}}
	if err != nil {
		var partial *rag.PartialFailureError
		if !errors.As(err, &partial) {
			return err
		}
		resp.Failed = partial.Failed
		resp.IDs = without(ids, partial.Failed)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpsertDocument replaces the document with the path id or appends it.
// PUT /api/v1/rag/documents/:id
func (s *APIV1Service) UpsertDocument(c echo.Context) error {
	var req DocumentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel, _ := requestContext(c)
	defer cancel()

	in := rag.DocumentInput{ID: c.Param("id"), Content: req.Content, Metadata: req.Metadata}
	if err := s.Assistant.RAG.Upsert(ctx, in); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RetrieveDocuments returns the most similar documents with their scores
// and a relevance rating of the set.
// POST /api/v1/rag/retrieve
func (s *APIV1Service) RetrieveDocuments(c echo.Context) error {
	var req QueryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel, _ := requestContext(c)
	defer cancel()

	results := s.Assistant.RAG.Search(ctx, req.Query, topK(req.TopK))
	return c.JSON(http.StatusOK, RetrieveResponse{Results: results, Evaluation: rag.Evaluate(results)})
}

// GenerateAnswer answers a question grounded in retrieved documents.
// POST /api/v1/rag/generate
func (s *APIV1Service) GenerateAnswer(c echo.Context) error {
	var req QueryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel, _ := requestContext(c)
	defer cancel()

	answer, err := s.Assistant.RAG.GenerateWithContext(ctx, req.Query, topK(req.TopK))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, GenerateResponse{Answer: answer})
}

func topK(k int) int {
	if k <= 0 {
		return defaultTopK
	}
	return k
}

func without(ids, drop []string) []string {
	dropped := make(map[string]bool, len(drop))
	for _, id := range drop {
		dropped[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !dropped[id] {
			out = append(out, id)
		}
	}
	return out
}
