package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cloo-solutions/plancheck/internal/api"
	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/service"
)

type RegulationIngester interface {
	IngestBundle(ctx context.Context, b *domain.ElementBundle) (domain.IngestResult, error)
}

type RegulationRetriever interface {
	Retrieve(ctx context.Context, question string, k int) (*service.RetrievalResult, error)
}

type RegulationHandler struct {
	ingester  RegulationIngester
	retriever RegulationRetriever
	defaultK  int
}

func NewRegulationHandler(ingester RegulationIngester, retriever RegulationRetriever, defaultK int) *RegulationHandler {
	if defaultK <= 0 {
		defaultK = 5
	}
	return &RegulationHandler{ingester: ingester, retriever: retriever, defaultK: defaultK}
}

type SearchRequest struct {
	Query string `json:"query" validate:"required,max=4000"`
	K     int    `json:"k,omitempty" validate:"gte=0,lte=50"`
}

type RegulationResult struct {
	Source      string  `json:"source"`
	Reference   string  `json:"reference"`
	ElementType string  `json:"element_type"`
	PageNumber  int     `json:"page_number,omitempty"`
	Content     string  `json:"content"`
	Matched     string  `json:"matched,omitempty"`
	Score       float64 `json:"score"`
}

type SearchResponse struct {
	Results    []RegulationResult `json:"results"`
	RawHits    int                `json:"raw_hits"`
	Unresolved int                `json:"unresolved"`
}

func retrievalToResponse(res *service.RetrievalResult) *SearchResponse {
	out := &SearchResponse{
		Results:    make([]RegulationResult, 0, len(res.Regulations)),
		RawHits:    res.RawHits,
		Unresolved: res.Unresolved,
	}
	for _, reg := range res.Regulations {
		item := RegulationResult{
			Source:      reg.Parent.SourceDocument,
			Reference:   reg.Parent.Reference(),
			ElementType: string(reg.Parent.ElementType),
			PageNumber:  reg.Parent.PageNumber,
			Content:     reg.Parent.Text,
			Score:       reg.Score,
		}
		if reg.Matched != nil && reg.Matched.ID != reg.Parent.ID {
			item.Matched = reg.Matched.Text
		}
		out.Results = append(out.Results, item)
	}
	return out
}

// Ingest stores a pre-extracted element bundle.
func (h *RegulationHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bundle, err := domain.DecodeElementBundle(data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	res, err := h.ingester.IngestBundle(r.Context(), bundle)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, res)
}

// Search returns the parent regulations retrieved for a query.
func (h *RegulationHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := domain.ValidateStruct(req); err != nil {
		api.HandleError(w, err)
		return
	}
	k := req.K
	if k == 0 {
		k = h.defaultK
	}

	res, err := h.retriever.Retrieve(r.Context(), req.Query, k)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, retrievalToResponse(res))
}
