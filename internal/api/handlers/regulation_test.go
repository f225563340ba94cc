package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/service"
)

type MockRegulationIngester struct {
	mock.Mock
}

func (m *MockRegulationIngester) IngestBundle(ctx context.Context, b *domain.ElementBundle) (domain.IngestResult, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(domain.IngestResult), args.Error(1)
}

type MockRegulationRetriever struct {
	mock.Mock
}

func (m *MockRegulationRetriever) Retrieve(ctx context.Context, question string, k int) (*service.RetrievalResult, error) {
	args := m.Called(ctx, question, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RetrievalResult), args.Error(1)
}

func TestRegulationHandler_Ingest(t *testing.T) {
	ingester := new(MockRegulationIngester)
	ingester.On("IngestBundle", mock.Anything, mock.MatchedBy(func(b *domain.ElementBundle) bool {
		return b.SourceDocument == "GPDO 2015" && len(b.Elements) == 2
	})).Return(domain.IngestResult{Parents: 2, Children: 3, Tables: 1}, nil)

	h := NewRegulationHandler(ingester, nil, 5)
	rec := postJSON(t, h.Ingest, `{"source_document": "GPDO 2015", "elements": [
		{"text": "A.1 Development is not permitted if...", "section": "A.1", "page_number": 2},
		{"text": "| Limit | 50% |", "element_type": "table", "page_number": 3}
	]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	got := decodeData[domain.IngestResult](t, rec)
	assert.Equal(t, domain.IngestResult{Parents: 2, Children: 3, Tables: 1}, got)
}

func TestRegulationHandler_Ingest_Invalid(t *testing.T) {
	ingester := new(MockRegulationIngester)
	h := NewRegulationHandler(ingester, nil, 5)

	rec := postJSON(t, h.Ingest, `{"elements": [{"text": "x"}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "source_document is required")
	ingester.AssertNotCalled(t, "IngestBundle", mock.Anything, mock.Anything)
}

func TestRegulationHandler_Search(t *testing.T) {
	parent := &domain.RegulatoryChunk{ID: "p1", SourceDocument: "GPDO 2015", Section: "A.1", PageNumber: 2, ElementType: domain.ElementTypeText, Text: "A.1 Development is not permitted if the ground covered exceeds 50%."}
	table := &domain.RegulatoryChunk{ID: "t1", SourceDocument: "GPDO 2015", PageNumber: 3, ElementType: domain.ElementTypeTable, Text: "| Limit | 50% |"}
	result := &service.RetrievalResult{
		Regulations: []service.RetrievedRegulation{
			{Parent: parent, Matched: &domain.RegulatoryChunk{ID: "c1", ParentID: "p1", Text: "ground covered exceeds 50%"}, Score: 0.91},
			{Parent: table, Matched: table, Score: 0.8},
		},
		RawHits:    3,
		Unresolved: 0,
	}

	tests := []struct {
		name  string
		body  string
		wantK int
	}{
		{name: "default k", body: `{"query": "coverage limit"}`, wantK: 7},
		{name: "explicit k", body: `{"query": "coverage limit", "k": 2}`, wantK: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := new(MockRegulationRetriever)
			retriever.On("Retrieve", mock.Anything, "coverage limit", tt.wantK).Return(result, nil)

			h := NewRegulationHandler(nil, retriever, 7)
			rec := postJSON(t, h.Search, tt.body)

			require.Equal(t, http.StatusOK, rec.Code)
			got := decodeData[SearchResponse](t, rec)
			require.Len(t, got.Results, 2)
			assert.Equal(t, "Section A.1, Page 2", got.Results[0].Reference)
			assert.Equal(t, "ground covered exceeds 50%", got.Results[0].Matched)
			assert.Empty(t, got.Results[1].Matched)
			assert.Equal(t, "table", got.Results[1].ElementType)
			assert.Equal(t, 3, got.RawHits)
			retriever.AssertExpectations(t)
		})
	}
}

func TestRegulationHandler_Search_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "missing query", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "k too large", body: `{"query": "q", "k": 500}`, wantStatus: http.StatusBadRequest},
		{name: "retrieval failure", body: `{"query": "q"}`, err: domain.NewDomainErrorWithCause(domain.ErrCodeRetrieval, "regulation retrieval failed", errors.New("timeout")), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := new(MockRegulationRetriever)
			retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			h := NewRegulationHandler(nil, retriever, 5)
			rec := postJSON(t, h.Search, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
