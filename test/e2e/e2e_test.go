//go:build e2e

package e2e

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/plancheck/internal/api/handlers"
	"github.com/cloo-solutions/plancheck/internal/domain"
)

const householderBundle = `{
	"source_document": "GPDO 2015 Schedule 2 Part 1",
	"elements": [
		{"text": "Class A - enlargement, improvement or other alteration of a dwellinghouse", "element_type": "heading", "page_number": 12},
		{"text": "A.1 Development is not permitted by Class A if (b) as a result of the works, the total area of ground covered by buildings within the curtilage of the dwellinghouse would exceed 50% of the total area of the curtilage.", "page_number": 12, "section": "A.1(b)"},
		{"text": "A.1 (e) the enlarged part of the dwellinghouse would be within 2 metres of the boundary of the curtilage of the dwellinghouse.", "page_number": 13, "section": "A.1(e)"}
	]
}`

const roofBundle = `{
	"source_document": "GPDO 2015 Schedule 2 Part 1 Class B",
	"elements": [
		{"text": "B.1 Development is not permitted by Class B if any part of the dwellinghouse would, as a result of the works, exceed the height of the highest part of the existing roof.", "page_number": 20, "section": "B.1(a)"}
	]
}`

func TestE2E_Auth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health is public", func(t *testing.T) {
		_, err := env.Get("/health", "")
		require.NoError(t, err)
	})

	t.Run("missing key returns 401", func(t *testing.T) {
		_, err := env.Post("/regulations/search", map[string]string{"query": "curtilage"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("unknown key returns 401", func(t *testing.T) {
		_, err := env.Post("/regulations/search", map[string]string{"query": "curtilage"}, "pck_"+strings.Repeat("0", 64))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestE2E_IngestAndSearch(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("ingest over HTTP", func(t *testing.T) {
		resp, err := env.PostRaw("/regulations/ingest", []byte(householderBundle), env.AuthToken)
		require.NoError(t, err)

		var res domain.IngestResult
		require.NoError(t, json.Unmarshal(resp.Data, &res))
		assert.Equal(t, 3, res.Parents)
		assert.GreaterOrEqual(t, res.Children, 3)
	})

	t.Run("ingest from object storage", func(t *testing.T) {
		require.NoError(t, env.S3Client.PutObject(env.Ctx, "gpdo/class-b.json", []byte(roofBundle), "application/json"))

		res, err := env.Ingestion.IngestRef(env.Ctx, "s3:///gpdo/class-b.json")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Parents)
	})

	t.Run("invalid bundle returns 400", func(t *testing.T) {
		_, err := env.PostRaw("/regulations/ingest", []byte(`{"elements": []}`), env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("search resolves parents", func(t *testing.T) {
		resp, err := env.Post("/regulations/search", map[string]interface{}{
			"query": "ground covered by buildings within the curtilage",
			"k":     3,
		}, env.AuthToken)
		require.NoError(t, err)

		var out handlers.SearchResponse
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		require.NotEmpty(t, out.Results)
		assert.Zero(t, out.Unresolved)
		assert.Equal(t, "GPDO 2015 Schedule 2 Part 1", out.Results[0].Source)
		assert.Contains(t, out.Results[0].Reference, "A.1(b)")
		assert.Contains(t, out.Results[0].Content, "would exceed 50%")

		seen := map[string]bool{}
		for _, r := range out.Results {
			assert.False(t, seen[r.Content], "parent returned twice")
			seen[r.Content] = true
		}
	})
}

func TestE2E_Check(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, err := env.PostRaw("/regulations/ingest", []byte(householderBundle), env.AuthToken)
	require.NoError(t, err)

	env.Generator.Reply = `{"answer": "The extension complies: buildings cover 30.00% of the curtilage, below the 50% limit.",
		"is_compliant": true,
		"citations": [{"regulation_index": 1, "quote": "would exceed 50% of the total area of the curtilage", "relevance": "Sets the 50% limit"}]}`

	drawing := []map[string]interface{}{
		{"type": "LWPOLYLINE_UNSUPPORTED", "layer": "Notes"},
		{"type": "POLYLINE", "layer": "Plot Boundary", "closed": true,
			"points": [][]float64{{0, 0}, {25000, 0}, {25000, 10000}, {0, 10000}}},
		{"type": "POLYLINE", "layer": "Walls", "closed": true,
			"points": [][]float64{{2500, 2500}, {17500, 2500}, {17500, 7500}, {2500, 7500}}},
	}

	t.Run("compliant coverage", func(t *testing.T) {
		resp, err := env.Post("/check", map[string]interface{}{
			"question": "Does the extension comply with the 50% curtilage coverage rule?",
			"drawing":  drawing,
		}, env.AuthToken)
		require.NoError(t, err)

		var result domain.ComplianceResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.True(t, result.IsCompliant)
		require.Len(t, result.Citations, 1)
		// the quote is kept verbatim only when regulation 1 contains it
		assert.NotEmpty(t, result.Citations[0].Content)
		assert.Equal(t, "GPDO 2015 Schedule 2 Part 1", result.Citations[0].Source)
		require.NotEmpty(t, result.ReasoningSteps)
		assert.True(t, strings.HasPrefix(result.ReasoningSteps[1], "Analyzed drawing geometry"))
	})

	t.Run("missing question returns 400", func(t *testing.T) {
		_, err := env.Post("/check", map[string]interface{}{"drawing": drawing}, env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "question is required")
	})
}
