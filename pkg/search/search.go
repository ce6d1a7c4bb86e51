// Package search maintains a full-text index over findings so `scour
// findings search` works without grepping state.json. The index is a
// derived artifact: it is rebuilt from state whenever the two disagree,
// and losing it costs nothing but a rebuild.
package search

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/state"
)

var searchLog = log.New(os.Stderr, "[scour:search] ", log.Ltime)

// IndexDir is the bleve index directory name inside the tool directory.
const IndexDir = "search.bleve"

// DefaultLimit bounds result sets when the caller does not say otherwise.
const DefaultLimit = 20

// Index wraps the bleve index over the finding set.
type Index struct {
	idx  bleve.Index
	path string
}

// doc is the indexed projection of a finding.
type doc struct {
	Summary  string `json:"summary"`
	Detector string `json:"detector"`
	File     string `json:"file"`
	Status   string `json:"status"`
	Zone     string `json:"zone"`
	Symbol   string `json:"symbol"`
}

// Options filter a search beyond the free-text query.
type Options struct {
	Detector string
	Status   string
	File     string
	Limit    int
}

// Result is one hit with its relevance score.
type Result struct {
	Finding *finding.Finding
	Score   float64
}

// Open opens or creates the index at path. A corrupt index is discarded
// and recreated; the caller should Sync afterwards to repopulate it.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return create(path)
	}
	idx, err := bleve.Open(path)
	if err == nil {
		return &Index{idx: idx, path: path}, nil
	}
	searchLog.Printf("index at %s unreadable (%v), rebuilding", path, err)
	if rmErr := os.RemoveAll(path); rmErr != nil {
		return nil, fmt.Errorf("remove corrupt index: %w", rmErr)
	}
	return create(path)
}

func create(path string) (*Index, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.New(path, m)
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{idx: idx, path: path}, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	if ix == nil || ix.idx == nil {
		return nil
	}
	return ix.idx.Close()
}

func buildMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer("standard_lower", map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, err
	}

	dm := bleve.NewDocumentMapping()

	summaryField := bleve.NewTextFieldMapping()
	summaryField.Analyzer = "standard_lower"
	summaryField.Store = true
	dm.AddFieldMappingsAt("summary", summaryField)

	symbolField := bleve.NewTextFieldMapping()
	symbolField.Analyzer = "standard_lower"
	dm.AddFieldMappingsAt("symbol", symbolField)

	// Exact-match filter fields.
	for _, name := range []string{"detector", "status", "file", "zone"} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		dm.AddFieldMappingsAt(name, f)
	}

	im.AddDocumentMapping("finding", dm)
	im.DefaultMapping = dm
	return im, nil
}

// Sync replaces the index contents with the current finding set. One batch,
// deletions included: findings purged from state disappear from search.
func (ix *Index) Sync(s *state.State) error {
	ids := make([]string, 0, len(s.Findings))
	for id := range s.Findings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	known := make(map[string]bool, len(ids))
	batch := ix.idx.NewBatch()
	for _, id := range ids {
		f := s.Findings[id]
		known[id] = true
		if err := batch.Index(id, doc{
			Summary:  f.Summary,
			Detector: f.Detector,
			File:     f.File,
			Status:   f.Status,
			Zone:     f.Zone,
			Symbol:   f.Detail.Symbol,
		}); err != nil {
			return fmt.Errorf("index %s: %w", id, err)
		}
	}

	// Remove stale documents.
	all := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 100_000, 0, false)
	if existing, err := ix.idx.Search(all); err == nil {
		for _, hit := range existing.Hits {
			if !known[hit.ID] {
				batch.Delete(hit.ID)
			}
		}
	}
	return ix.idx.Batch(batch)
}

// Search runs a free-text query with optional exact-match filters, then
// resolves hits back to state findings.
func (ix *Index) Search(s *state.State, queryStr string, opts Options) ([]Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var queries []query.Query
	if queryStr != "" {
		queries = append(queries, bleve.NewQueryStringQuery(queryStr))
	}
	for field, value := range map[string]string{
		"detector": opts.Detector,
		"status":   opts.Status,
		"file":     opts.File,
	} {
		if value == "" {
			continue
		}
		q := bleve.NewTermQuery(value)
		q.SetField(field)
		queries = append(queries, q)
	}

	var q query.Query
	switch len(queries) {
	case 0:
		q = bleve.NewMatchAllQuery()
	case 1:
		q = queries[0]
	default:
		q = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var out []Result
	for _, hit := range res.Hits {
		f, ok := s.Findings[hit.ID]
		if !ok {
			continue // index lagging behind a purge
		}
		out = append(out, Result{Finding: f, Score: hit.Score})
	}
	return out, nil
}
