package publish

import (
	"context"
	"strings"

	"github.com/andresuchdata/zenodo-publish/internal/zenodo"
	"github.com/andresuchdata/zenodo-publish/pkg/logger"
)

const (
	defaultPageSize = 100
	searchSort      = "mostrecent"
)

// SeriesIndex is the title -> record mapping built from one search, kept in
// response order. A repeated title keeps its first position and its last id.
type SeriesIndex struct {
	order []string
	ids   map[string]string
}

// NewSeriesIndex indexes records in the order given.
func NewSeriesIndex(records []zenodo.RecordSummary) *SeriesIndex {
	idx := &SeriesIndex{ids: make(map[string]string, len(records))}
	for _, r := range records {
		if _, seen := idx.ids[r.Title]; !seen {
			idx.order = append(idx.order, r.Title)
		}
		idx.ids[r.Title] = r.ID
	}
	return idx
}

// Len returns the number of distinct titles.
func (s *SeriesIndex) Len() int {
	return len(s.order)
}

// Match finds the record for key. A title equal to key wins; otherwise the
// first title containing key, in index order, is used. An empty key never
// matches.
func (s *SeriesIndex) Match(key string) (zenodo.RecordSummary, bool) {
	if key == "" {
		return zenodo.RecordSummary{}, false
	}
	if id, ok := s.ids[key]; ok {
		return zenodo.RecordSummary{ID: id, Title: key}, true
	}
	for _, title := range s.order {
		if strings.Contains(title, key) {
			return zenodo.RecordSummary{ID: s.ids[title], Title: title}, true
		}
	}
	return zenodo.RecordSummary{}, false
}

// Locator runs the series search.
type Locator struct {
	api       API
	community string
	pageSize  int
}

// Locate searches the community's latest records. Any failure is logged and
// yields an empty index, so the run carries on as a new series.
func (l *Locator) Locate(ctx context.Context, fileName string) *SeriesIndex {
	size := l.pageSize
	if size <= 0 {
		size = defaultPageSize
	}

	records, err := l.api.SearchRecords(ctx, zenodo.RecordQuery{
		Community: l.community,
		Size:      size,
		Sort:      searchSort,
	})
	if err != nil {
		logger.Log.Warn().Err(err).Str("file", fileName).
			Msg("could not process archive records, continuing with new upload")
		return NewSeriesIndex(nil)
	}

	idx := NewSeriesIndex(records)
	for _, title := range idx.order {
		logger.Log.Debug().Str("record_title", title).Str("record", idx.ids[title]).Msg("title-id mapping")
	}
	return idx
}
