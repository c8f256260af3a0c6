package sessionmgr

import (
	"context"

	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/store"
)

// StoreCatalog implements CatalogQuery directly against the questions
// table via the Store Adapter, by source filter and limit. The result
// ordering is unspecified; callers must not rely on it beyond random
// post-selection, which the selection engine already does.
type StoreCatalog struct {
	adapter store.Adapter
}

func NewStoreCatalog(adapter store.Adapter) *StoreCatalog {
	return &StoreCatalog{adapter: adapter}
}

func (c *StoreCatalog) QueryQuestions(ctx context.Context, source models.SessionSource, limit int) ([]string, error) {
	filter := store.Record{"status": string(models.QuestionActive)}
	if source.Category != "" {
		filter["category"] = source.Category
	}
	if source.Provider != "" {
		filter["provider"] = source.Provider
	}
	if source.Certificate != "" {
		filter["certificate"] = source.Certificate
	}
	if source.Language != "" {
		filter["language"] = source.Language
	}

	recs, err := c.adapter.Query(ctx, store.TableQuestions, store.QueryOptions{
		Filter: filter,
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		if id, ok := rec["_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
