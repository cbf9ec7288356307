package tasks

import (
	"errors"
	"fmt"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/shared"
)

// CacheQueryItem is one lookup in a batch cache query. RecordType may be
// empty, matching any record type for the key.
type CacheQueryItem struct {
	RecordType    string `json:"recordType,omitempty"`
	SubrecordType string `json:"subrecordType"`
	SourceText    string `json:"sourceText"`
	TargetLang    string `json:"targetLang"`
}

// CacheQueryResult is the answer to one CacheQueryItem.
type CacheQueryResult struct {
	CacheQueryItem
	Hit        bool   `json:"hit"`
	TargetText string `json:"targetText,omitempty"`
}

// CacheSaveItem is one translation pair in a batch cache save.
type CacheSaveItem struct {
	RecordType    string `json:"recordType,omitempty"`
	SubrecordType string `json:"subrecordType"`
	SourceText    string `json:"sourceText"`
	TargetText    string `json:"targetText"`
}

// CacheQuery answers a batch of cache lookups. Misses are reported per item,
// never as an error.
func (o *Orchestrator) CacheQuery(items []CacheQueryItem) ([]CacheQueryResult, error) {
	results := make([]CacheQueryResult, 0, len(items))

	for _, item := range items {
		result := CacheQueryResult{CacheQueryItem: item}

		entry, err := o.cacheRepo.Lookup(item.RecordType, item.SubrecordType, item.SourceText, item.TargetLang)
		if err != nil {
			if !errors.Is(err, shared.ErrCacheMiss) {
				return nil, err
			}
		} else {
			result.Hit = true
			result.TargetText = entry.TargetText()
		}

		results = append(results, result)
	}

	return results, nil
}

// CacheSave upserts a batch of translation pairs under the task's target
// language. Existing keys are overwritten with the newest text; saving the
// same key twice keeps exactly one entry.
func (o *Orchestrator) CacheSave(taskID, targetLang string, items []CacheSaveItem) (int, error) {
	if targetLang == "" {
		return 0, fmt.Errorf("%w: target language is required", shared.ErrInvalidInput)
	}

	saved := 0
	for _, item := range items {
		if item.SourceText == "" {
			continue
		}

		entry := models.NewCacheEntry(
			item.RecordType,
			item.SubrecordType,
			item.SourceText,
			targetLang,
			item.TargetText,
			taskID,
		)
		if err := o.cacheRepo.Upsert(entry); err != nil {
			return saved, err
		}
		saved++
	}

	return saved, nil
}
