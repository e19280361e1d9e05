package service

import (
	"context"
	"unicode/utf8"

	"gruenerator-be/internal/entity"
	"gruenerator-be/internal/repository/specification"
	"gruenerator-be/internal/repository/unitofwork"
	"gruenerator-be/pkg/enrichment"
)

const knowledgeContentRunes = 1500

// historyKnowledge serves a user's earlier completed generations on the
// same topic as enrichment knowledge.
type historyKnowledge struct {
	uowFactory unitofwork.RepositoryFactory
	limit      int
}

func NewHistoryKnowledgeSource(uowFactory unitofwork.RepositoryFactory, limit int) enrichment.KnowledgeSource {
	if limit <= 0 {
		limit = 3
	}
	return &historyKnowledge{uowFactory: uowFactory, limit: limit}
}

func (h *historyKnowledge) Lookup(ctx context.Context, userID, query string) ([]enrichment.Knowledge, error) {
	if query == "" {
		return nil, nil
	}
	repo := h.uowFactory.NewUnitOfWork(ctx).GenerationRepository()
	generations, err := repo.FindAll(ctx,
		specification.ByUserID{UserID: userID},
		specification.ByStatus{Status: string(entity.GenerationStatusCompleted)},
		specification.ByThemaWords{Query: query},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: h.limit},
	)
	if err != nil {
		return nil, err
	}

	out := make([]enrichment.Knowledge, 0, len(generations))
	for _, g := range generations {
		content := g.Content
		if utf8.RuneCountInString(content) > knowledgeContentRunes {
			content = string([]rune(content)[:knowledgeContentRunes])
		}
		out = append(out, enrichment.Knowledge{
			Title:   g.Thema,
			Content: content,
			Source:  "history:" + g.Kind,
		})
	}
	return out, nil
}
