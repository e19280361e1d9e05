package mapper

import (
	"encoding/json"
	"time"

	"gruenerator-be/internal/entity"
	"gruenerator-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GenerationMapper struct{}

func NewGenerationMapper() *GenerationMapper {
	return &GenerationMapper{}
}

func (m *GenerationMapper) ToEntity(g *model.Generation) *entity.Generation {
	if g == nil {
		return nil
	}

	var deletedAt *time.Time
	if g.DeletedAt.Valid {
		t := g.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !g.UpdatedAt.IsZero() {
		t := g.UpdatedAt
		updatedAt = &t
	}

	var answers map[string]map[string]interface{}
	if len(g.Answers) > 0 {
		_ = json.Unmarshal(g.Answers, &answers)
	}
	var metadata map[string]interface{}
	if len(g.Metadata) > 0 {
		_ = json.Unmarshal(g.Metadata, &metadata)
	}

	return &entity.Generation{
		Id:        g.Id,
		UserId:    g.UserId,
		SessionId: g.SessionId,
		Source:    entity.GenerationSource(g.Source),
		Kind:      g.Kind,
		Thema:     g.Thema,
		Status:    entity.GenerationStatus(g.Status),
		Content:   g.Content,
		Error:     g.Error,
		Answers:   answers,
		Metadata:  metadata,
		CreatedAt: g.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

func (m *GenerationMapper) ToEntities(models []*model.Generation) []*entity.Generation {
	out := make([]*entity.Generation, len(models))
	for i, g := range models {
		out[i] = m.ToEntity(g)
	}
	return out
}

func (m *GenerationMapper) ToModel(e *entity.Generation) *model.Generation {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	}
	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.Generation{
		Id:        e.Id,
		UserId:    e.UserId,
		SessionId: e.SessionId,
		Source:    string(e.Source),
		Kind:      e.Kind,
		Thema:     e.Thema,
		Status:    string(e.Status),
		Content:   e.Content,
		Error:     e.Error,
		Answers:   toJSON(e.Answers),
		Metadata:  toJSON(e.Metadata),
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

func toJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
