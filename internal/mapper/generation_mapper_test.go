package mapper

import (
	"testing"
	"time"

	"gruenerator-be/internal/entity"
	"gruenerator-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestGenerationMapper(t *testing.T) {
	m := NewGenerationMapper()
	now := time.Now()

	e := &entity.Generation{
		Id:        uuid.New(),
		UserId:    "u1",
		SessionId: "abc_12345678",
		Source:    entity.GenerationSourceInteractive,
		Kind:      "antrag",
		Status:    entity.GenerationStatusCompleted,
		Content:   "Antragstext",
		Answers:   map[string]map[string]interface{}{"round1": {"q1": "Option A"}},
		CreatedAt: now,
	}

	mod := m.ToModel(e)
	assert.JSONEq(t, `{"round1":{"q1":"Option A"}}`, string(mod.Answers))
	assert.JSONEq(t, `{}`, string(mod.Metadata), "nil metadata is stored as an empty object")
	assert.False(t, mod.DeletedAt.Valid)

	back := m.ToEntity(mod)
	require.NotNil(t, back)
	assert.Equal(t, e.Id, back.Id)
	assert.Equal(t, "Option A", back.Answers["round1"]["q1"])
	assert.Nil(t, back.UpdatedAt)
	assert.Nil(t, back.DeletedAt)

	deleted := m.ToEntity(&model.Generation{
		Metadata:  datatypes.JSON(`{"kind":"zitat"}`),
		UpdatedAt: now,
		DeletedAt: gorm.DeletedAt{Time: now, Valid: true},
	})
	require.NotNil(t, deleted.DeletedAt)
	require.NotNil(t, deleted.UpdatedAt)
	assert.Equal(t, "zitat", deleted.Metadata["kind"])

	assert.Nil(t, m.ToEntity(nil))
	assert.Nil(t, m.ToModel(nil))
}
