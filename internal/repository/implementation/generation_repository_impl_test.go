package implementation

import (
	"context"
	"os"
	"testing"
	"time"

	"gruenerator-be/internal/entity"
	"gruenerator-be/internal/model"
	"gruenerator-be/internal/repository/specification"
	"gruenerator-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationRepositoryPostgres(t *testing.T) {
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set, skipping postgres integration test")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Generation{}))

	repo := NewGenerationRepository(db)
	ctx := context.Background()
	userID := "it-" + uuid.NewString()

	themen := []string{"Radwege in Kiel", "Klimaschutz", "Sichere Radwege_100%"}
	for i, kind := range []string{"antrag", "zitat", "antrag"} {
		g := &entity.Generation{
			UserId:    userID,
			SessionId: uuid.NewString()[:8],
			Source:    entity.GenerationSourceInteractive,
			Kind:      kind,
			Thema:     themen[i],
			Status:    entity.GenerationStatusCompleted,
			Content:   "text",
			Metadata:  map[string]interface{}{"n": i},
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, g))
		assert.NotEqual(t, uuid.Nil, g.Id)
		t.Cleanup(func() { _ = repo.Delete(context.Background(), g.Id) })
	}

	count, err := repo.Count(ctx, specification.ByUserID{UserID: userID}, specification.ByKind{Kind: "antrag"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	list, err := repo.FindAll(ctx,
		specification.ByUserID{UserID: userID},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 2},
	)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "antrag", list[0].Kind)
	assert.EqualValues(t, 2, list[0].Metadata["n"])

	byThema, err := repo.FindAll(ctx,
		specification.ByUserID{UserID: userID},
		specification.ByStatus{Status: string(entity.GenerationStatusCompleted)},
		specification.ByThemaWords{Query: "radwege am Hafen"},
	)
	require.NoError(t, err)
	assert.Len(t, byThema, 2)

	literal, err := repo.Count(ctx, specification.ByUserID{UserID: userID}, specification.ByThemaWords{Query: "_100%"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), literal)

	missing, err := repo.FindOne(ctx, specification.ByID{ID: uuid.New()})
	require.NoError(t, err)
	assert.Nil(t, missing)
}
