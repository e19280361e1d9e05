package specification

import (
	"strings"

	"gorm.io/gorm"
)

type ByUserID struct {
	UserID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByKind filters by generation kind (requestType or agent). Empty matches all.
type ByKind struct {
	Kind string
}

func (s ByKind) Apply(db *gorm.DB) *gorm.DB {
	if s.Kind == "" {
		return db
	}
	return db.Where("kind = ?", s.Kind)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByThemaWords matches generations whose thema contains any of the longer
// words of Query, case-insensitively.
type ByThemaWords struct {
	Query string
}

const (
	minThemaWordLen = 4
	maxThemaWords   = 5
)

func (s ByThemaWords) Apply(db *gorm.DB) *gorm.DB {
	var clauses []string
	var args []interface{}
	for _, w := range strings.Fields(s.Query) {
		if len([]rune(w)) < minThemaWordLen {
			continue
		}
		clauses = append(clauses, "thema ILIKE ?")
		args = append(args, "%"+escapeLike(w)+"%")
		if len(clauses) == maxThemaWords {
			break
		}
	}
	if len(clauses) == 0 {
		return db
	}
	return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
