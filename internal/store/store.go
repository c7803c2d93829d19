// Package store persists generated reports so they can be listed, previewed
// and exported again later.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/config"
)

var ErrNotFound = errors.New("store: report not found")

const DefaultListLimit = 50

type Store interface {
	Save(ctx context.Context, r businesscase.ReportData) error
	Get(ctx context.Context, id string) (businesscase.ReportData, error)
	// List returns the newest reports first. limit <= 0 means DefaultListLimit.
	List(ctx context.Context, limit int) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Summary is the listing view of a stored report.
type Summary struct {
	ID          string                  `json:"id"`
	ProjectName string                  `json:"projectName"`
	CompanyName string                  `json:"companyName"`
	Mode        businesscase.ReportMode `json:"mode"`
	NPV         float64                 `json:"npv"`
	CreatedAt   time.Time               `json:"createdAt"`
}

func Summarize(r businesscase.ReportData) Summary {
	return Summary{
		ID:          r.ID,
		ProjectName: r.Input.ProjectName,
		CompanyName: r.Input.CompanyName,
		Mode:        r.Mode,
		NPV:         r.FinancialMetrics.NPV,
		CreatedAt:   r.CreatedAt,
	}
}

// Open returns the store selected by cfg.Driver.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteStore(cfg.Path)
	case "file":
		return NewFileStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func checkID(id string) error {
	if id == "" {
		return eris.New("store: report id is required")
	}
	return nil
}

// newestFirst sorts by creation time descending, then by id for stable output,
// and applies the limit.
func newestFirst(list []Summary, limit int) []Summary {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}
