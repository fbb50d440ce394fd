package db

import (
	"context"
	"fmt"

	"lodge-ops/internal/models"

	"github.com/uptrace/bun"
)

var schemaModels = []interface{}{
	(*models.Event)(nil),
	(*models.Member)(nil),
	(*models.SessionRecord)(nil),
	(*models.Attendance)(nil),
	(*models.Account)(nil),
	(*models.FinancialTransaction)(nil),
}

// CreateSchema creates the service tables from the models, including the
// unique (event_id) and (session_record_id, brother_id) constraints. Postgres
// deployments use the SQL files under migrations/ instead; this is for
// sqlite/mysql runs, the seed command and tests.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range schemaModels {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	return nil
}

// DropSchema drops the service tables, children first.
func DropSchema(ctx context.Context, db bun.IDB) error {
	for i := len(schemaModels) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(schemaModels[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", schemaModels[i], err)
		}
	}
	return nil
}
