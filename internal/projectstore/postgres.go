package projectstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/libra-dev/deploy-engine/internal/apperr"
	"github.com/libra-dev/deploy-engine/internal/domain"
)

// PostgresStore is the Postgres-backed Store: a squirrel-built SELECT, and
// a dynamic partial UPDATE that only sets the columns actually present in
// the request.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wires a Store against db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByIDAndOrg(ctx context.Context, projectID, organizationID string) (*domain.Project, error) {
	query, args, err := sqrl.Select(
		"id", "organization_id", "is_active", "message_history",
		"production_deploy_url", "workflow_id", "deployment_status",
		"knowledge", "created_at", "updated_at",
	).
		From("project").
		Where(sqrl.Eq{"id": projectID, "organization_id": organizationID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("projectstore: build select: %w", err)
	}

	var p domain.Project

	var (
		deployURL *string
		workflow  *string
		knowledge *string
	)

	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.OrganizationID, &p.IsActive, &p.MessageHistory,
		&deployURL, &workflow, &p.DeploymentStatus,
		&knowledge, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("projectstore: find %s: %w", projectID, err)
	}

	p.ProductionDeployURL = deployURL
	p.WorkflowID = workflow
	p.Knowledge = knowledge

	return &p, nil
}

func (s *PostgresStore) Update(ctx context.Context, projectID string, u domain.ProjectUpdate) error {
	builder := sqrl.Update("project").
		Set("updated_at", sqrl.Expr("now()")).
		Where(sqrl.Eq{"id": projectID}).
		PlaceholderFormat(sqrl.Dollar)

	touched := false

	if u.ProductionDeployURL != nil {
		builder = builder.Set("production_deploy_url", *u.ProductionDeployURL)
		touched = true
	}

	if u.WorkflowID != nil {
		builder = builder.Set("workflow_id", *u.WorkflowID)
		touched = true
	}

	if u.DeploymentStatus != nil {
		builder = builder.Set("deployment_status", string(*u.DeploymentStatus))
		touched = true
	}

	if !touched {
		return nil
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("projectstore: build update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("projectstore: update %s: %w", projectID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("projectstore: rows affected for %s: %w", projectID, err)
	}

	if rows == 0 {
		return apperr.ErrProjectNotFound
	}

	return nil
}
