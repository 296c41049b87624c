package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

// AssetRepositoryPG implements domain.AssetRepository using PostgreSQL.
type AssetRepositoryPG struct {
	db infra.SQLExecutor
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(db infra.SQLExecutor) *AssetRepositoryPG {
	return &AssetRepositoryPG{db: db}
}

// GetAsset returns the asset for id, or domain.ErrNotFound.
func (r *AssetRepositoryPG) GetAsset(ctx context.Context, id domain.AssetID) (*domain.Asset, error) {
	row := r.db.QueryRow(ctx, sqlinline.QSelectImageByID, id.Customer, id.Space, id.Identifier)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return asset, nil
}

// ExecuteQuery evaluates the filter, excluding not-for-delivery assets.
// Results are ordered by orderBy when set, otherwise by number_1, with the
// asset id as final tiebreak so projections are deterministic.
func (r *AssetRepositoryPG) ExecuteQuery(ctx context.Context, q *domain.AssetQuery, orderBy domain.QueryField) ([]domain.Asset, error) {
	clauses := []string{"not not_for_delivery"}
	args := []any{}
	add := func(column, cast string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("%s = $%d::%s", column, len(args), cast))
	}

	add("customer", "int", q.Customer)
	if q.Space != nil {
		add("space", "int", *q.Space)
	}
	if q.SpaceName != nil {
		args = append(args, *q.SpaceName)
		clauses = append(clauses, fmt.Sprintf(
			"space in (select id from spaces where customer = $1::int and name = $%d::text)", len(args)))
	}
	if q.String1 != nil {
		add("string_1", "text", *q.String1)
	}
	if q.String2 != nil {
		add("string_2", "text", *q.String2)
	}
	if q.String3 != nil {
		add("string_3", "text", *q.String3)
	}
	if q.Number1 != nil {
		add("number_1", "bigint", *q.Number1)
	}
	if q.Number2 != nil {
		add("number_2", "bigint", *q.Number2)
	}
	if q.Number3 != nil {
		add("number_3", "bigint", *q.Number3)
	}

	query := sqlinline.QSelectImagesBase +
		"\nwhere " + strings.Join(clauses, "\n  and ") +
		"\norder by " + orderColumn(orderBy) + " asc, id asc;"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

func orderColumn(f domain.QueryField) string {
	switch f {
	case domain.QueryFieldString1:
		return "string_1"
	case domain.QueryFieldString2:
		return "string_2"
	case domain.QueryFieldString3:
		return "string_3"
	case domain.QueryFieldNumber2:
		return "number_2"
	case domain.QueryFieldNumber3:
		return "number_3"
	default:
		return "number_1"
	}
}

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var (
		a     domain.Asset
		roles string
	)
	err := row.Scan(
		&a.ID.Customer,
		&a.ID.Space,
		&a.ID.Identifier,
		&a.Family,
		&a.MediaType,
		&a.Width,
		&a.Height,
		&a.MaxUnauthorised,
		&roles,
		&a.NotForDelivery,
		&a.Batch,
		&a.Origin,
		&a.String1,
		&a.String2,
		&a.String3,
		&a.Number1,
		&a.Number2,
		&a.Number3,
	)
	if err != nil {
		return nil, err
	}
	a.Roles = splitRoles(roles)
	return &a, nil
}

// splitRoles parses the comma-separated roles column; empty means open.
func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	if len(roles) == 0 {
		return nil
	}
	return roles
}
