package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/value"
	"dkp_bot/pkg/errcodes"
)

const pgUniqueViolation = "23505"

const dealColumns = `id, deal_id, project, house, object_type, object, facing,
	days_limit, transfer_completed, created_on, updated_on`

type DealRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewDealRepository создаёт новый экземпляр репозитория сделок.
func NewDealRepository(db *sqlx.DB) *DealRepository {
	return &DealRepository{db: db, now: time.Now}
}

// withTx выполняет функцию в транзакции.
func (r *DealRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailed, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return domain.WrapError(
				fmt.Errorf("%w; rollback: %v", err, rbErr),
				errcodes.PersistenceFailed,
				"transaction failed",
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailed, "failed to commit")
	}

	return nil
}

func (r *DealRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReadActiveIDs возвращает непереданные сделки проекта с их сроками.
func (r *DealRepository) ReadActiveIDs(ctx context.Context, project string) ([]entity.DealLimit, error) {
	query := `
		SELECT deal_id, days_limit
		FROM deals
		WHERE project = $1 AND NOT transfer_completed
		ORDER BY deal_id`

	var schemas []dealLimitSchema
	if err := r.db.SelectContext(ctx, &schemas, query, project); err != nil {
		return nil, domain.WrapError(err, errcodes.PersistenceFailed, "failed to read active deals")
	}

	limits := make([]entity.DealLimit, 0, len(schemas))
	for _, s := range schemas {
		limits = append(limits, entity.DealLimit{DealID: s.DealID, DaysLimit: s.DaysLimit})
	}

	return limits, nil
}

// Create сохраняет новую сделку. Повтор (project, deal_id) даёт ошибку
// DealAlreadyExists, молча такие строки не перезаписываются.
func (r *DealRepository) Create(ctx context.Context, deal entity.Deal) (entity.Deal, error) {
	schema := fromDeal(deal)
	schema.TransferCompleted = false
	if schema.UpdatedOn.IsZero() {
		schema.UpdatedOn = r.now()
	}

	query := `
		INSERT INTO deals (
			deal_id, project, house, object_type, object, facing,
			days_limit, transfer_completed, created_on, updated_on
		) VALUES (
			:deal_id, :project, :house, :object_type, :object, :facing,
			:days_limit, :transfer_completed, :created_on, :updated_on
		)
		RETURNING id`

	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return entity.Deal{}, domain.WrapError(err, errcodes.PersistenceFailed, "failed to prepare insert")
	}
	defer stmt.Close()

	if err := stmt.GetContext(ctx, &schema.ID, schema); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return entity.Deal{}, domain.WrapError(err, errcodes.DealAlreadyExists,
				fmt.Sprintf("deal %d already stored for project %q", deal.DealID, deal.Project))
		}
		return entity.Deal{}, domain.WrapError(err, errcodes.PersistenceFailed, "failed to insert deal")
	}

	return schema.toDomain(), nil
}

// MarkNotCompleted снимает флаг передачи. Возвращает true только если строка
// существовала и была помечена переданной.
func (r *DealRepository) MarkNotCompleted(ctx context.Context, project string, dealID int64) (bool, error) {
	query := `
		UPDATE deals
		SET transfer_completed = FALSE, updated_on = $1
		WHERE project = $2 AND deal_id = $3 AND transfer_completed`

	res, err := r.db.ExecContext(ctx, query, r.now(), project, dealID)
	if err != nil {
		return false, domain.WrapError(err, errcodes.PersistenceFailed, "failed to mark deal not completed")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, domain.WrapError(err, errcodes.PersistenceFailed, "failed to check affected rows")
	}

	return rows > 0, nil
}

// MarkCompleted помечает сделки переданными и возвращает их актуальные
// строки. Уже переданные строки не трогаются, но тоже возвращаются.
func (r *DealRepository) MarkCompleted(ctx context.Context, project string, dealIDs []int64) ([]entity.Deal, error) {
	if len(dealIDs) == 0 {
		return nil, nil
	}

	var schemas []dealSchema

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		update, args, err := sqlx.In(`
			UPDATE deals
			SET transfer_completed = TRUE, updated_on = ?
			WHERE project = ? AND deal_id IN (?) AND NOT transfer_completed`,
			r.now(), project, dealIDs)
		if err != nil {
			return domain.WrapError(err, errcodes.PersistenceFailed, "failed to build query")
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(update), args...); err != nil {
			return domain.WrapError(err, errcodes.PersistenceFailed, "failed to mark deals completed")
		}

		selectQuery, args, err := sqlx.In(`
			SELECT `+dealColumns+`
			FROM deals
			WHERE project = ? AND deal_id IN (?)
			ORDER BY deal_id`,
			project, dealIDs)
		if err != nil {
			return domain.WrapError(err, errcodes.PersistenceFailed, "failed to build query")
		}

		if err := tx.SelectContext(ctx, &schemas, tx.Rebind(selectQuery), args...); err != nil {
			return domain.WrapError(err, errcodes.PersistenceFailed, "failed to read completed deals")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return toDomainDeals(schemas), nil
}

// SetDaysLimit обновляет срок передачи по данным CRM.
func (r *DealRepository) SetDaysLimit(ctx context.Context, project string, dealID int64, days int) error {
	query := `
		UPDATE deals
		SET days_limit = $1, updated_on = $2
		WHERE project = $3 AND deal_id = $4`

	res, err := r.db.ExecContext(ctx, query, days, r.now(), project, dealID)
	if err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailed, "failed to update days limit")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailed, "failed to check affected rows")
	}

	if rows == 0 {
		return domain.NewErrorf(errcodes.DealNotFound, "deal %d not found in project %q", dealID, project)
	}

	return nil
}

// Get возвращает сделку по ключу.
func (r *DealRepository) Get(ctx context.Context, project string, dealID int64) (entity.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE project = $1 AND deal_id = $2`

	var schema dealSchema
	if err := r.db.GetContext(ctx, &schema, query, project, dealID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Deal{}, domain.NewErrorf(errcodes.DealNotFound, "deal %d not found in project %q", dealID, project)
		}
		return entity.Deal{}, domain.WrapError(err, errcodes.PersistenceFailed, "failed to get deal")
	}

	return schema.toDomain(), nil
}

// List выбирает сделки по фильтру в порядке проекта, дома и номера.
func (r *DealRepository) List(ctx context.Context, filter entity.DealFilter) ([]entity.Deal, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Project != "" {
		args = append(args, filter.Project)
		conds = append(conds, fmt.Sprintf("project = $%d", len(args)))
	}
	if filter.ObjectType != value.ObjectTypeUnknown {
		args = append(args, filter.ObjectType.String())
		conds = append(conds, fmt.Sprintf("object_type = $%d", len(args)))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		conds = append(conds, fmt.Sprintf("transfer_completed = $%d", len(args)))
	}

	query := `SELECT ` + dealColumns + ` FROM deals`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY project, house, object_type, object`

	var schemas []dealSchema
	if err := r.db.SelectContext(ctx, &schemas, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.PersistenceFailed, "failed to list deals")
	}

	return toDomainDeals(schemas), nil
}

// ListHouses возвращает дома, в которых есть непереданные объекты типа.
func (r *DealRepository) ListHouses(ctx context.Context, project string, objectType value.ObjectType) ([]int, error) {
	query := `
		SELECT DISTINCT house
		FROM deals
		WHERE project = $1 AND object_type = $2 AND NOT transfer_completed
		ORDER BY house`

	var houses []int
	if err := r.db.SelectContext(ctx, &houses, query, project, objectType.String()); err != nil {
		return nil, domain.WrapError(err, errcodes.PersistenceFailed, "failed to list houses")
	}

	return houses, nil
}

// ListObjects возвращает номера непереданных объектов в доме.
func (r *DealRepository) ListObjects(
	ctx context.Context,
	project string,
	objectType value.ObjectType,
	house int,
) ([]int, error) {
	query := `
		SELECT object
		FROM deals
		WHERE project = $1 AND object_type = $2 AND house = $3 AND NOT transfer_completed
		ORDER BY object`

	var objects []int
	if err := r.db.SelectContext(ctx, &objects, query, project, objectType.String(), house); err != nil {
		return nil, domain.WrapError(err, errcodes.PersistenceFailed, "failed to list objects")
	}

	return objects, nil
}

// FindByObject ищет непереданную сделку по объекту.
func (r *DealRepository) FindByObject(
	ctx context.Context,
	project string,
	objectType value.ObjectType,
	house, object int,
) (entity.Deal, error) {
	query := `
		SELECT ` + dealColumns + `
		FROM deals
		WHERE project = $1 AND object_type = $2 AND house = $3 AND object = $4 AND NOT transfer_completed
		ORDER BY created_on DESC
		LIMIT 1`

	var schema dealSchema
	if err := r.db.GetContext(ctx, &schema, query, project, objectType.String(), house, object); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Deal{}, domain.NewError(errcodes.DealNotFound, "deal not found for object")
		}
		return entity.Deal{}, domain.WrapError(err, errcodes.PersistenceFailed, "failed to find deal")
	}

	return schema.toDomain(), nil
}

// Stats считает непереданные объекты по проектам и типам.
func (r *DealRepository) Stats(ctx context.Context) ([]entity.ObjectStat, error) {
	query := `
		SELECT project, object_type, count(*) AS count
		FROM deals
		WHERE NOT transfer_completed
		GROUP BY project, object_type
		ORDER BY project, object_type`

	var schemas []objectStatSchema
	if err := r.db.SelectContext(ctx, &schemas, query); err != nil {
		return nil, domain.WrapError(err, errcodes.PersistenceFailed, "failed to count deals")
	}

	stats := make([]entity.ObjectStat, 0, len(schemas))
	for _, s := range schemas {
		stats = append(stats, entity.ObjectStat{
			Project:    s.Project,
			ObjectType: value.ObjectType(s.ObjectType),
			Count:      s.Count,
		})
	}

	return stats, nil
}
