package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"refcore/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type VipRepository struct {
	db *sqlx.DB
}

func NewVipRepository(db *sqlx.DB) *VipRepository {
	return &VipRepository{
		db: db,
	}
}

func (r *VipRepository) Find(ctx context.Context, userId int64) (*models.VipStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var st models.VipStatus
	err := r.db.GetContext(ctx, &st, "select * from vip_status where user_id=$1", userId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("Failed find vip status ", err)
		return nil, err
	}

	return &st, nil
}

// Upsert creates the status row on first stake and replaces amount and date
// on later stakes; stakes never stack.
func (r *VipRepository) Upsert(ctx context.Context, st *models.VipStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error(err)
		return err
	}
	if _, err := tx.NamedExecContext(
		ctx,
		"insert into vip_status (user_id, is_active, staked_amount, last_stake_date) values (:user_id, :is_active, :staked_amount, :last_stake_date) on conflict (user_id) do update set is_active = excluded.is_active, staked_amount = excluded.staked_amount, last_stake_date = excluded.last_stake_date",
		st,
	); err != nil {
		log.Error("Failed upsert vip status: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return er
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction")
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return er
		}
		return err
	}

	return nil
}

// FindActive reports which of the given users currently hold active VIP
// status; one call covers a whole tree level.
func (r *VipRepository) FindActive(ctx context.Context, userIds []int64) (map[int64]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	active := make(map[int64]bool, len(userIds))
	if len(userIds) == 0 {
		return active, nil
	}

	var ids []int64
	if err := r.db.SelectContext(
		ctx,
		&ids,
		"select user_id from vip_status where is_active and user_id = any($1)",
		pq.Array(userIds),
	); err != nil {
		log.Error("Failed find active vip statuses ", err)
		return nil, err
	}

	for _, id := range ids {
		active[id] = true
	}

	return active, nil
}
