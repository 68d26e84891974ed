package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"refcore/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{
		db: db,
	}
}

// SaveProcessed persists a ledger entry and applies its balance credits in
// one database transaction, flipping commissions_processed in the same step
// so a duplicated request can never double-credit. Credits whose recipient
// wallet does not exist are skipped and recorded on the row as warnings; the
// entry itself still commits.
func (r *TransactionRepository) SaveProcessed(ctx context.Context, t *models.Transaction, credits []models.Credit) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error("Error starting transaction ", err)
		return nil, err
	}

	t.CommissionsProcessed = true
	t.CreditWarnings = pq.StringArray{}

	query, args, err := tx.BindNamed(
		"insert into transaction(id, amount, fee, buyer_id, seller_id, buyer_referrer, seller_referrer, vip_beneficiary, buyer_commission, seller_commission, vip_bonus, system_fee, seller_rebate, commissions_processed, credit_warnings, created_at) values (:id, :amount, :fee, :buyer_id, :seller_id, :buyer_referrer, :seller_referrer, :vip_beneficiary, :buyer_commission, :seller_commission, :vip_bonus, :system_fee, :seller_rebate, :commissions_processed, :credit_warnings, :created_at)",
		t,
	)
	if err != nil {
		log.Error("Error creating query ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error rolling back ", er)
			return nil, er
		}
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.Error("Error inserting transaction ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error rolling back ", er)
			return nil, er
		}
		return nil, err
	}

	warnings := make([]string, 0)
	for _, c := range credits {
		res, err := tx.ExecContext(
			ctx,
			"update usr set commission_balance = commission_balance + $1 where wallet_address=$2",
			c.Amount,
			c.Wallet,
		)
		if err != nil {
			log.Error("Error crediting recipient ", err)
			if er := tx.Rollback(); er != nil {
				log.Error("Error rolling back ", er)
				return nil, er
			}
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			if er := tx.Rollback(); er != nil {
				log.Error("Error rolling back ", er)
				return nil, er
			}
			return nil, err
		}
		if affected == 0 {
			warnings = append(warnings, c.Role)
		}
	}

	if len(warnings) > 0 {
		if _, err := tx.ExecContext(
			ctx,
			"update transaction set credit_warnings=$1 where id=$2",
			pq.StringArray(warnings),
			t.Id,
		); err != nil {
			log.Error("Error recording credit warnings ", err)
			if er := tx.Rollback(); er != nil {
				log.Error("Error rolling back ", er)
				return nil, er
			}
			return nil, err
		}
		t.CreditWarnings = pq.StringArray(warnings)
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error committing transaction ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error rolling back ", er)
			return nil, er
		}
		return nil, err
	}

	return warnings, nil
}

// SumByRole aggregates lifetime commissions for a wallet. Each role field is
// summed independently; a wallet holding several roles on one entry collects
// each of them.
func (r *TransactionRepository) SumByRole(ctx context.Context, walletAddress string) (*models.RoleSums, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var sums models.RoleSums
	err := r.db.GetContext(
		ctx,
		&sums,
		`select
			coalesce(sum(case when buyer_referrer = $1 then buyer_commission else 0 end), 0)  as buyer_commission,
			coalesce(sum(case when seller_referrer = $1 then seller_commission else 0 end), 0) as seller_commission,
			coalesce(sum(case when vip_beneficiary = $1 then vip_bonus else 0 end), 0)         as vip_bonus
		from transaction
		where buyer_referrer = $1 or seller_referrer = $1 or vip_beneficiary = $1`,
		walletAddress,
	)
	if err != nil {
		log.Error("Failed sum commissions ", err)
		return nil, err
	}

	return &sums, nil
}

func (r *TransactionRepository) FindRecentByWallet(ctx context.Context, walletAddress string, limit int) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	txs := make([]models.Transaction, 0)
	if err := r.db.SelectContext(
		ctx,
		&txs,
		"select * from transaction where buyer_referrer = $1 or seller_referrer = $1 or vip_beneficiary = $1 order by created_at desc limit $2",
		walletAddress,
		limit,
	); err != nil {
		log.Error("Failed find recent transactions ", err)
		return nil, err
	}

	return txs, nil
}

func (r *TransactionRepository) FindById(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var t models.Transaction
	err := r.db.GetContext(ctx, &t, "select * from transaction where id=$1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// FindWithWarnings lists processed entries that still carry skipped credits.
func (r *TransactionRepository) FindWithWarnings(ctx context.Context, limit int) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	txs := make([]models.Transaction, 0)
	if err := r.db.SelectContext(
		ctx,
		&txs,
		"select * from transaction where commissions_processed and cardinality(credit_warnings) > 0 order by created_at limit $1",
		limit,
	); err != nil {
		log.Error("Failed find transactions with warnings ", err)
		return nil, err
	}

	return txs, nil
}

// RetryCredits re-attempts the skipped credits of one entry. Credit and
// warning removal happen in the same database transaction, so a warning is
// only dropped once its credit has landed. Returns the warnings still open.
func (r *TransactionRepository) RetryCredits(ctx context.Context, id uuid.UUID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error("Error starting transaction ", err)
		return nil, err
	}

	var t models.Transaction
	if err := tx.GetContext(ctx, &t, "select * from transaction where id=$1 for update", id); err != nil {
		log.Error("Failed to lock transaction row ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error rolling back ", er)
			return nil, er
		}
		return nil, err
	}

	remaining := make([]string, 0)
	for _, role := range t.CreditWarnings {
		wallet, amount, ok := t.CreditForRole(role)
		if !ok || amount.IsZero() {
			continue
		}
		res, err := tx.ExecContext(
			ctx,
			"update usr set commission_balance = commission_balance + $1 where wallet_address=$2",
			amount,
			wallet,
		)
		if err != nil {
			log.Error("Error re-crediting recipient ", err)
			if er := tx.Rollback(); er != nil {
				log.Error("Error rolling back ", er)
				return nil, er
			}
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			if er := tx.Rollback(); er != nil {
				log.Error("Error rolling back ", er)
				return nil, er
			}
			return nil, err
		}
		if affected == 0 {
			remaining = append(remaining, role)
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		"update transaction set credit_warnings=$1 where id=$2",
		pq.StringArray(remaining),
		id,
	); err != nil {
		log.Error("Error updating credit warnings ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error rolling back ", er)
			return nil, er
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error committing transaction ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error rolling back ", er)
			return nil, er
		}
		return nil, err
	}

	return remaining, nil
}
