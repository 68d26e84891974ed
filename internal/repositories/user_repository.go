package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"refcore/internal/config"
	"refcore/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var log = config.InitLogger()

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// NextReferralIndex takes the next value of the store-owned referral index
// sequence. The sequence serializes concurrent registrations; gaps from
// failed inserts are fine, duplicates are impossible.
func (u *UserRepository) NextReferralIndex(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var idx int64
	if err := u.db.QueryRowxContext(ctx, "select nextval('referral_index_seq')").Scan(&idx); err != nil {
		log.Error("Failed to take next referral index: ", err)
		return 0, err
	}

	return idx, nil
}

func (u *UserRepository) Save(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := u.db.Beginx()
	if err != nil {
		log.Error(err)
		return err
	}
	query, args, err := tx.BindNamed(
		"insert into usr (wallet_address, wallet_type, referral_code, referral_index, parent_ref, referrer_id, commission_balance, created_at) values (:wallet_address, :wallet_type, :referral_code, :referral_index, :parent_ref, :referrer_id, :commission_balance, :created_at) returning id",
		user,
	)
	if err != nil {
		log.Error("Failed insert user ", err)
		return err
	}

	err = tx.QueryRowContext(ctx, query, args...).Scan(&user.Id)
	if err != nil {
		log.Error("Failed save user ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return er
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		log.Error("Failed to commit transaction")
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", err)
			return er
		}
		return err
	}

	return nil
}

func (u *UserRepository) FindByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var user models.User
	err := u.db.GetContext(
		ctx,
		&user,
		"select * from usr where wallet_address=$1",
		walletAddress,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("Failed find user by wallet ", err)
		return nil, err
	}

	return &user, nil
}

func (u *UserRepository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var user models.User
	err := u.db.GetContext(
		ctx,
		&user,
		"select * from usr where referral_code=$1",
		code,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("Failed find user by referral code ", err)
		return nil, err
	}

	return &user, nil
}

func (u *UserRepository) FindById(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var user models.User
	err := u.db.GetContext(
		ctx,
		&user,
		"select * from usr where id=$1",
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindReferrals returns the users directly recruited by the given user, in
// insertion order.
func (u *UserRepository) FindReferrals(ctx context.Context, referrerId int64) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	users := make([]models.User, 0)
	if err := u.db.SelectContext(
		ctx,
		&users,
		"select * from usr where referrer_id = $1 order by id",
		referrerId,
	); err != nil {
		log.Error("Failed find referrals ", err)
		return nil, err
	}

	return users, nil
}

// FindReferralsOf fetches the direct referrals of every listed user in one
// query; one call resolves a whole tree level.
func (u *UserRepository) FindReferralsOf(ctx context.Context, referrerIds []int64) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	users := make([]models.User, 0)
	if len(referrerIds) == 0 {
		return users, nil
	}

	if err := u.db.SelectContext(
		ctx,
		&users,
		"select * from usr where referrer_id = any($1) order by referrer_id, id",
		pq.Array(referrerIds),
	); err != nil {
		log.Error("Failed find referrals of level ", err)
		return nil, err
	}

	return users, nil
}

func (u *UserRepository) CountReferrals(ctx context.Context, referrerId int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var count int
	if err := u.db.QueryRowxContext(
		ctx,
		"select count(*) from usr where referrer_id = $1",
		referrerId,
	).Scan(&count); err != nil {
		log.Error("Failed count referrals ", err)
		return 0, err
	}

	return count, nil
}

// CreditBalance applies an additive balance update in a single statement at
// the store; concurrent credits to the same wallet never lose updates.
// Returns false when no user exists for the wallet.
func (u *UserRepository) CreditBalance(ctx context.Context, walletAddress string, amount decimal.Decimal) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := u.db.ExecContext(
		ctx,
		"update usr set commission_balance = commission_balance + $1 where wallet_address=$2",
		amount,
		walletAddress,
	)
	if err != nil {
		log.Error("Failed credit balance ", err)
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
