package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/infrastructure/models"
	"coinledger.backend/pkg/utils"
)

// TransactionRepository implements ledger transaction data operations
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create persists a new ledger entry. The entry is validated first so an
// invariant-violating transaction never reaches the store.
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	m := toTransactionModel(tx)
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	tx.ID = m.ID
	tx.CreatedAt = m.CreatedAt
	tx.UpdatedAt = m.UpdatedAt
	return nil
}

// Update persists all mutable fields of an existing entry.
func (r *TransactionRepository) Update(ctx context.Context, tx *entities.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	m := toTransactionModel(tx)
	m.UpdatedAt = time.Now()
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", tx.ID).
		Updates(map[string]interface{}{
			"status":     m.Status,
			"amount":     m.Amount,
			"fee":        m.Fee,
			"chain_fee":  m.ChainFee,
			"tx_id":      m.TxID,
			"block":      m.Block,
			"timestamp":  m.Timestamp,
			"comment":    m.Comment,
			"error":      m.Error,
			"nonce":      m.Nonce,
			"tags":       m.Tags,
			"updated_at": m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// GetByID gets a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	var m models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Currency").Preload("Address").
		Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toTransactionEntity(&m), nil
}

// GetDeposit finds the deposit entry for the (address, txid) dedup key.
func (r *TransactionRepository) GetDeposit(ctx context.Context, addressID uuid.UUID, txid string) (*entities.Transaction, error) {
	var m models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("category = ? AND address_id = ? AND tx_id = ?", entities.TxDeposit, addressID, txid).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toTransactionEntity(&m), nil
}

// GetByNonce returns every leg carrying the given confirmation nonce.
func (r *TransactionRepository) GetByNonce(ctx context.Context, nonce string) ([]*entities.Transaction, error) {
	var ms []models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("nonce = ? AND nonce <> ''", nonce).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toTransactionEntities(ms), nil
}

// GetByParentID returns the credit leg linked to a move debit leg.
func (r *TransactionRepository) GetByParentID(ctx context.Context, parentID uuid.UUID) (*entities.Transaction, error) {
	var m models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("parent_id = ?", parentID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toTransactionEntity(&m), nil
}

// GetByUserCurrency returns all entries for one user and currency.
func (r *TransactionRepository) GetByUserCurrency(ctx context.Context, userID, currencyID uuid.UUID) ([]*entities.Transaction, error) {
	var ms []models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND currency_id = ?", userID, currencyID).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toTransactionEntities(ms), nil
}

// ListByUser lists a user's transactions with pagination
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, p utils.PaginationParams) ([]*entities.Transaction, int64, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)
	var total int64
	if err := db.Model(&models.Transaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("Currency").Preload("Address").
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if p.Limit > 0 {
		q = q.Limit(p.Limit).Offset(p.CalculateOffset())
	}
	var ms []models.Transaction
	if err := q.Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return toTransactionEntities(ms), total, nil
}

// PendingWithdrawals returns execution-eligible withdrawals for a
// currency. Entries tagged executing are excluded: they were handed to an
// adapter once already and may have been paid out.
func (r *TransactionRepository) PendingWithdrawals(ctx context.Context, currencyID uuid.UUID, limit int) ([]*entities.Transaction, error) {
	q := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Address").
		Where("category = ? AND status = ? AND currency_id = ?", entities.TxWithdrawal, entities.TxPending, currencyID).
		Where("amount < 0 AND fee <= 0").
		Where("address_id IS NOT NULL").
		Where("nonce = ''").
		Where("tags NOT LIKE ?", "%"+entities.TagExecuting+"%").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ms []models.Transaction
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	return toTransactionEntities(ms), nil
}

// ExecutingWithdrawals returns pending withdrawals still tagged executing,
// the leftovers of a batch interrupted mid-execution.
func (r *TransactionRepository) ExecutingWithdrawals(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error) {
	var ms []models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Address").
		Where("category = ? AND status = ? AND currency_id = ?", entities.TxWithdrawal, entities.TxPending, currencyID).
		Where("tags LIKE ?", "%"+entities.TagExecuting+"%").
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toTransactionEntities(ms), nil
}

// PendingDeposits returns pending deposits with a known txid.
func (r *TransactionRepository) PendingDeposits(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error) {
	var ms []models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Address").
		Where("category = ? AND status = ? AND currency_id = ?", entities.TxDeposit, entities.TxPending, currencyID).
		Where("tx_id IS NOT NULL AND tx_id <> ''").
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toTransactionEntities(ms), nil
}

// PendingMoveDebits returns confirmable pending move debit legs.
func (r *TransactionRepository) PendingMoveDebits(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error) {
	var ms []models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("category = ? AND status = ? AND currency_id = ?", entities.TxMove, entities.TxPending, currencyID).
		Where("amount <= 0").
		Where("nonce = ''").
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toTransactionEntities(ms), nil
}

// SoftDelete trashes a transaction (administrative workflows only).
func (r *TransactionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Delete(&models.Transaction{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func toTransactionModel(t *entities.Transaction) *models.Transaction {
	m := &models.Transaction{
		ID:         t.ID,
		Category:   string(t.Category),
		Status:     string(t.Status),
		UserID:     t.UserID,
		CurrencyID: t.CurrencyID,
		AddressID:  t.AddressID,
		Amount:     t.Amount,
		Fee:        t.Fee,
		Timestamp:  t.Timestamp,
		ParentID:   t.ParentID,
		Comment:    t.Comment,
		Error:      t.Error,
		Nonce:      t.Nonce,
		Tags:       strings.Join(t.Tags, ","),
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if t.ChainFee.Valid {
		v := t.ChainFee.Int64
		m.ChainFee = &v
	}
	if t.TxID.Valid {
		v := t.TxID.String
		m.TxID = &v
	}
	if t.Block.Valid {
		v := t.Block.Int64
		m.Block = &v
	}
	return m
}

func toTransactionEntity(m *models.Transaction) *entities.Transaction {
	t := &entities.Transaction{
		ID:         m.ID,
		Category:   entities.TxCategory(m.Category),
		Status:     entities.TxStatus(m.Status),
		UserID:     m.UserID,
		CurrencyID: m.CurrencyID,
		AddressID:  m.AddressID,
		Amount:     m.Amount,
		Fee:        m.Fee,
		ChainFee:   null.Int64FromPtr(m.ChainFee),
		TxID:       null.StringFromPtr(m.TxID),
		Block:      null.Int64FromPtr(m.Block),
		Timestamp:  m.Timestamp,
		ParentID:   m.ParentID,
		Comment:    m.Comment,
		Error:      m.Error,
		Nonce:      m.Nonce,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.Tags != "" {
		t.Tags = strings.Split(m.Tags, ",")
	}
	if m.Currency.ID != uuid.Nil {
		t.Currency = toCurrencyEntity(&m.Currency)
	}
	if m.Address != nil && m.Address.ID != uuid.Nil {
		t.Address = toAddressEntity(m.Address)
	}
	return t
}

func toTransactionEntities(ms []models.Transaction) []*entities.Transaction {
	out := make([]*entities.Transaction, 0, len(ms))
	for i := range ms {
		out = append(out, toTransactionEntity(&ms[i]))
	}
	return out
}
