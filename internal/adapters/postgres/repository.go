package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ficmart/cart-payment-processor/internal/core/domain"
	"github.com/ficmart/cart-payment-processor/internal/core/ports"
)

// Repository implements ports.Repository against PostgreSQL. The zero
// value is never usable; construct with NewRepository.
type Repository struct {
	pool *pgxpool.Pool
	exec Executor
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, exec: pool}
}

// WithTx runs fn against a Repository bound to a single transaction,
// committing on a nil return and rolling back otherwise.
func (r *Repository) WithTx(ctx context.Context, fn func(tx ports.Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	txRepo := &Repository{pool: r.pool, exec: tx}
	if err := fn(txRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) LockCartPaymentForUpdate(ctx context.Context, id uuid.UUID) (*domain.CartPayment, error) {
	row := r.exec.QueryRow(ctx, cartPaymentSelectColumns+" FROM cart_payments WHERE id = $1 FOR UPDATE", id)
	cp, err := scanCartPayment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return cp, err
}

func (r *Repository) GetCartPaymentByID(ctx context.Context, id uuid.UUID) (*domain.CartPayment, error) {
	row := r.exec.QueryRow(ctx, cartPaymentSelectColumns+" FROM cart_payments WHERE id = $1", id)
	cp, err := scanCartPayment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return cp, err
}

func (r *Repository) CreateCartPayment(ctx context.Context, cp *domain.CartPayment) error {
	metadata, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("marshal cart payment metadata: %w", err)
	}

	var payoutAccountID *string
	var applicationFeeAmount *int64
	if cp.SplitPayment != nil {
		payoutAccountID = &cp.SplitPayment.PayoutAccountID
		applicationFeeAmount = &cp.SplitPayment.ApplicationFeeAmount
	}

	_, err = r.exec.Exec(ctx, `
		INSERT INTO cart_payments (
			id, payer_id, payment_method_id, amount, delay_capture, currency, country,
			reference_id, reference_type, client_description, statement_descriptor,
			payout_account_id, application_fee_amount, metadata, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		cp.ID, cp.PayerID, cp.PaymentMethodID, cp.Amount, cp.DelayCapture, cp.Currency, cp.Country,
		cp.ReferenceID, cp.ReferenceType, cp.ClientDescription, cp.StatementDescriptor,
		payoutAccountID, applicationFeeAmount, metadata, cp.CreatedAt, cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create cart payment: %w", err)
	}
	return nil
}

func (r *Repository) UpdateCartPaymentAmount(ctx context.Context, id uuid.UUID, amount int64) error {
	_, err := r.exec.Exec(ctx, `UPDATE cart_payments SET amount = $1, updated_at = $2 WHERE id = $3`, amount, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update cart payment amount: %w", err)
	}
	return nil
}

const cartPaymentSelectColumns = `SELECT
	id, payer_id, payment_method_id, amount, delay_capture, currency, country,
	reference_id, reference_type, client_description, statement_descriptor,
	payout_account_id, application_fee_amount, metadata, created_at, updated_at`

func scanCartPayment(row pgx.Row) (*domain.CartPayment, error) {
	var cp domain.CartPayment
	var metadata []byte
	var payoutAccountID *string
	var applicationFeeAmount *int64

	err := row.Scan(
		&cp.ID, &cp.PayerID, &cp.PaymentMethodID, &cp.Amount, &cp.DelayCapture, &cp.Currency, &cp.Country,
		&cp.ReferenceID, &cp.ReferenceType, &cp.ClientDescription, &cp.StatementDescriptor,
		&payoutAccountID, &applicationFeeAmount, &metadata, &cp.CreatedAt, &cp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal cart payment metadata: %w", err)
		}
	}
	if payoutAccountID != nil {
		cp.SplitPayment = &domain.SplitPayment{
			PayoutAccountID:      *payoutAccountID,
			ApplicationFeeAmount: *applicationFeeAmount,
		}
	}
	return &cp, nil
}

const paymentIntentSelectColumns = `SELECT
	id, cart_payment_id, idempotency_key, amount, amount_capturable, amount_received,
	currency, country, capture_method, status, legacy_consumer_charge_id,
	captured_at, cancelled_at, capture_after, created_at, updated_at`

func scanPaymentIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	var pi domain.PaymentIntent
	err := row.Scan(
		&pi.ID, &pi.CartPaymentID, &pi.IdempotencyKey, &pi.Amount, &pi.AmountCapturable, &pi.AmountReceived,
		&pi.Currency, &pi.Country, &pi.CaptureMethod, &pi.Status, &pi.LegacyConsumerChargeID,
		&pi.CapturedAt, &pi.CancelledAt, &pi.CaptureAfter, &pi.CreatedAt, &pi.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pi, nil
}

func (r *Repository) GetPaymentIntentsForCartPayment(ctx context.Context, cartPaymentID uuid.UUID) ([]*domain.PaymentIntent, error) {
	rows, err := r.exec.Query(ctx, paymentIntentSelectColumns+` FROM payment_intents WHERE cart_payment_id = $1 ORDER BY created_at ASC`, cartPaymentID)
	if err != nil {
		return nil, fmt.Errorf("query payment intents: %w", err)
	}
	defer rows.Close()

	var intents []*domain.PaymentIntent
	for rows.Next() {
		pi, err := scanPaymentIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, pi)
	}
	return intents, rows.Err()
}

func (r *Repository) GetPaymentIntentForIdempotencyKey(ctx context.Context, cartPaymentID uuid.UUID, key string) (*domain.PaymentIntent, error) {
	row := r.exec.QueryRow(ctx, paymentIntentSelectColumns+` FROM payment_intents WHERE cart_payment_id = $1 AND idempotency_key = $2`, cartPaymentID, key)
	pi, err := scanPaymentIntent(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return pi, err
}

func (r *Repository) GetPaymentIntentByIdempotencyKeyGlobal(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	row := r.exec.QueryRow(ctx, paymentIntentSelectColumns+` FROM payment_intents WHERE idempotency_key = $1 ORDER BY created_at ASC LIMIT 1`, key)
	pi, err := scanPaymentIntent(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return pi, err
}

func (r *Repository) GetPaymentIntentByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	row := r.exec.QueryRow(ctx, paymentIntentSelectColumns+` FROM payment_intents WHERE id = $1`, id)
	pi, err := scanPaymentIntent(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return pi, err
}

func (r *Repository) CreatePaymentIntent(ctx context.Context, pi *domain.PaymentIntent) error {
	_, err := r.exec.Exec(ctx, `
		INSERT INTO payment_intents (
			id, cart_payment_id, idempotency_key, amount, amount_capturable, amount_received,
			currency, country, capture_method, status, legacy_consumer_charge_id,
			captured_at, cancelled_at, capture_after, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		pi.ID, pi.CartPaymentID, pi.IdempotencyKey, pi.Amount, pi.AmountCapturable, pi.AmountReceived,
		pi.Currency, pi.Country, pi.CaptureMethod, pi.Status, pi.LegacyConsumerChargeID,
		pi.CapturedAt, pi.CancelledAt, pi.CaptureAfter, pi.CreatedAt, pi.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewCartPaymentUpdateConflictError(pi.CartPaymentID.String())
		}
		return fmt.Errorf("create payment intent: %w", err)
	}
	return nil
}

func (r *Repository) UpdatePaymentIntent(ctx context.Context, pi *domain.PaymentIntent) error {
	_, err := r.exec.Exec(ctx, `
		UPDATE payment_intents SET
			amount = $1, amount_capturable = $2, amount_received = $3, status = $4,
			captured_at = $5, cancelled_at = $6, updated_at = $7
		WHERE id = $8`,
		pi.Amount, pi.AmountCapturable, pi.AmountReceived, pi.Status,
		pi.CapturedAt, pi.CancelledAt, pi.UpdatedAt, pi.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment intent: %w", err)
	}
	return nil
}

const pgpPaymentIntentSelectColumns = `SELECT
	id, payment_intent_id, resource_id, status, amount, amount_capturable, amount_received,
	currency, charge_resource_id, error_code, error_message, created_at, updated_at`

func scanPgpPaymentIntent(row pgx.Row) (*domain.PgpPaymentIntent, error) {
	var p domain.PgpPaymentIntent
	err := row.Scan(
		&p.ID, &p.PaymentIntentID, &p.ResourceID, &p.Status, &p.Amount, &p.AmountCapturable, &p.AmountReceived,
		&p.Currency, &p.ChargeResourceID, &p.ErrorCode, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindPgpPaymentIntents(ctx context.Context, paymentIntentID uuid.UUID) ([]*domain.PgpPaymentIntent, error) {
	rows, err := r.exec.Query(ctx, pgpPaymentIntentSelectColumns+` FROM pgp_payment_intents WHERE payment_intent_id = $1 ORDER BY created_at ASC`, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("query pgp payment intents: %w", err)
	}
	defer rows.Close()

	var out []*domain.PgpPaymentIntent
	for rows.Next() {
		p, err := scanPgpPaymentIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) CreatePgpPaymentIntent(ctx context.Context, p *domain.PgpPaymentIntent) error {
	_, err := r.exec.Exec(ctx, `
		INSERT INTO pgp_payment_intents (
			id, payment_intent_id, resource_id, status, amount, amount_capturable, amount_received,
			currency, charge_resource_id, error_code, error_message, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.PaymentIntentID, p.ResourceID, p.Status, p.Amount, p.AmountCapturable, p.AmountReceived,
		p.Currency, p.ChargeResourceID, p.ErrorCode, p.ErrorMessage, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create pgp payment intent: %w", err)
	}
	return nil
}

func (r *Repository) UpdatePgpPaymentIntent(ctx context.Context, p *domain.PgpPaymentIntent) error {
	_, err := r.exec.Exec(ctx, `
		UPDATE pgp_payment_intents SET
			resource_id = $1, status = $2, amount_capturable = $3, amount_received = $4,
			charge_resource_id = $5, error_code = $6, error_message = $7, updated_at = $8
		WHERE id = $9`,
		p.ResourceID, p.Status, p.AmountCapturable, p.AmountReceived,
		p.ChargeResourceID, p.ErrorCode, p.ErrorMessage, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update pgp payment intent: %w", err)
	}
	return nil
}

func (r *Repository) AppendAdjustmentHistory(ctx context.Context, h *domain.PaymentIntentAdjustmentHistory) error {
	_, err := r.exec.Exec(ctx, `
		INSERT INTO payment_intent_adjustment_history (
			id, payment_intent_id, idempotency_key, amount_original, amount_delta, amount, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (payment_intent_id, idempotency_key) DO NOTHING`,
		h.ID, h.PaymentIntentID, h.IdempotencyKey, h.AmountOriginal, h.AmountDelta, h.Amount, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append adjustment history: %w", err)
	}
	return nil
}

const refundSelectColumns = `SELECT id, payment_intent_id, idempotency_key, amount, status, created_at, updated_at`

func scanRefund(row pgx.Row) (*domain.Refund, error) {
	var ref domain.Refund
	if err := row.Scan(&ref.ID, &ref.PaymentIntentID, &ref.IdempotencyKey, &ref.Amount, &ref.Status, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *Repository) GetRefundForIdempotencyKey(ctx context.Context, paymentIntentID uuid.UUID, key string) (*domain.Refund, error) {
	row := r.exec.QueryRow(ctx, refundSelectColumns+` FROM refunds WHERE payment_intent_id = $1 AND idempotency_key = $2`, paymentIntentID, key)
	ref, err := scanRefund(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ref, err
}

func (r *Repository) SumRefundedAmount(ctx context.Context, paymentIntentID uuid.UUID) (int64, error) {
	var sum int64
	err := r.exec.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM refunds
		WHERE payment_intent_id = $1 AND status IN ('processing', 'succeeded')`, paymentIntentID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum refunded amount: %w", err)
	}
	return sum, nil
}

func (r *Repository) CreateRefund(ctx context.Context, ref *domain.Refund) error {
	_, err := r.exec.Exec(ctx, `
		INSERT INTO refunds (id, payment_intent_id, idempotency_key, amount, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ref.ID, ref.PaymentIntentID, ref.IdempotencyKey, ref.Amount, ref.Status, ref.CreatedAt, ref.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewCartPaymentUpdateConflictError(ref.PaymentIntentID.String())
		}
		return fmt.Errorf("create refund: %w", err)
	}
	return nil
}

func (r *Repository) UpdateRefund(ctx context.Context, ref *domain.Refund) error {
	_, err := r.exec.Exec(ctx, `UPDATE refunds SET status = $1, updated_at = $2 WHERE id = $3`, ref.Status, ref.UpdatedAt, ref.ID)
	if err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	return nil
}

func (r *Repository) CreatePgpRefund(ctx context.Context, pr *domain.PgpRefund) error {
	_, err := r.exec.Exec(ctx, `
		INSERT INTO pgp_refunds (id, refund_id, resource_id, status, amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		pr.ID, pr.RefundID, pr.ResourceID, pr.Status, pr.Amount, pr.CreatedAt, pr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create pgp refund: %w", err)
	}
	return nil
}

func (r *Repository) UpdatePgpRefund(ctx context.Context, pr *domain.PgpRefund) error {
	_, err := r.exec.Exec(ctx, `UPDATE pgp_refunds SET resource_id = $1, status = $2, updated_at = $3 WHERE id = $4`,
		pr.ResourceID, pr.Status, pr.UpdatedAt, pr.ID,
	)
	if err != nil {
		return fmt.Errorf("update pgp refund: %w", err)
	}
	return nil
}

func (r *Repository) FindExistingLegacyCharge(ctx context.Context, consumerChargeID int64, idempotencyKey string) (*domain.LegacyPayment, error) {
	consumerCharge, err := r.getLegacyConsumerChargeByID(ctx, consumerChargeID)
	if err != nil {
		return nil, err
	}
	if consumerCharge == nil {
		return nil, nil
	}

	row := r.exec.QueryRow(ctx, legacyStripeChargeSelectColumns+` FROM legacy_stripe_charges WHERE consumer_charge_id = $1 AND idempotency_key = $2`, consumerChargeID, idempotencyKey)
	stripeCharge, err := scanLegacyStripeCharge(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.LegacyPayment{ConsumerCharge: consumerCharge, StripeCharge: stripeCharge}, nil
}

const legacyConsumerChargeSelectColumns = `SELECT id, original_total, country_id, payer_id, consumer_id, created_at`

func scanLegacyConsumerCharge(row pgx.Row) (*domain.LegacyConsumerCharge, error) {
	var c domain.LegacyConsumerCharge
	if err := row.Scan(&c.ID, &c.OriginalTotal, &c.CountryID, &c.PayerID, &c.ConsumerID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) getLegacyConsumerChargeByID(ctx context.Context, id int64) (*domain.LegacyConsumerCharge, error) {
	row := r.exec.QueryRow(ctx, legacyConsumerChargeSelectColumns+` FROM legacy_consumer_charges WHERE id = $1`, id)
	c, err := scanLegacyConsumerCharge(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *Repository) GetLegacyConsumerChargeForCartPayment(ctx context.Context, cartPaymentID uuid.UUID) (*domain.LegacyConsumerCharge, error) {
	row := r.exec.QueryRow(ctx, legacyConsumerChargeSelectColumns+` FROM legacy_consumer_charges c
		JOIN payment_intents pi ON pi.legacy_consumer_charge_id = c.id
		WHERE pi.cart_payment_id = $1
		ORDER BY c.created_at ASC LIMIT 1`, cartPaymentID)
	c, err := scanLegacyConsumerCharge(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *Repository) GetLegacyConsumerChargeByDDChargeID(ctx context.Context, ddChargeID int64) (*domain.LegacyConsumerCharge, error) {
	return r.getLegacyConsumerChargeByID(ctx, ddChargeID)
}

// GetCartPaymentIDForLegacyConsumerCharge follows a legacy consumer charge
// back to the cart payment whose payment intents carry it as
// legacy_consumer_charge_id.
func (r *Repository) GetCartPaymentIDForLegacyConsumerCharge(ctx context.Context, consumerChargeID int64) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.exec.QueryRow(ctx, `
		SELECT cart_payment_id FROM payment_intents
		WHERE legacy_consumer_charge_id = $1
		ORDER BY created_at ASC LIMIT 1`, consumerChargeID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find cart payment for legacy consumer charge %d: %w", consumerChargeID, err)
	}
	return id, nil
}

func (r *Repository) CreateLegacyConsumerCharge(ctx context.Context, c *domain.LegacyConsumerCharge) error {
	err := r.exec.QueryRow(ctx, `
		INSERT INTO legacy_consumer_charges (original_total, country_id, payer_id, consumer_id, created_at)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		c.OriginalTotal, c.CountryID, c.PayerID, c.ConsumerID, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create legacy consumer charge: %w", err)
	}
	return nil
}

func (r *Repository) UpdateLegacyConsumerChargeIdentifiers(ctx context.Context, c *domain.LegacyConsumerCharge) error {
	_, err := r.exec.Exec(ctx, `
		UPDATE legacy_consumer_charges SET country_id = $1, consumer_id = $2, payer_id = $3 WHERE id = $4`,
		c.CountryID, c.ConsumerID, c.PayerID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update legacy consumer charge identifiers: %w", err)
	}
	return nil
}

const legacyStripeChargeSelectColumns = `SELECT
	id, consumer_charge_id, idempotency_key, amount, amount_refunded, status,
	stripe_charge_id, error_code, error_description, created_at, updated_at`

func scanLegacyStripeCharge(row pgx.Row) (*domain.LegacyStripeCharge, error) {
	var c domain.LegacyStripeCharge
	err := row.Scan(
		&c.ID, &c.ConsumerChargeID, &c.IdempotencyKey, &c.Amount, &c.AmountRefunded, &c.Status,
		&c.StripeChargeID, &c.ErrorCode, &c.ErrorDescription, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) CreateLegacyStripeCharge(ctx context.Context, c *domain.LegacyStripeCharge) error {
	err := r.exec.QueryRow(ctx, `
		INSERT INTO legacy_stripe_charges (
			consumer_charge_id, idempotency_key, amount, amount_refunded, status,
			stripe_charge_id, error_code, error_description, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		c.ConsumerChargeID, c.IdempotencyKey, c.Amount, c.AmountRefunded, c.Status,
		c.StripeChargeID, c.ErrorCode, c.ErrorDescription, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create legacy stripe charge: %w", err)
	}
	return nil
}

func (r *Repository) UpdateLegacyStripeCharge(ctx context.Context, c *domain.LegacyStripeCharge) error {
	_, err := r.exec.Exec(ctx, `
		UPDATE legacy_stripe_charges SET
			amount = $1, amount_refunded = $2, status = $3, stripe_charge_id = $4,
			error_code = $5, error_description = $6, updated_at = $7
		WHERE id = $8`,
		c.Amount, c.AmountRefunded, c.Status, c.StripeChargeID, c.ErrorCode, c.ErrorDescription, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update legacy stripe charge: %w", err)
	}
	return nil
}

func (r *Repository) GetLegacyStripeChargeForPaymentIntent(ctx context.Context, paymentIntentID uuid.UUID) (*domain.LegacyStripeCharge, error) {
	row := r.exec.QueryRow(ctx, legacyStripeChargeSelectColumns+` FROM legacy_stripe_charges lsc
		JOIN payment_intents pi ON pi.legacy_consumer_charge_id = lsc.consumer_charge_id
		WHERE pi.id = $1 AND lsc.idempotency_key = pi.idempotency_key`, paymentIntentID)
	c, err := scanLegacyStripeCharge(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// FindPaymentIntentsThatRequireCaptureBeforeCutoff opens a server-side
// cursor over intents due for deferred capture and wraps it as a
// CaptureCursor so the sweeper never has to load the whole batch at once.
func (r *Repository) FindPaymentIntentsThatRequireCaptureBeforeCutoff(ctx context.Context, cutoff time.Time, batchSize int) (ports.CaptureCursor, error) {
	rows, err := r.exec.Query(ctx, paymentIntentSelectColumns+` FROM payment_intents
		WHERE status = $1 AND capture_after IS NOT NULL AND capture_after <= $2
		ORDER BY capture_after ASC LIMIT $3`,
		domain.PaymentIntentStatusRequiresCapture, cutoff, batchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query capture-due payment intents: %w", err)
	}
	return &captureCursor{rows: rows}, nil
}

// captureCursor wraps a pgx.Rows in the style of database/sql's Rows: a
// single pass, non-restartable stream.
type captureCursor struct {
	rows    pgx.Rows
	current *domain.PaymentIntent
	err     error
}

func (c *captureCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	pi, err := scanPaymentIntent(c.rows)
	if err != nil {
		c.err = err
		return false
	}
	c.current = pi
	return true
}

func (c *captureCursor) PaymentIntent() *domain.PaymentIntent { return c.current }
func (c *captureCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}
func (c *captureCursor) Close() { c.rows.Close() }
