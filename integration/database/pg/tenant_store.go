package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hiredeck/domainkit/core/sso"
	"github.com/hiredeck/domainkit/core/tenant"
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TenantStore implements tenant.Store on PostgreSQL. Each transition is a
// single UPDATE, so concurrent readers never see a half-applied state.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a store backed by pool.
func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

// db returns the transaction from ctx when one is attached, the pool
// otherwise.
func (s *TenantStore) db(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return s.pool
}

const tenantColumns = `tenant_id, domain, domain_verified, domain_verification_date,
	sso_provider, sso_settings, ssl_enabled, ssl_cert_path, ssl_key_path, ssl_expiry, contact_email`

func scanState(row pgx.Row) (*tenant.State, error) {
	var st tenant.State
	err := row.Scan(
		&st.TenantID,
		&st.Domain,
		&st.DomainVerified,
		&st.DomainVerificationDate,
		&st.SSOProvider,
		&st.SSOSettings,
		&st.SSLEnabled,
		&st.SSLCertPath,
		&st.SSLKeyPath,
		&st.SSLExpiry,
		&st.ContactEmail,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// Create inserts an empty domain record for a freshly provisioned tenant.
// Inserting an existing tenant is a no-op.
func (s *TenantStore) Create(ctx context.Context, tenantID uuid.UUID, contactEmail string) error {
	_, err := s.db(ctx).Exec(ctx, `
		INSERT INTO tenant_domains (tenant_id, contact_email)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id) DO NOTHING`,
		tenantID, contactEmail)
	return err
}

func (s *TenantStore) Get(ctx context.Context, tenantID uuid.UUID) (*tenant.State, error) {
	row := s.db(ctx).QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenant_domains WHERE tenant_id = $1`, tenantID)
	return scanState(row)
}

func (s *TenantStore) FindByDomain(ctx context.Context, domain string) (*tenant.State, error) {
	if domain == "" {
		return nil, tenant.ErrNotFound
	}
	row := s.db(ctx).QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenant_domains WHERE domain = $1`, domain)
	return scanState(row)
}

// SaveDomain binds the domain and clears verification and SSL state in one
// statement. The partial unique index on domain enforces global uniqueness.
func (s *TenantStore) SaveDomain(ctx context.Context, tenantID uuid.UUID, domain string) error {
	tag, err := s.db(ctx).Exec(ctx, `
		UPDATE tenant_domains SET
			domain = $2,
			domain_verified = FALSE,
			domain_verification_date = NULL,
			ssl_enabled = FALSE,
			ssl_cert_path = '',
			ssl_key_path = '',
			ssl_expiry = NULL,
			updated_at = now()
		WHERE tenant_id = $1`,
		tenantID, domain)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return tenant.ErrDomainTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *TenantStore) MarkVerified(ctx context.Context, tenantID uuid.UUID, at time.Time) error {
	tag, err := s.db(ctx).Exec(ctx, `
		UPDATE tenant_domains SET
			domain_verified = TRUE,
			domain_verification_date = $2,
			updated_at = now()
		WHERE tenant_id = $1`,
		tenantID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *TenantStore) EnableCertificate(ctx context.Context, tenantID uuid.UUID, certPath, keyPath string, expiry time.Time) error {
	tag, err := s.db(ctx).Exec(ctx, `
		UPDATE tenant_domains SET
			ssl_enabled = TRUE,
			ssl_cert_path = $2,
			ssl_key_path = $3,
			ssl_expiry = $4,
			updated_at = now()
		WHERE tenant_id = $1`,
		tenantID, certPath, keyPath, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *TenantStore) SaveSSO(ctx context.Context, tenantID uuid.UUID, provider string, settings sso.Settings) error {
	if settings == nil {
		settings = sso.Settings{}
	}
	tag, err := s.db(ctx).Exec(ctx, `
		UPDATE tenant_domains SET
			sso_provider = $2,
			sso_settings = $3,
			updated_at = now()
		WHERE tenant_id = $1`,
		tenantID, provider, settings)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *TenantStore) DetachDomain(ctx context.Context, tenantID uuid.UUID) error {
	tag, err := s.db(ctx).Exec(ctx, `
		UPDATE tenant_domains SET
			domain = '',
			domain_verified = FALSE,
			domain_verification_date = NULL,
			ssl_enabled = FALSE,
			ssl_cert_path = '',
			ssl_key_path = '',
			ssl_expiry = NULL,
			updated_at = now()
		WHERE tenant_id = $1`,
		tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *TenantStore) ListCertificateEnabled(ctx context.Context) ([]*tenant.State, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT `+tenantColumns+` FROM tenant_domains WHERE ssl_enabled ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*tenant.State
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}
