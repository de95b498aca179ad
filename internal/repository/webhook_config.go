package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

const webhookConfigColumns = `id, social_account_id, platform, webhook_url, secret, events, is_active, metadata, last_verified_at, created_at, updated_at`

type WebhookConfigRepository struct {
	pool PgxPool
}

func NewWebhookConfigRepository(pool PgxPool) *WebhookConfigRepository {
	return &WebhookConfigRepository{pool: pool}
}

func scanWebhookConfig(row pgx.Row) (*domain.WebhookConfig, error) {
	var cfg domain.WebhookConfig
	err := row.Scan(
		&cfg.ID,
		&cfg.SocialAccountID,
		&cfg.Platform,
		&cfg.WebhookURL,
		&cfg.Secret,
		&cfg.Events,
		&cfg.IsActive,
		&cfg.Metadata,
		&cfg.LastVerifiedAt,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *WebhookConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error) {
	query := `
		SELECT ` + webhookConfigColumns + `
		FROM webhook_configs
		WHERE id = $1
	`

	cfg, err := scanWebhookConfig(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook config by id: %w", err)
	}

	return cfg, nil
}

// ListActiveByPlatform returns up to limit active configs, oldest first.
func (r *WebhookConfigRepository) ListActiveByPlatform(ctx context.Context, platform domain.Platform, limit int) ([]*domain.WebhookConfig, error) {
	query := `
		SELECT ` + webhookConfigColumns + `
		FROM webhook_configs
		WHERE platform = $1 AND is_active = true
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("list active webhook configs: %w", err)
	}
	defer rows.Close()

	var configs []*domain.WebhookConfig
	for rows.Next() {
		cfg, err := scanWebhookConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook config: %w", err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook configs: %w", err)
	}

	return configs, nil
}

// Create inserts a config. A secret is generated when none is set, and Meta
// configs get a verify token for the subscription handshake.
func (r *WebhookConfigRepository) Create(ctx context.Context, cfg *domain.WebhookConfig) error {
	query := `
		INSERT INTO webhook_configs (id, social_account_id, platform, webhook_url, secret, events, is_active, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}

	if !cfg.HasSecret() {
		secret, err := domain.GenerateSecret()
		if err != nil {
			return fmt.Errorf("create webhook config: %w", err)
		}
		cfg.Secret = secret
	}

	if cfg.Metadata == nil {
		cfg.Metadata = make(map[string]interface{})
	}
	if cfg.Platform.IsMeta() && cfg.VerifyToken() == "" {
		token, err := domain.GenerateVerifyToken()
		if err != nil {
			return fmt.Errorf("create webhook config: %w", err)
		}
		cfg.Metadata[domain.MetadataVerifyToken] = token
	}

	if cfg.Events == nil {
		cfg.Events = []string{}
	}

	err := r.pool.QueryRow(ctx, query,
		cfg.ID,
		cfg.SocialAccountID,
		cfg.Platform,
		cfg.WebhookURL,
		cfg.Secret,
		cfg.Events,
		cfg.IsActive,
		cfg.Metadata,
	).Scan(&cfg.CreatedAt, &cfg.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConfigExists
		}
		return fmt.Errorf("create webhook config: %w", err)
	}

	return nil
}

func (r *WebhookConfigRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE webhook_configs
		SET is_active = false, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate webhook config: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrConfigNotFound
	}

	return nil
}

func (r *WebhookConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM webhook_configs
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete webhook config: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrConfigNotFound
	}

	return nil
}

// TouchVerified records a successful handshake. It is the only write a
// handshake performs.
func (r *WebhookConfigRepository) TouchVerified(ctx context.Context, id uuid.UUID) (time.Time, error) {
	query := `
		UPDATE webhook_configs
		SET last_verified_at = NOW()
		WHERE id = $1
		RETURNING last_verified_at
	`

	var verifiedAt time.Time
	err := r.pool.QueryRow(ctx, query, id).Scan(&verifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, domain.ErrConfigNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("touch webhook config: %w", err)
	}

	return verifiedAt, nil
}
