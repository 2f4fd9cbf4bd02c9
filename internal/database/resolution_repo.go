package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
)

// GiftResolutionRepository records gift-channel resolution outcomes for audit.
type GiftResolutionRepository interface {
	Record(ctx context.Context, res *models.GiftResolution) error
	GetByGuild(ctx context.Context, guildID string, limit int) ([]models.GiftResolution, error)
}

type giftResolutionRepo struct {
	pool *pgxpool.Pool
}

func NewGiftResolutionRepository(pool *pgxpool.Pool) GiftResolutionRepository {
	return &giftResolutionRepo{pool: pool}
}

func (r *giftResolutionRepo) Record(ctx context.Context, res *models.GiftResolution) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO gift_resolutions (id, guild_id, owner_id, member_id, channel_id, outcome, created, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID, res.GuildID, res.OwnerID, res.MemberID, res.ChannelID, res.Outcome, res.Created, res.CreatedAt,
	)
	return err
}

func (r *giftResolutionRepo) GetByGuild(ctx context.Context, guildID string, limit int) ([]models.GiftResolution, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, guild_id, owner_id, member_id, channel_id, outcome, created, created_at
		 FROM gift_resolutions WHERE guild_id = $1
		 ORDER BY created_at DESC LIMIT $2`, guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GiftResolution
	for rows.Next() {
		var res models.GiftResolution
		if err := rows.Scan(&res.ID, &res.GuildID, &res.OwnerID, &res.MemberID, &res.ChannelID, &res.Outcome, &res.Created, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
