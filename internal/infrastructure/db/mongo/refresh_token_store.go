package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

const collectionRefreshTokens = "refresh_tokens"

// RefreshTokenStore persists refresh tokens. Rotation relies on a conditional
// UpdateOne filtered on is_revoked=false; the document-level atomicity of that
// update is what lets exactly one of two concurrent rotations win.
type RefreshTokenStore struct {
	col *mongo.Collection
}

func NewRefreshTokenStore(db *mongo.Database) *RefreshTokenStore {
	return &RefreshTokenStore{col: db.Collection(collectionRefreshTokens)}
}

type mongoRefreshToken struct {
	ID              string    `bson:"_id"`
	Token           string    `bson:"token"`
	UserID          string    `bson:"user_id"`
	TenantID        string    `bson:"tenant_id"`
	ExpiresAt       time.Time `bson:"expires_at"`
	IsRevoked       bool      `bson:"is_revoked"`
	ReplacedByToken string    `bson:"replaced_by_token,omitempty"`
	IPAddress       string    `bson:"ip_address,omitempty"`
	UserAgent       string    `bson:"user_agent,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toMongoRefreshToken(t *domain.RefreshToken) mongoRefreshToken {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	return mongoRefreshToken{
		ID:              id,
		Token:           t.Token,
		UserID:          t.UserID,
		TenantID:        t.TenantID,
		ExpiresAt:       t.ExpiresAt,
		IsRevoked:       t.IsRevoked,
		ReplacedByToken: t.ReplacedByToken,
		IPAddress:       t.IPAddress,
		UserAgent:       t.UserAgent,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func (m mongoRefreshToken) toDomain() domain.RefreshToken {
	return domain.RefreshToken{
		ID:              m.ID,
		Token:           m.Token,
		UserID:          m.UserID,
		TenantID:        m.TenantID,
		ExpiresAt:       m.ExpiresAt,
		IsRevoked:       m.IsRevoked,
		ReplacedByToken: m.ReplacedByToken,
		IPAddress:       m.IPAddress,
		UserAgent:       m.UserAgent,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (s *RefreshTokenStore) Create(ctx context.Context, t *domain.RefreshToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.col.InsertOne(ctx, toMongoRefreshToken(t)); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoRefreshToken
	if err := s.col.FindOne(ctx, bson.M{"token": token}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	t := m.toDomain()
	return &t, nil
}

// Rotate revokes oldToken if and only if it is still active, then inserts next.
func (s *RefreshTokenStore) Rotate(ctx context.Context, oldToken string, next *domain.RefreshToken, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{
			"token":      oldToken,
			"is_revoked": false,
			"expires_at": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{
			"is_revoked":        true,
			"replaced_by_token": next.Token,
			"updated_at":        now,
		}},
	)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if res.ModifiedCount != 1 {
		return domain.ErrInvalidRefreshToken
	}

	if _, err := s.col.InsertOne(ctx, toMongoRefreshToken(next)); err != nil {
		return fmt.Errorf("%w: insert successor: %v", domain.ErrRotationIncomplete, err)
	}
	return nil
}

func (s *RefreshTokenStore) Revoke(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"token": token, "is_revoked": false},
		bson.M{"$set": bson.M{"is_revoked": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.col.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_revoked": false},
		bson.M{"$set": bson.M{"is_revoked": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *RefreshTokenStore) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := s.col.Find(ctx,
		bson.M{"user_id": userID, "is_revoked": false, "expires_at": bson.M{"$gt": now}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoRefreshToken
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode refresh tokens: %w", err)
	}
	out := make([]domain.RefreshToken, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// DeleteExpired removes every token past expiry, revoked or not.
func (s *RefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.col.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the unique token index and the per-user lookup index.
func (s *RefreshTokenStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "tenant_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	return err
}
