package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

const (
	collectionAccounts = "accounts"
	collectionCounters = "counters"
)

type AccountRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		col:      db.Collection(collectionAccounts),
		counters: db.Collection(collectionCounters),
	}
}

type mongoAccount struct {
	ID             string     `bson:"_id"`
	WarriorID      string     `bson:"warrior_id"`
	Name           string     `bson:"name"`
	Email          string     `bson:"email"`
	PasswordHash   string     `bson:"password_hash"`
	WhatsApp       string     `bson:"whatsapp,omitempty"`
	TelegramID     string     `bson:"telegram_id,omitempty"`
	InvitationCode string     `bson:"invitation_code"`
	Role           string     `bson:"role"`
	GrantedRole    string     `bson:"granted_role"`
	Status         string     `bson:"status"`
	StatusReason   string     `bson:"status_reason,omitempty"`
	IsFounder      bool       `bson:"is_founder"`
	ApprovedBy     string     `bson:"approved_by,omitempty"`
	ApprovedAt     *time.Time `bson:"approved_at,omitempty"`
	LastLoginAt    *time.Time `bson:"last_login_at,omitempty"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func toMongoAccount(a *domain.Account) mongoAccount {
	return mongoAccount{
		ID:             a.ID,
		WarriorID:      a.WarriorID,
		Name:           a.Name,
		Email:          a.Email,
		PasswordHash:   a.PasswordHash,
		WhatsApp:       a.WhatsApp,
		TelegramID:     a.TelegramID,
		InvitationCode: a.InvitationCode,
		Role:           string(a.Role),
		GrantedRole:    string(a.GrantedRole),
		Status:         string(a.Status),
		StatusReason:   a.StatusReason,
		IsFounder:      a.IsFounder,
		ApprovedBy:     a.ApprovedBy,
		ApprovedAt:     a.ApprovedAt,
		LastLoginAt:    a.LastLoginAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (m *mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:             m.ID,
		WarriorID:      m.WarriorID,
		Name:           m.Name,
		Email:          m.Email,
		PasswordHash:   m.PasswordHash,
		WhatsApp:       m.WhatsApp,
		TelegramID:     m.TelegramID,
		InvitationCode: m.InvitationCode,
		Role:           domain.Role(m.Role),
		GrantedRole:    domain.Role(m.GrantedRole),
		Status:         domain.AccountStatus(m.Status),
		StatusReason:   m.StatusReason,
		IsFounder:      m.IsFounder,
		ApprovedBy:     m.ApprovedBy,
		ApprovedAt:     utcPtr(m.ApprovedAt),
		LastLoginAt:    utcPtr(m.LastLoginAt),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toMongoAccount(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

// Update replaces the account document only while its stored status still
// equals expected.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account, expected domain.AccountStatus) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": a.ID, "status": string(expected)}
	res, err := r.col.ReplaceOne(ctx, filter, toMongoAccount(a))
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, a.ID); err != nil {
			return err
		}
		return domain.ErrStatusChanged
	}
	return nil
}

func (r *AccountRepository) ListByStatus(ctx context.Context, status domain.AccountStatus, limit int) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"status": string(status)}, opts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAccount
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *AccountRepository) CountByStatus(ctx context.Context) (map[domain.AccountStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode account counts: %w", err)
	}

	out := make(map[domain.AccountStatus]int64, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[domain.AccountStatus(row.Status)] = row.Count
	}
	return out, nil
}

func (r *AccountRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

// NextWarriorSequence increments the per-year member counter and returns the
// new value.
func (r *AccountRepository) NextWarriorSequence(ctx context.Context, year int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	key := fmt.Sprintf("warrior_id:%d", year)
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next warrior sequence: %w", err)
	}
	return doc.Seq, nil
}

// EnsureIndexes creates necessary indexes on the accounts collection.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "warrior_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
