package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

const collectionCodes = "invitation_codes"

// InvitationRepository stores the invitation code ledger. Capacity is enforced
// by conditional single-document updates, never by read-then-write.
type InvitationRepository struct {
	col *mongo.Collection
}

func NewInvitationRepository(db *mongo.Database) *InvitationRepository {
	return &InvitationRepository{col: db.Collection(collectionCodes)}
}

// redeemableFilter matches code only while it can still be redeemed at now.
func redeemableFilter(now time.Time) bson.M {
	return bson.M{
		"is_active":  true,
		"expires_at": bson.M{"$gt": now},
		"$expr":      bson.M{"$lt": bson.A{"$used_count", "$max_uses"}},
	}
}

func (r *InvitationRepository) Insert(ctx context.Context, code *domain.InvitationCode) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, code); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrCodeExists
		}
		return fmt.Errorf("insert code: %w", err)
	}
	return nil
}

func (r *InvitationRepository) Find(ctx context.Context, code string) (*domain.InvitationCode, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ic domain.InvitationCode
	if err := r.col.FindOne(ctx, bson.M{"code": code}).Decode(&ic); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find code: %w", err)
	}
	return &ic, nil
}

func (r *InvitationRepository) Exists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count code: %w", err)
	}
	return n > 0, nil
}

func (r *InvitationRepository) CountWithPrefix(ctx context.Context, prefix string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pattern := "^" + regexp.QuoteMeta(prefix) + "-[0-9]+$"
	n, err := r.col.CountDocuments(ctx, bson.M{"code": bson.M{"$regex": pattern}})
	if err != nil {
		return 0, fmt.Errorf("count codes with prefix: %w", err)
	}
	return n, nil
}

// Redeem increments used_count in a single FindOneAndUpdate whose filter
// carries every redeemability condition, so two concurrent redemptions of the
// last use cannot both match. When nothing matches the code is re-read only to
// report why.
func (r *InvitationRepository) Redeem(ctx context.Context, code string, now time.Time) (*domain.InvitationCode, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := redeemableFilter(now)
	filter["code"] = code
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ic domain.InvitationCode
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ic)
	if err == nil {
		return &ic, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("redeem code: %w", err)
	}

	current, err := r.Find(ctx, code)
	if err != nil {
		return nil, err
	}
	if reason := current.Check(now); reason != nil {
		return nil, reason
	}
	// Lost the race between the update and the re-read.
	return nil, domain.ErrCodeExhausted
}

func (r *InvitationRepository) Release(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"code": code, "used_count": bson.M{"$gt": 0}}
	if _, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"used_count": -1}}); err != nil {
		return fmt.Errorf("release code: %w", err)
	}
	return nil
}

// Update sets the editable fields. The used_count guard runs inside the same
// write so a concurrent redemption cannot push used_count past max_uses.
func (r *InvitationRepository) Update(ctx context.Context, code *domain.InvitationCode) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"code": code.Code, "used_count": bson.M{"$lte": code.MaxUses}}
	update := bson.M{"$set": bson.M{
		"max_uses":    code.MaxUses,
		"expires_at":  code.ExpiresAt,
		"description": code.Description,
		"is_active":   code.IsActive,
		"updated_at":  code.UpdatedAt,
	}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update code: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.Find(ctx, code.Code); err != nil {
			return err
		}
		return domain.ErrMaxUsesBelowUsed
	}
	return nil
}

func (r *InvitationRepository) Delete(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"code": code})
	if err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCodeNotFound
	}
	return nil
}

func (r *InvitationRepository) List(ctx context.Context, activeOnly bool, now time.Time) ([]*domain.InvitationCode, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter = redeemableFilter(now)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "code", Value: 1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.InvitationCode
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode codes: %w", err)
	}
	return out, nil
}

func (r *InvitationRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"is_active": true, "expires_at": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{"is_active": false, "updated_at": now}}
	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired codes: %w", err)
	}
	return res.ModifiedCount, nil
}

// Stats classifies codes the same way InvitationCode.Check does: expiry first,
// then the active flag, then capacity.
func (r *InvitationRepository) Stats(ctx context.Context, now time.Time) (ports.CodeStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var st ports.CodeStats
	counts := []struct {
		dst    *int64
		filter bson.M
	}{
		{&st.Total, bson.M{}},
		{&st.Active, redeemableFilter(now)},
		{&st.Expired, bson.M{"expires_at": bson.M{"$lte": now}}},
		{&st.Exhausted, bson.M{
			"is_active":  true,
			"expires_at": bson.M{"$gt": now},
			"$expr":      bson.M{"$gte": bson.A{"$used_count", "$max_uses"}},
		}},
	}
	for _, c := range counts {
		n, err := r.col.CountDocuments(ctx, c.filter)
		if err != nil {
			return ports.CodeStats{}, fmt.Errorf("count codes: %w", err)
		}
		*c.dst = n
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "redeemed", Value: bson.D{{Key: "$sum", Value: "$used_count"}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return ports.CodeStats{}, fmt.Errorf("sum redemptions: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Redeemed int64 `bson:"redeemed"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return ports.CodeStats{}, fmt.Errorf("decode redemptions: %w", err)
	}
	if len(rows) > 0 {
		st.Redeemed = rows[0].Redeemed
	}
	return st, nil
}

// EnsureIndexes creates necessary indexes on the invitation_codes collection.
func (r *InvitationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
