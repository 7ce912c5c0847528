// Package mongo stores reports and accounts in MongoDB collections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"teamreports/internal/core"
	"teamreports/internal/store"
)

var (
	_ store.RecordStore = (*Store)(nil)
	_ store.UserStore   = (*Store)(nil)
)

const (
	reportsCollection = "reports"
	usersCollection   = "users"
	connectTimeout    = 10 * time.Second
)

type reportDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	OwnerID     string               `bson:"userId"`
	Category    string               `bson:"category"`
	Value       primitive.Decimal128 `bson:"value"`
	Description string               `bson:"description"`
	CreatedAt   time.Time            `bson:"createdAt"`
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type Store struct {
	client  *mongo.Client
	reports *mongo.Collection
	users   *mongo.Collection
	now     func() time.Time
}

// Connect dials uri, checks the server is reachable and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:  client,
		reports: db.Collection(reportsCollection),
		users:   db.Collection(usersCollection),
		now:     time.Now,
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create email index: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) FetchAll(ctx context.Context) ([]core.Report, error) {
	cur, err := s.reports.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	var docs []reportDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	out := make([]core.Report, 0, len(docs))
	for _, d := range docs {
		r, err := d.toReport()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, r core.Report) (core.Report, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	value, err := primitive.ParseDecimal128(r.Value.String())
	if err != nil {
		return core.Report{}, fmt.Errorf("encode value: %w", err)
	}
	doc := reportDoc{
		ID:          primitive.NewObjectID(),
		OwnerID:     r.OwnerID,
		Category:    r.Category,
		Value:       value,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
	if r.ID != "" {
		if oid, err := primitive.ObjectIDFromHex(r.ID); err == nil {
			doc.ID = oid
		}
	}
	if _, err := s.reports.InsertOne(ctx, doc); err != nil {
		return core.Report{}, fmt.Errorf("insert report: %w", err)
	}
	r.ID = doc.ID.Hex()
	return r, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (core.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return core.User{}, store.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.findUser(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *Store) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Email:        normalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.User{}, store.ErrDuplicate
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID = doc.ID.Hex()
	u.Email = doc.Email
	return u, nil
}

func (s *Store) findUser(ctx context.Context, filter any) (core.User, error) {
	var d userDoc
	err := s.users.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	return d.toUser(), nil
}

func (d reportDoc) toReport() (core.Report, error) {
	v, err := decimal.NewFromString(d.Value.String())
	if err != nil {
		return core.Report{}, fmt.Errorf("decode value of report %s: %w", d.ID.Hex(), err)
	}
	return core.Report{
		ID:          d.ID.Hex(),
		OwnerID:     d.OwnerID,
		Category:    d.Category,
		Value:       v,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.UTC(),
	}, nil
}

func (d userDoc) toUser() core.User {
	return core.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         core.Role(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
