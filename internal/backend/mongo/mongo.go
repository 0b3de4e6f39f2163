// Package mongo: бэкенд комментариев поверх MongoDB.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/MochaChoco/my-site/internal/backend"
)

const (
	commentsCollection = "comments"
	likesCollection    = "likes"
	defaultDBName      = "commentbox"
)

// Option настраивает Mongo.
type Option func(*Mongo)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Mongo) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger задаёт логгер по умолчанию.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mongo) {
		if l != nil {
			m.log = l
		}
	}
}

// Mongo: адаптер бэкенда над коллекциями comments и likes.
type Mongo struct {
	client   *mongodriver.Client
	db       *mongodriver.Database
	comments *mongodriver.Collection
	likes    *mongodriver.Collection

	// seq: порядок вставки: при равных created_at новее тот, кто вставлен позже.
	seq atomic.Int64
	now func() time.Time
	log *slog.Logger
}

var _ backend.Backend = (*Mongo)(nil)

// New подключается к MongoDB, проверяет его, подготавливает коллекции и обеспечивает индексацию.
// Имя БД берётся из пути URI, иначе используется dbName, иначе "commentbox".
func New(ctx context.Context, uri, dbName string, opts ...Option) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseName(uri, dbName))

	m := &Mongo{
		client:   cli,
		db:       db,
		comments: db.Collection(commentsCollection),
		likes:    db.Collection(likesCollection),
		now:      time.Now,
		log:      slog.Default(),
	}
	m.seq.Store(time.Now().UnixNano())

	for _, opt := range opts {
		opt(m)
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

// Close закрывает соединение.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping: проверка готовности для /healthz.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes создает индексы:
// - корни объекта: object_id + parent_id + created_at(desc) и + reply_count(desc);
// - ответы ветки: parent_id + created_at(asc);
// - лайки: уникальная пара comment_id + viewer_id.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	comments := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "object_id", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("object_parent_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "object_id", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "reply_count", Value: -1}},
			Options: options.Index().SetName("object_parent_replies_desc"),
		},
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("parent_created_asc"),
		},
	}

	if _, err := m.comments.Indexes().CreateMany(ctx, comments); err != nil {
		return fmt.Errorf("mongo ensure comment indexes: %w", err)
	}

	_, err := m.likes.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "comment_id", Value: 1}, {Key: "viewer_id", Value: 1}},
		Options: options.Index().SetName("comment_viewer_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure like indexes: %w", err)
	}

	return nil
}

// databaseName извлекает имя базы данных из URI-пути mongodb.
func databaseName(uri, fallback string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	if fallback != "" {
		return fallback
	}

	return defaultDBName
}
