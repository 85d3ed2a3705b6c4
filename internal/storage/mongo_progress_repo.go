package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig настройки подключения к MongoDB
type MongoConfig struct {
	URI        string // mongodb://localhost:27017
	Database   string
	Collection string
}

// mongoProgressDoc документ игрока, _id нормализованное имя
type mongoProgressDoc struct {
	Key      string `bson:"_id"`
	Progress `bson:",inline"`
}

// MongoProgressRepo хранит прогресс в коллекции MongoDB, документ на игрока
type MongoProgressRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// NewMongoProgressRepo подключается к MongoDB и создаёт индекс по уровню
func NewMongoProgressRepo(ctx context.Context, cfg MongoConfig) (*MongoProgressRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "gunguys"
	}
	if cfg.Collection == "" {
		cfg.Collection = "progress"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("не удалось проверить соединение с MongoDB: %w", err)
	}

	repo := &MongoProgressRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}
	if err := repo.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

func (m *MongoProgressRepo) ensureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "level", Value: -1}, {Key: "experience", Value: -1}},
		Options: options.Index().SetName("level_desc"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, idx)
	return err
}

// Save перезаписывает документ игрока
func (m *MongoProgressRepo) Save(ctx context.Context, p Progress) error {
	key, err := validate(p)
	if err != nil {
		return err
	}
	doc := mongoProgressDoc{Key: key, Progress: stamp(p)}

	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("ошибка сохранения прогресса %s: %w", key, err)
	}
	return nil
}

// Load загружает документ игрока
func (m *MongoProgressRepo) Load(ctx context.Context, name string) (Progress, error) {
	key, err := normalizeName(name)
	if err != nil {
		return Progress{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	var doc mongoProgressDoc
	err = m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Progress{}, ErrNotFound
	}
	if err != nil {
		return Progress{}, fmt.Errorf("ошибка загрузки прогресса %s: %w", key, err)
	}
	return doc.Progress, nil
}

// Delete удаляет документ игрока
func (m *MongoProgressRepo) Delete(ctx context.Context, name string) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("ошибка удаления прогресса %s: %w", key, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close отключается от MongoDB
func (m *MongoProgressRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
