package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gw-currency-rates/internal/storages"
)

// SaveConversionBatch сохраняет пакет уведомлений. Уже сохраненные ранее
// сообщения (тот же partition/offset) пропускаются без ошибки.
func (s *MongoStorage) SaveConversionBatch(ctx context.Context, conversions []storages.LargeConversion) error {
	if len(conversions) == 0 {
		return nil
	}

	documents := make([]interface{}, len(conversions))
	now := time.Now().UTC()
	for i := range conversions {
		conversions[i].ProcessedAt = now
		documents[i] = conversions[i]
	}

	result, err := s.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicates(err) {
		s.logger.Errorf("Failed to save conversion batch: %v", err)
		return fmt.Errorf("failed to save conversion batch: %w", err)
	}

	inserted := 0
	if result != nil {
		inserted = len(result.InsertedIDs)
	}
	s.logger.Infof("Saved batch of %d conversions (inserted: %d)", len(conversions), inserted)
	return nil
}

const duplicateKeyCode = 11000

// onlyDuplicates сообщает, что все ошибки пакетной вставки это нарушения уникального индекса
func onlyDuplicates(err error) bool {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
		return false
	}
	for _, we := range bulkErr.WriteErrors {
		if we.Code != duplicateKeyCode {
			return false
		}
	}
	return len(bulkErr.WriteErrors) > 0
}

// GetStatistics возвращает агрегированную статистику уведомлений
func (s *MongoStorage) GetStatistics(ctx context.Context) (*storages.NotificationStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":               nil,
			"total_conversions": bson.M{"$sum": 1},
			"total_amount":      bson.M{"$sum": "$amount"},
			"average_amount":    bson.M{"$avg": "$amount"},
			"last_processed":    bson.M{"$max": "$processed_at"},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		s.logger.Errorf("Failed to get statistics: %v", err)
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var results []storages.NotificationStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode statistics: %w", err)
	}

	stats := &storages.NotificationStats{}
	if len(results) > 0 {
		*stats = results[0]
	}
	return stats, nil
}
