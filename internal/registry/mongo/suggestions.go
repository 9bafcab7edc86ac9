package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"titlevault/internal/domain"
)

func (s *Store) InsertSuggestion(ctx context.Context, suggestion domain.Suggestion) error {
	if strings.TrimSpace(suggestion.ID) == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.suggestions.InsertOne(ctx, toSuggestionDoc(suggestion))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrInvalidInput
	}
	return err
}

func (s *Store) ListSuggestions(ctx context.Context, status domain.SuggestionStatus) ([]domain.Suggestion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.suggestions.Find(ctx, bson.M{"status": string(status)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []suggestionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]domain.Suggestion, 0, len(docs))
	for _, doc := range docs {
		items = append(items, fromSuggestionDoc(doc))
	}
	return items, nil
}

func (s *Store) ReviewSuggestion(ctx context.Context, id string, status domain.SuggestionStatus, reviewer string, at time.Time) (domain.Suggestion, error) {
	var doc suggestionDoc
	err := s.suggestions.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":     string(status),
			"reviewedBy": reviewer,
			"reviewedAt": at.UTC().UnixMilli(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Suggestion{}, domain.ErrNotFound
		}
		return domain.Suggestion{}, err
	}
	return fromSuggestionDoc(doc), nil
}

func toSuggestionDoc(s domain.Suggestion) suggestionDoc {
	doc := suggestionDoc{
		ID:          s.ID,
		UniversalID: s.UniversalID,
		Title:       s.Title,
		Field:       s.Field,
		Value:       s.Value,
		Note:        s.Note,
		SubmittedBy: s.SubmittedBy,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt.UTC().UnixMilli(),
		ReviewedBy:  s.ReviewedBy,
	}
	if s.ReviewedAt != nil {
		reviewedAt := s.ReviewedAt.UTC().UnixMilli()
		doc.ReviewedAt = &reviewedAt
	}
	return doc
}

func fromSuggestionDoc(doc suggestionDoc) domain.Suggestion {
	s := domain.Suggestion{
		ID:          doc.ID,
		UniversalID: doc.UniversalID,
		Title:       doc.Title,
		Field:       doc.Field,
		Value:       doc.Value,
		Note:        doc.Note,
		SubmittedBy: doc.SubmittedBy,
		Status:      domain.SuggestionStatus(doc.Status),
		CreatedAt:   time.UnixMilli(doc.CreatedAt).UTC(),
		ReviewedBy:  doc.ReviewedBy,
	}
	if doc.ReviewedAt != nil {
		reviewedAt := time.UnixMilli(*doc.ReviewedAt).UTC()
		s.ReviewedAt = &reviewedAt
	}
	return s
}
