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

const (
	entriesCollection     = "registry_entries"
	mappingsCollection    = "id_mappings"
	suggestionsCollection = "suggestions"
)

// Store persists registry entries, id mappings and suggestions.
type Store struct {
	entries     *mongo.Collection
	mappings    *mongo.Collection
	suggestions *mongo.Collection
}

type entryDoc struct {
	ID           string `bson:"_id"`
	Source       string `bson:"source"`
	SourceID     string `bson:"sourceId"`
	Payload      bson.M `bson:"payload"`
	UpdatedAt    int64  `bson:"updatedAt"`
	OverriddenBy string `bson:"overriddenBy,omitempty"`
}

type mappingDoc struct {
	ID          string `bson:"_id"`
	UniversalID string `bson:"imdbId"`
	Source      string `bson:"source"`
	SourceID    string `bson:"sourceId"`
	UpdatedAt   int64  `bson:"updatedAt"`
}

type suggestionDoc struct {
	ID          string `bson:"_id"`
	UniversalID string `bson:"imdbId,omitempty"`
	Title       string `bson:"title"`
	Field       string `bson:"field,omitempty"`
	Value       string `bson:"value,omitempty"`
	Note        string `bson:"note,omitempty"`
	SubmittedBy string `bson:"submittedBy,omitempty"`
	Status      string `bson:"status"`
	CreatedAt   int64  `bson:"createdAt"`
	ReviewedAt  *int64 `bson:"reviewedAt,omitempty"`
	ReviewedBy  string `bson:"reviewedBy,omitempty"`
}

func NewStore(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		entries:     db.Collection(entriesCollection),
		mappings:    db.Collection(mappingsCollection),
		suggestions: db.Collection(suggestionsCollection),
	}
}

// Connect opens a client whose untyped documents decode as maps, so
// stored payloads come back in the same shape they were written.
func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	base := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	opts := append([]*options.ClientOptions{base}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if _, err := s.mappings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "imdbId", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := s.entries.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "source", Value: 1}, {Key: "sourceId", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := s.suggestions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	return err
}

func entryID(source, sourceID string) string {
	return strings.ToLower(strings.TrimSpace(source)) + ":" + strings.TrimSpace(sourceID)
}

func mappingID(universalID, source string) string {
	return strings.TrimSpace(universalID) + ":" + strings.ToLower(strings.TrimSpace(source))
}

func (s *Store) LookupMapping(ctx context.Context, universalID, source string) (domain.IDMapping, error) {
	var doc mappingDoc
	err := s.mappings.FindOne(ctx, bson.M{"_id": mappingID(universalID, source)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.IDMapping{}, domain.ErrNotFound
		}
		return domain.IDMapping{}, err
	}
	return domain.IDMapping{
		UniversalID: doc.UniversalID,
		Source:      doc.Source,
		SourceID:    doc.SourceID,
		UpdatedAt:   time.UnixMilli(doc.UpdatedAt).UTC(),
	}, nil
}

func (s *Store) GetEntry(ctx context.Context, source, sourceID string) (domain.RegistryEntry, error) {
	var doc entryDoc
	err := s.entries.FindOne(ctx, bson.M{"_id": entryID(source, sourceID)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.RegistryEntry{}, domain.ErrNotFound
		}
		return domain.RegistryEntry{}, err
	}
	return domain.RegistryEntry{
		Source:       doc.Source,
		SourceID:     doc.SourceID,
		Payload:      plainMap(doc.Payload),
		UpdatedAt:    time.UnixMilli(doc.UpdatedAt).UTC(),
		OverriddenBy: doc.OverriddenBy,
	}, nil
}

func (s *Store) UpsertEntry(ctx context.Context, entry domain.RegistryEntry) error {
	if strings.TrimSpace(entry.Source) == "" || strings.TrimSpace(entry.SourceID) == "" {
		return domain.ErrInvalidInput
	}
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set := bson.M{
		"source":    strings.ToLower(strings.TrimSpace(entry.Source)),
		"sourceId":  strings.TrimSpace(entry.SourceID),
		"payload":   bson.M(entry.Payload),
		"updatedAt": updatedAt.UnixMilli(),
	}
	if entry.OverriddenBy != "" {
		set["overriddenBy"] = entry.OverriddenBy
	}
	_, err := s.entries.UpdateOne(
		ctx,
		bson.M{"_id": entryID(entry.Source, entry.SourceID)},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) UpsertMapping(ctx context.Context, mapping domain.IDMapping) error {
	if strings.TrimSpace(mapping.UniversalID) == "" || strings.TrimSpace(mapping.Source) == "" {
		return domain.ErrInvalidInput
	}
	updatedAt := mapping.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.mappings.UpdateOne(
		ctx,
		bson.M{"_id": mappingID(mapping.UniversalID, mapping.Source)},
		bson.M{"$set": bson.M{
			"imdbId":    strings.TrimSpace(mapping.UniversalID),
			"source":    strings.ToLower(strings.TrimSpace(mapping.Source)),
			"sourceId":  strings.TrimSpace(mapping.SourceID),
			"updatedAt": updatedAt.UnixMilli(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// plainMap converts decoded bson containers back into the plain map and
// slice types callers wrote.
func plainMap(m bson.M) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = plain(value)
	}
	return out
}

func plain(v any) any {
	switch value := v.(type) {
	case bson.M:
		return plainMap(value)
	case map[string]any:
		return plainMap(bson.M(value))
	case bson.A:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = plain(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(value))
		for _, elem := range value {
			out[elem.Key] = plain(elem.Value)
		}
		return out
	default:
		return v
	}
}
