// Package mongo stores the portfolio as a single MongoDB document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rendita/internal/core"
	"rendita/internal/log"
	"rendita/internal/store"
)

const (
	// Collection holds the portfolio document.
	Collection = "portfolios"
	// DocumentID is the _id of the single portfolio document.
	DocumentID = "default"
)

// DocumentStore is the subset of a collection the repository needs.
type DocumentStore interface {
	// FindByID decodes the document into out, or returns mongo.ErrNoDocuments.
	FindByID(ctx context.Context, id string, out interface{}) error
	// ReplaceByID upserts doc under id.
	ReplaceByID(ctx context.Context, id string, doc interface{}) error
}

// MongoCollection adapts *mongo.Collection to DocumentStore.
type MongoCollection struct {
	*mongo.Collection
}

func (c *MongoCollection) FindByID(ctx context.Context, id string, out interface{}) error {
	return c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(out)
}

func (c *MongoCollection) ReplaceByID(ctx context.Context, id string, doc interface{}) error {
	_, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to perform ReplaceOne: %w", err)
	}
	return nil
}

type accountDocument struct {
	ID          string  `bson:"id"`
	Name        string  `bson:"name"`
	Amount      float64 `bson:"amount"`
	AnnualYield float64 `bson:"annualYield"`
}

type incomeDocument struct {
	ID          string  `bson:"id"`
	Description string  `bson:"description"`
	Amount      float64 `bson:"amount"`
	Date        string  `bson:"date"`
}

type portfolioDocument struct {
	ID           string            `bson:"_id"`
	Salary       float64           `bson:"salary"`
	Accounts     []accountDocument `bson:"accounts"`
	ExtraIncomes []incomeDocument  `bson:"extraIncomes"`
	Revision     int64             `bson:"revision"`
	UpdatedAt    time.Time         `bson:"updatedAt"`
}

// Repository implements store.Repository on top of a DocumentStore.
type Repository struct {
	docs   DocumentStore
	client *mongo.Client
}

func NewRepository(docs DocumentStore) *Repository {
	return &Repository{docs: docs}
}

// Connect dials uri, pings the server and returns a repository bound to database.
func Connect(ctx context.Context, uri, database string) (*Repository, error) {
	slog.DebugContext(ctx, "Attempting to connect to MongoDB", log.FieldComponent, log.ComponentMongo, "database", database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.InfoContext(ctx, "Successfully established connection to MongoDB", log.FieldComponent, log.ComponentMongo, "database", database)

	repo := NewRepository(&MongoCollection{client.Database(database).Collection(Collection)})
	repo.client = client
	return repo, nil
}

func (r *Repository) Load(ctx context.Context) (core.PortfolioState, error) {
	var doc portfolioDocument
	if err := r.docs.FindByID(ctx, DocumentID, &doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return core.PortfolioState{}, store.ErrNotFound
		}
		return core.PortfolioState{}, fmt.Errorf("find portfolio: %w", err)
	}
	return fromDocument(doc)
}

func (r *Repository) Save(ctx context.Context, state core.PortfolioState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	if err := r.docs.ReplaceByID(ctx, DocumentID, toDocument(state)); err != nil {
		return fmt.Errorf("save portfolio: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx, nil)
}

// Close disconnects the client created by Connect.
func (r *Repository) Close() error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func toDocument(state core.PortfolioState) portfolioDocument {
	doc := portfolioDocument{
		ID:           DocumentID,
		Salary:       state.Salary,
		Accounts:     make([]accountDocument, 0, len(state.Accounts)),
		ExtraIncomes: make([]incomeDocument, 0, len(state.ExtraIncomes)),
		Revision:     state.Revision,
		UpdatedAt:    state.UpdatedAt.UTC(),
	}
	for _, a := range state.Accounts {
		doc.Accounts = append(doc.Accounts, accountDocument{ID: a.ID, Name: a.Name, Amount: a.Amount, AnnualYield: a.AnnualYield})
	}
	for _, e := range state.ExtraIncomes {
		doc.ExtraIncomes = append(doc.ExtraIncomes, incomeDocument{ID: e.ID, Description: e.Description, Amount: e.Amount, Date: e.Date.String()})
	}
	return doc
}

func fromDocument(doc portfolioDocument) (core.PortfolioState, error) {
	state := core.PortfolioState{
		Accounts:     make([]core.Account, 0, len(doc.Accounts)),
		Salary:       doc.Salary,
		ExtraIncomes: make([]core.ExtraIncome, 0, len(doc.ExtraIncomes)),
		Revision:     doc.Revision,
		UpdatedAt:    doc.UpdatedAt,
	}
	for _, a := range doc.Accounts {
		state.Accounts = append(state.Accounts, core.Account{ID: a.ID, Name: a.Name, Amount: a.Amount, AnnualYield: a.AnnualYield})
	}
	for _, e := range doc.ExtraIncomes {
		date, err := core.ParseDate(e.Date)
		if err != nil {
			return core.PortfolioState{}, fmt.Errorf("extra income %s: %w", e.ID, err)
		}
		state.ExtraIncomes = append(state.ExtraIncomes, core.ExtraIncome{ID: e.ID, Description: e.Description, Amount: e.Amount, Date: date})
	}
	return state, nil
}
