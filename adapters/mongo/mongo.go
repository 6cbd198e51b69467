// Package mongo keeps the session as a single MongoDB document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lborres/lumore/core"
)

const (
	DefaultCollection = "sessions"
	DefaultName       = "default"
)

type sessionUser struct {
	ID       string `bson:"_id"`
	Username string `bson:"username"`
	Email    string `bson:"email"`
}

type sessionDoc struct {
	Name      string      `bson:"_id"`
	Token     string      `bson:"token"`
	User      sessionUser `bson:"user"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

// Store keeps one document per name; the document id is the name
type Store struct {
	col  *mongo.Collection
	name string
}

var _ core.SessionStore = (*Store)(nil)

func New(db *mongo.Database, name string) *Store {
	if name == "" {
		name = DefaultName
	}
	return &Store{col: db.Collection(DefaultCollection), name: name}
}

func (s *Store) Get(ctx context.Context) (*core.Session, error) {
	var doc sessionDoc
	err := s.col.FindOne(ctx, bson.M{"_id": s.name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	return &core.Session{
		Token: doc.Token,
		User: core.User{
			ID:       doc.User.ID,
			Username: doc.User.Username,
			Email:    doc.User.Email,
		},
	}, nil
}

// Set replaces the whole document, so token and user change together
func (s *Store) Set(ctx context.Context, session *core.Session) error {
	if session == nil {
		return s.Clear(ctx)
	}

	doc := sessionDoc{
		Name:  s.name,
		Token: session.Token,
		User: sessionUser{
			ID:       session.User.ID,
			Username: session.User.Username,
			Email:    session.User.Email,
		},
		UpdatedAt: time.Now().UTC(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.col.ReplaceOne(ctx, bson.M{"_id": s.name}, doc, opts); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": s.name}); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
