// Package store implements the flat-file record store that lectern queries.
//
// A store is a set of named collections. Each collection is read through a
// Provider on every query, so edits to data files are visible to the next
// build pass without any invalidation step. Queries are built with the
// chainable Query type:
//
//	posts, err := s.Collection("posts").
//		WhenIs("status", "published").
//		Sort("date", store.Desc).
//		Limit(5).
//		All()
package store

import (
	"context"

	"github.com/conneroisu/lectern/internal/logging"
)

// Provider loads the records of a collection in store order. An unknown
// collection yields no records and no error.
type Provider interface {
	Records(collection string) ([]Record, error)
}

// ReadHook is called after a collection has been read.
type ReadHook func(collection string, count int)

// Store is the entry point for queries.
type Store struct {
	provider Provider
	logger   logging.Logger
	onRead   ReadHook
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output about reads.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.WithComponent("store")
		}
	}
}

// WithReadHook registers a hook invoked after every collection read.
func WithReadHook(hook ReadHook) Option {
	return func(s *Store) {
		s.onRead = hook
	}
}

// New creates a store over provider.
func New(provider Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection starts a query over the named collection.
func (s *Store) Collection(name string) Query {
	return Query{store: s, collection: name}
}

func (s *Store) records(collection string) ([]Record, error) {
	records, err := s.provider.Records(collection)
	if err != nil {
		return nil, err
	}

	s.logger.Debug(context.Background(), "Read collection", "collection", collection, "records", len(records))
	if s.onRead != nil {
		s.onRead(collection, len(records))
	}
	return records, nil
}
