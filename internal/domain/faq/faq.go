// Package faq serves frequently asked questions.
package faq

import (
	"context"

	"github.com/go-faster/errors"
)

// Entry is a single question and its answer.
type Entry struct {
	ID      string
	Title   string
	Content string
}

// Repository reads FAQ entries.
type Repository interface {
	List(ctx context.Context) ([]Entry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every entry in storage order.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list faq")
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
