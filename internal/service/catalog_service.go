package service

import (
	"context"
	"errors"

	"github.com/DarkIsCool10/UniEventos/internal/models"
	"github.com/DarkIsCool10/UniEventos/internal/repository"
	"gorm.io/gorm"
)

var ErrEventNotFound = errors.New("event not found")

type CatalogService interface {
	GetEvent(ctx context.Context, eventID uint) (*models.Event, error)
	GetAvailability(ctx context.Context, localityID uint) (*models.Locality, error)
}

type catalogService struct {
	events     repository.EventRepository
	localities repository.LocalityRepository
}

func NewCatalogService(events repository.EventRepository, localities repository.LocalityRepository) CatalogService {
	return &catalogService{events: events, localities: localities}
}

// GetEvent returns the event with its current (not removed) localities.
func (s *catalogService) GetEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *catalogService) GetAvailability(ctx context.Context, localityID uint) (*models.Locality, error) {
	loc, err := s.localities.FindByID(ctx, localityID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLocalityNotFound
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}
