package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/innkeep/internal/domain"
)

type propertyRow struct {
	ID             string `db:"id"`
	OrganizationID string `db:"organization_id"`
	Name           string `db:"name"`
}

type roomRow struct {
	ID         string `db:"id"`
	PropertyID string `db:"property_id"`
	Name       string `db:"name"`
	Capacity   int    `db:"capacity"`
}

// CreateProperty inserts a property.
func (s *Store) CreateProperty(ctx context.Context, p domain.Property) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO properties (id, organization_id, name) VALUES (:id, :organization_id, :name)`,
		propertyRow{ID: p.ID, OrganizationID: p.OrganizationID, Name: p.Name},
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("property %s: %w", p.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("inserting property: %w", err)
	}
	return nil
}

// CreateRoom inserts a room.
func (s *Store) CreateRoom(ctx context.Context, r domain.Room) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO rooms (id, property_id, name, capacity) VALUES (:id, :property_id, :name, :capacity)`,
		roomRow{ID: r.ID, PropertyID: r.PropertyID, Name: r.Name, Capacity: r.Capacity},
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("room %s: %w", r.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("inserting room: %w", err)
	}
	return nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	var row propertyRow
	err := s.db.GetContext(ctx, &row, `SELECT id, organization_id, name FROM properties WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Property{}, domain.ErrPropertyNotFound
		}
		return domain.Property{}, fmt.Errorf("getting property: %w", err)
	}
	return domain.Property{ID: row.ID, OrganizationID: row.OrganizationID, Name: row.Name}, nil
}

func (s *Store) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	var row roomRow
	err := s.db.GetContext(ctx, &row, `SELECT id, property_id, name, capacity FROM rooms WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, fmt.Errorf("getting room: %w", err)
	}
	return domain.Room{ID: row.ID, PropertyID: row.PropertyID, Name: row.Name, Capacity: row.Capacity}, nil
}
