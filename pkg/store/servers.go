package store

import (
	"context"

	"github.com/hashbeam/cidhub/pkg/models"
)

// GetServer retrieves one server by owner and name.
func (s *GORMStore) GetServer(ctx context.Context, userID, name string) (*models.Server, error) {
	return getByUserName[models.Server](s.db, ctx, userID, name, models.ErrServerNotFound)
}

// GetEnabledServer retrieves a server only if it is enabled. Routing uses
// this so disabled servers fall through to CID resolution.
func (s *GORMStore) GetEnabledServer(ctx context.Context, userID, name string) (*models.Server, error) {
	var result models.Server
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ? AND enabled = ?", userID, name, true).
		First(&result).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrServerNotFound)
	}
	return &result, nil
}

// ListServers returns all servers owned by userID, name-ordered.
func (s *GORMStore) ListServers(ctx context.Context, userID string) ([]*models.Server, error) {
	return listByUser[models.Server](s.db, ctx, userID)
}

// ListEnabledServers returns the enabled servers for context materialization.
func (s *GORMStore) ListEnabledServers(ctx context.Context, userID string) ([]*models.Server, error) {
	var results []*models.Server
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND enabled = ?", userID, true).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CreateServer inserts a new server. The definition bytes are written to
// the CID pool first and DefinitionCID is set from that write, so every
// definition that ever existed is content-addressable.
func (s *GORMStore) CreateServer(ctx context.Context, server *models.Server) error {
	defCID, err := s.PutCID(ctx, []byte(server.Definition), server.UserID)
	if err != nil {
		return err
	}
	server.DefinitionCID = defCID

	_, err = createWithID(s.db, ctx, server,
		func(sv *models.Server, id string) { sv.ID = id },
		server.ID, models.ErrDuplicateServer)
	if err != nil {
		return err
	}
	return s.AddInteraction(ctx, server.UserID, models.EntityServer, server.Name,
		models.ActionCreate, "", server.Definition)
}

// UpdateServer rewrites a server definition, stores the new definition
// bytes as a CID, and refreshes DefinitionCID.
func (s *GORMStore) UpdateServer(ctx context.Context, server *models.Server) error {
	existing, err := s.GetServer(ctx, server.UserID, server.Name)
	if err != nil {
		return err
	}

	defCID, err := s.PutCID(ctx, []byte(server.Definition), server.UserID)
	if err != nil {
		return err
	}
	server.DefinitionCID = defCID

	err = s.db.WithContext(ctx).
		Model(existing).
		Select("Definition", "DefinitionCID", "Enabled").
		Updates(server).Error
	if err != nil {
		return err
	}
	return s.AddInteraction(ctx, server.UserID, models.EntityServer, server.Name,
		models.ActionUpdate, "", server.Definition)
}

// DeleteServer removes a server row. Its definition CIDs stay in the pool;
// the store is append-mostly and CID rows are never deleted by entity
// lifecycle.
func (s *GORMStore) DeleteServer(ctx context.Context, userID, name string) error {
	if err := deleteByUserName[models.Server](s.db, ctx, userID, name, models.ErrServerNotFound); err != nil {
		return err
	}
	return s.AddInteraction(ctx, userID, models.EntityServer, name, models.ActionDelete, "", "")
}
