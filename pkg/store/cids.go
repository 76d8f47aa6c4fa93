package store

import (
	"bytes"
	"context"

	"gorm.io/gorm"

	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/models"
)

// PutCID stores content in the CID pool and returns its CID. The row is
// write-once: storing the same bytes again is a no-op, and a row holding
// different bytes under the same CID surfaces as ErrCIDConflict. Racing
// puts for the same CID converge to one row because the upsert and the
// equality check run in one transaction keyed on the primary key.
func (s *GORMStore) PutCID(ctx context.Context, content []byte, userID string) (string, error) {
	id := cid.Generate(content)
	path := "/" + id

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CIDRecord
		err := tx.Where("path = ?", path).First(&existing).Error
		switch {
		case err == nil:
			if !bytes.Equal(existing.FileData, content) {
				return models.ErrCIDConflict
			}
			return nil
		case convertNotFoundError(err, models.ErrCIDNotFound) == models.ErrCIDNotFound:
			record := &models.CIDRecord{
				Path:             path,
				FileData:         content,
				FileSize:         int64(len(content)),
				UploadedByUserID: userID,
			}
			if err := tx.Create(record).Error; err != nil {
				if isUniqueConstraintError(err) {
					// Lost a race to an identical put; verify equality.
					var raced models.CIDRecord
					if err := tx.Where("path = ?", path).First(&raced).Error; err != nil {
						return err
					}
					if !bytes.Equal(raced.FileData, content) {
						return models.ErrCIDConflict
					}
					return nil
				}
				return err
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetCID returns the bytes for a CID. Literal CIDs decode in place and
// never touch the store.
func (s *GORMStore) GetCID(ctx context.Context, id string) ([]byte, error) {
	if content, ok := cid.Decode(id); ok {
		return content, nil
	}

	var record models.CIDRecord
	err := s.db.WithContext(ctx).Where("path = ?", "/"+id).First(&record).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrCIDNotFound)
	}
	return record.FileData, nil
}

// CIDExists reports whether a CID resolves: literal CIDs always do, hashed
// CIDs when the pool has a row.
func (s *GORMStore) CIDExists(ctx context.Context, id string) (bool, error) {
	if cid.IsLiteral(id) {
		return true, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.CIDRecord{}).
		Where("path = ?", "/"+id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CIDPaths returns the set of stored CID paths ("/" + CID). The boot
// importer diffs referenced CIDs against this set before mutating anything.
func (s *GORMStore) CIDPaths(ctx context.Context) (map[string]struct{}, error) {
	var paths []string
	err := s.db.WithContext(ctx).
		Model(&models.CIDRecord{}).
		Pluck("path", &paths).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set, nil
}

// GetCIDRecord returns the full row for a CID path.
func (s *GORMStore) GetCIDRecord(ctx context.Context, id string) (*models.CIDRecord, error) {
	var record models.CIDRecord
	err := s.db.WithContext(ctx).Where("path = ?", "/"+id).First(&record).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrCIDNotFound)
	}
	return &record, nil
}
