package repository

import (
	"context"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
)

// ServiceCatalogRepository reads the service catalog. The catalog is consumed
// as a key-to-metadata map; missing ids simply stay absent from the result.
type ServiceCatalogRepository struct {
	db DBTX
}

func NewServiceCatalogRepository(db DBTX) *ServiceCatalogRepository {
	return &ServiceCatalogRepository{db: db}
}

func (r *ServiceCatalogRepository) GetMetadata(ctx context.Context, ids []int64) (map[int64]models.ServiceMetadata, error) {
	metadata := make(map[int64]models.ServiceMetadata, len(ids))
	if len(ids) == 0 {
		return metadata, nil
	}

	query := `
		SELECT id, title, category, slug
		FROM services
		WHERE id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var service models.ServiceMetadata
		if err := rows.Scan(&service.ID, &service.Title, &service.Category, &service.Slug); err != nil {
			return nil, err
		}
		metadata[service.ID] = service
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return metadata, nil
}
