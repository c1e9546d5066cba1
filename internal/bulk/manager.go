package bulk

import (
	"github.com/rpattn/ckanbulk/internal/query"
)

// Manager describes how one entity type is searched and shown.
type Manager struct {
	EntityType   string
	SearchAction string
	ShowAction   string
	Resolver     *query.FieldResolver
}

// DatasetManager handles CKAN datasets.
func DatasetManager() Manager {
	return Manager{
		EntityType:   "dataset",
		SearchAction: "package_search",
		ShowAction:   "package_show",
		Resolver:     query.DatasetResolver(),
	}
}
