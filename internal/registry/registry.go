package registry

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// isNoDocuments reports whether a db-layer write missed its target document.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
