package interfaces

import "context"

// StorageService is the object store reports are archived to.
type StorageService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GetPublicURL(key string) string
}
