// Package extract calls the AI gateway that turns a photographed or scanned
// asset-inventory sheet into a raw draft record. The output is best-effort JSON;
// estate.Normalize owns making it well-formed.
package extract

import (
	"context"
	"encoding/json"
)

//go:generate mockgen -source=gateway.go -destination=mocks/gateway_mock.go -package=mocks Gateway

// File is the uploaded sheet as received from the client.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Gateway converts an uploaded inventory sheet into a raw draft record.
// Implementations report failures as a single opaque error; callers retry, they
// do not branch on the cause.
type Gateway interface {
	Extract(ctx context.Context, file File) (json.RawMessage, error)
}

// SupportedContentType reports whether the service accepts the given media type
// for extraction.
func SupportedContentType(ct string) bool {
	switch ct {
	case "image/jpeg", "image/png", "image/webp", "application/pdf":
		return true
	}
	return false
}
