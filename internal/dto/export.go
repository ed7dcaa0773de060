package dto

import "github.com/therafiali/internal-app-sub000/pkg/export"

// ExportQuery selects the request collection, format and filters of an export.
type ExportQuery struct {
	Type   string
	Format export.Format
	Query  RequestQuery
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Rows        int
	Payload     []byte
}
