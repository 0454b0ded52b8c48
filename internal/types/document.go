//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// DocumentVersion is the schema version stamped on every stored document
const DocumentVersion = "2.0"

// CVMetadata is the bookkeeping attached to a stored CVData
type CVMetadata struct {
	CVID         string    `json:"cv_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
	Version      string    `json:"version"`
}

// CVDocument is the persisted unit: metadata plus data
type CVDocument struct {
	Metadata CVMetadata `json:"metadata"`
	Data     CVData     `json:"data"`
}

// CVSummary is the listing projection of a document
type CVSummary struct {
	CVID         string    `json:"cv_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
	Version      string    `json:"version"`
}

// Summary projects the document for listings
func (d *CVDocument) Summary() CVSummary {
	return CVSummary{
		CVID:         d.Metadata.CVID,
		Name:         d.Data.PersonalInfo.FullName,
		CreatedAt:    d.Metadata.CreatedAt,
		LastModified: d.Metadata.LastModified,
		Version:      d.Metadata.Version,
	}
}
