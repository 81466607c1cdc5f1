package model

import "time"

type ExtractionRecord struct {
	ID           string `gorm:"primaryKey" bson:"_id" json:"_id"`
	UserID       string `gorm:"index;not null" bson:"user" json:"user"`
	DocumentType string `gorm:"not null" bson:"documentType" json:"documentType"`

	// Whatever JSON object the OCR worker printed. The shape depends on the
	// worker script and the document type so it's kept opaque
	Extracted        map[string]any `gorm:"serializer:json" bson:"extracted" json:"extracted"`
	OriginalFileName string         `bson:"originalFileName" json:"originalFileName"`

	// S3 key of the uploaded document, empty when archiving is off or failed
	ArchiveKey string `bson:"archiveKey,omitempty" json:"archiveKey,omitempty"`

	CreatedAt time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
