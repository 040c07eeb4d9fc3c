package domain

import "time"

// UploadResult is what a completed upload pipeline hands back to the caller.
type UploadResult struct {
	RootAddress       Address
	ManifestReference Address
	ChunkCount        int
	Size              int64
}

// UploadRecord - persisted summary of a completed upload
type UploadRecord struct {
	FileName          string    `json:"file_name" dynamodbav:"file_name"`       // Partition Key
	RootAddress       string    `json:"root_address" dynamodbav:"root_address"` // Sort Key
	ManifestReference string    `json:"manifest_reference" dynamodbav:"manifest_reference"`
	ContentType       string    `json:"content_type" dynamodbav:"content_type"`
	Size              int64     `json:"size" dynamodbav:"size"`
	ChunkCount        int       `json:"chunk_count" dynamodbav:"chunk_count"`
	BatchID           string    `json:"batch_id" dynamodbav:"batch_id"`
	UploadedAt        time.Time `json:"uploaded_at" dynamodbav:"uploaded_at"`
}

// NewUploadRecord describes a finished upload of filename.
func NewUploadRecord(filename, contentType string, batch PostageBatch, result UploadResult, at time.Time) UploadRecord {
	return UploadRecord{
		FileName:          filename,
		RootAddress:       result.RootAddress.String(),
		ManifestReference: result.ManifestReference.String(),
		ContentType:       contentType,
		Size:              result.Size,
		ChunkCount:        result.ChunkCount,
		BatchID:           batch.BatchIDHex(),
		UploadedAt:        at.UTC(),
	}
}
