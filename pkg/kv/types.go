package kv

import (
	"fmt"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
)

// IndexType selects how keys of a store are ordered.
type IndexType string

const (
	IndexString IndexType = "string"
	IndexNumber IndexType = "number"
)

// ParseIndexType accepts "string" and "number".
func ParseIndexType(s string) (IndexType, error) {
	switch t := IndexType(s); t {
	case IndexString, IndexNumber:
		return t, nil
	default:
		return "", fmt.Errorf("kv: unknown index type %q", s)
	}
}

// Store is a key-value store of a pod.
type Store struct {
	Name    string
	Indexes []string
	Type    string
}

type storeRequest struct {
	PodName   string    `json:"pod_name"`
	TableName string    `json:"table_name"`
	IndexType IndexType `json:"indexType,omitempty"`
}

type entryRequest struct {
	PodName   string `json:"pod_name"`
	TableName string `json:"table_name"`
	Key       string `json:"key"`
	Value     string `json:"value,omitempty"`
}

type seekRequest struct {
	PodName     string  `json:"pod_name"`
	TableName   string  `json:"table_name"`
	StartPrefix string  `json:"start_prefix"`
	EndPrefix   *string `json:"end_prefix,omitempty"`
	Limit       *int    `json:"limit,omitempty"`
}

type listResponse struct {
	Tables []struct {
		TableName string   `json:"table_name"`
		Indexes   []string `json:"indexes"`
		Type      string   `json:"type"`
	} `json:"Tables"`
}

type entryResponse struct {
	Keys   []string `json:"keys"`
	Values string   `json:"values"`
}

type countResponse struct {
	Count dfsapi.Int64 `json:"count"`
}
