package docs

import (
	"fmt"
	"sort"
	"strings"
)

// FieldType is the type of an indexed field.
type FieldType int

// Wire values used by the server when listing databases.
const (
	FieldString FieldType = 2
	FieldNumber FieldType = 3
	FieldMap    FieldType = 4
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldNumber:
		return "number"
	case FieldMap:
		return "map"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// ParseFieldType accepts "string", "number" and "map".
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return FieldString, nil
	case "number":
		return FieldNumber, nil
	case "map":
		return FieldMap, nil
	default:
		return 0, fmt.Errorf("docs: unknown field type %q", s)
	}
}

// Field is an indexed field of a database.
type Field struct {
	Name string
	Type FieldType
}

// Database is a document database of a pod.
type Database struct {
	Name   string
	Fields []Field
}

// SimpleIndexes renders fields in the "name=type,..." form accepted by
// the create endpoint. Fields are sorted by name.
func SimpleIndexes(fields []Field) (string, error) {
	sorted := append([]Field(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		if strings.TrimSpace(f.Name) == "" {
			return "", fmt.Errorf("docs: field name is empty")
		}
		switch f.Type {
		case FieldString, FieldNumber, FieldMap:
		default:
			return "", fmt.Errorf("docs: field %q has unknown type %d", f.Name, int(f.Type))
		}
		parts = append(parts, f.Name+"="+f.Type.String())
	}
	return strings.Join(parts, ","), nil
}

type createRequest struct {
	PodName   string `json:"pod_name"`
	TableName string `json:"table_name"`
	Indexes   string `json:"si,omitempty"`
	Mutable   bool   `json:"mutable"`
}

type tableRequest struct {
	PodName   string `json:"pod_name"`
	TableName string `json:"table_name"`
}

type putRequest struct {
	PodName   string `json:"pod_name"`
	TableName string `json:"table_name"`
	Doc       string `json:"doc"`
}

type deleteRequest struct {
	PodName   string `json:"pod_name"`
	TableName string `json:"table_name"`
	ID        string `json:"id"`
}

type countRequest struct {
	PodName   string `json:"pod_name"`
	TableName string `json:"table_name"`
	Expr      string `json:"expr"`
}

type indexRequest struct {
	PodName   string `json:"pod_name"`
	TableName string `json:"table_name"`
	FileName  string `json:"file_name"`
}

type listResponse struct {
	Tables []struct {
		TableName string `json:"table_name"`
		Indexes   []struct {
			Name string    `json:"name"`
			Type FieldType `json:"type"`
		} `json:"indexes"`
	} `json:"Tables"`
}

type getResponse struct {
	Doc string `json:"doc"`
}

type findResponse struct {
	Docs []string `json:"docs"`
}
