// Schema Generator
//
// Generates JSON Schema files from the API request and response types so
// web clients can derive their validators from the Go definitions.
//
// Usage:
//
//	go run ./cmd/schema-gen [-out schemas]
//
// Output:
//
//	schemas/auth.json
//	schemas/prices.json
//	schemas/comparison.json
//	schemas/admin.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/exchangerate"
	"github.com/grocerycompare/price-service/internal/handlers"
	"github.com/grocerycompare/price-service/internal/i18n"
	"github.com/grocerycompare/price-service/internal/pricing"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

func schemaGroups() []SchemaGroup {
	return []SchemaGroup{
		{
			Name: "auth",
			Types: []any{
				handlers.CredentialsRequest{},
				handlers.SignUpResponse{},
				handlers.SessionResponse{},
				handlers.MeResponse{},
				handlers.ErrorResponse{},
			},
			Output: "auth.json",
		},
		{
			Name: "prices",
			Types: []any{
				entries.Input{},
				handlers.BulkDeleteRequest{},
				pricing.Entry{},
				handlers.ListPricesResponse{},
				handlers.SuggestionsResponse{},
				entries.BulkResult{},
			},
			Output: "prices.json",
		},
		{
			Name: "comparison",
			Types: []any{
				handlers.ComparisonRow{},
				handlers.ComparisonResponse{},
				exchangerate.Record{},
				handlers.TranslationsResponse{},
			},
			Output: "comparison.json",
		},
		{
			Name: "admin",
			Types: []any{
				handlers.ContributorRequest{},
				handlers.AccessRequestView{},
				handlers.ListRequestsResponse{},
				handlers.ListUsersResponse{},
				i18n.Translation{},
				handlers.TranslationListResponse{},
			},
			Output: "admin.json",
		},
	}
}

func main() {
	outputDir := flag.String("out", "schemas", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range schemaGroups() {
		schema := generateGroupSchema(group)
		outputPath := filepath.Join(*outputDir, group.Output)

		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", outputPath)
	}

	fmt.Println("Schema generation complete!")
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{}

	definitions := make(map[string]any)
	for _, t := range group.Types {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://grocerycompare.app/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
