package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"bpaudit/pkg/anomaly"
	"bpaudit/pkg/model"
	"bpaudit/pkg/report"
)

var schemaOutputDir string

var generateSchemaCmd = &cobra.Command{
	Use:   "generate-schema",
	Short: "Generate JSON Schema files for the model and report types",
	Example: `  bpaudit generate-schema
  bpaudit generate-schema --output ./custom-schema-dir`,
	RunE: runGenerateSchema,
}

func init() {
	rootCmd.AddCommand(generateSchemaCmd)
	generateSchemaCmd.Flags().StringVarP(&schemaOutputDir, "output", "o", "./schema", "output directory for schema files")
}

func runGenerateSchema(cmd *cobra.Command, args []string) error {
	logVerbose("generating JSON schemas into %s", schemaOutputDir)

	if err := os.MkdirAll(schemaOutputDir, 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	schemas := []struct {
		name string
		typ  interface{}
	}{
		{"unit", &model.Unit{}},
		{"weapon", &model.Weapon{}},
		{"projectile", &model.Projectile{}},
		{"finding", &anomaly.Finding{}},
		{"scan-report", &report.Document{}},
	}

	for _, s := range schemas {
		if err := generateSchema(schemaOutputDir, s.name, s.typ); err != nil {
			return fmt.Errorf("generate schema for %s: %w", s.name, err)
		}
		fmt.Printf("generated: %s.schema.json\n", s.name)
	}

	return nil
}

func generateSchema(outputDir, name string, typ interface{}) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            false,
	}

	schema := reflector.Reflect(typ)
	schema.Title = name
	schema.Version = "https://json-schema.org/draft/2020-12/schema"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	filename := filepath.Join(outputDir, name+".schema.json")
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}
	return nil
}
