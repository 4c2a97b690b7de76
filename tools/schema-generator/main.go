package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/grovetools/compass/cmd"
	"github.com/grovetools/compass/pkg/chat"
)

func writeSchema(r *jsonschema.Reflector, v any, title, description, path string) {
	schema := r.Reflect(v)
	schema.Title = title
	schema.Description = description

	// Every field is optional
	schema.Required = nil

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Successfully generated schema at %s", path)
}

func main() {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	writeSchema(r, &cmd.CompassConfig{},
		"Compass Configuration",
		"Schema for compass.yml.",
		"compass.schema.json")

	writeSchema(r, &chat.Frontmatter{},
		"Compass Transcript",
		"Schema for the frontmatter of a compass chat transcript.",
		"compass-transcript.schema.json")
}
