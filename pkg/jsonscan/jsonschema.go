package jsonscan

import (
	"github.com/invopop/jsonschema"
)

var jsonSchemaTypes = map[string]string{
	TypeNull:    "null",
	TypeBoolean: "boolean",
	TypeNumber:  "number",
	TypeString:  "string",
	TypeArray:   "array",
	TypeObject:  "object",
}

// BuildJSONSchema describes the scanned files as an array of objects. A key
// seen with several types becomes an anyOf, and keys present in every object
// are required.
func BuildJSONSchema(report *Report) *jsonschema.Schema {
	item := &jsonschema.Schema{
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}

	for _, key := range report.Keys {
		item.Properties.Set(key.Key, propertySchema(key))
		if report.Objects > 0 && key.Total == report.Objects {
			item.Required = append(item.Required, key.Key)
		}
	}

	return &jsonschema.Schema{
		Version: jsonschema.Version,
		Type:    "array",
		Items:   item,
	}
}

func propertySchema(key KeyReport) *jsonschema.Schema {
	if len(key.Types) == 1 {
		return &jsonschema.Schema{Type: jsonSchemaTypes[key.Types[0].Type]}
	}

	prop := &jsonschema.Schema{}
	for _, t := range key.Types {
		prop.AnyOf = append(prop.AnyOf, &jsonschema.Schema{Type: jsonSchemaTypes[t.Type]})
	}
	return prop
}
