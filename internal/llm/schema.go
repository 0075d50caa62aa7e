package llm

// numericFields are counts and amounts the prompt asks for as bare numbers.
var numericFields = []string{
	"num_school_lic", "num_district_lic", "cost_per_lic", "cost_total", "contract_length_years",
}

var yearFields = []string{"contract_start_year", "install_year", "quote_year"}

var monthFields = []string{"contract_start_month", "install_month", "quote_month"}

var textFields = []string{
	"vendor", "school_name", "approx_level", "use_type", "host_type", "misc_notes",
}

// BuildRecordJSONSchema returns a JSON-Schema (draft 2020-12 subset) for one
// model-emitted software object. It is used for soft validation only:
// violations are logged and counted, never rejected.
func BuildRecordJSONSchema() map[string]any {
	props := map[string]any{
		"software": map[string]any{"type": "string", "minLength": 1},
	}
	for _, k := range textFields {
		props[k] = map[string]any{"type": []string{"string", "null"}}
	}
	for _, k := range numericFields {
		props[k] = numericProp()
	}
	for _, k := range yearFields {
		props[k] = map[string]any{
			"type":    []string{"string", "integer", "null"},
			"pattern": `^(\d{4})?$`,
			"minimum": 1900,
			"maximum": 2100,
		}
	}
	for _, k := range monthFields {
		props[k] = map[string]any{"type": []string{"string", "null"}}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties":           props,
		"required":             []string{"software"},
	}
}

// numericProp accepts JSON numbers or digit strings without currency symbols.
func numericProp() map[string]any {
	return map[string]any{
		"type":    []string{"string", "number", "null"},
		"pattern": `^(\d[\d,]*(\.\d+)?)?$`,
		"minimum": 0,
	}
}
