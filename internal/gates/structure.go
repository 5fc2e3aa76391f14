package gates

// requiredFields maps artifact kinds to the JSON-LD fields each must carry.
// Kinds outside this table only need the JSON-LD envelope.
var requiredFields = map[string][]string{
	"organization":         {"@context", "@type", "name", "url", "description"},
	"software-application": {"@context", "@type", "name", "applicationCategory", "description"},
	"faq-page":             {"@context", "@type", "mainEntity"},
	"blog-posting":         {"@context", "@type", "headline", "articleBody"},
}

var envelopeFields = []string{"@context", "@type"}

// CheckStructure returns the required fields missing or empty in data, in
// schema order. An empty result means the structure gate passes.
func CheckStructure(kind string, data map[string]any) []string {
	fields, ok := requiredFields[kind]
	if !ok {
		fields = envelopeFields
	}

	var missing []string
	for _, field := range fields {
		if !fieldPresent(data[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

func fieldPresent(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case string:
		return value != ""
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		return true
	}
}
