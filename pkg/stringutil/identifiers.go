package stringutil

import "strings"

// LocalName returns the fragment or final path segment of an IRI, the
// same way Turtle property names are derived from a type IRI when a
// pipeline step's type maps to its internal handler variant (spec §4.4:
// "Step" suffix stripped from the local name).
//
// Examples:
//
//	LocalName("http://example.org/ns#TemplateStep") // returns "TemplateStep"
//	LocalName("http://example.org/ns/TemplateStep")  // returns "TemplateStep"
func LocalName(iri string) string {
	hash := strings.LastIndexByte(iri, '#')
	slash := strings.LastIndexByte(iri, '/')
	idx := hash
	if slash > idx {
		idx = slash
	}
	if idx < 0 {
		return iri
	}
	return iri[idx+1:]
}

// StepTypeFromIRI maps a step type IRI's local name to the internal
// step variant by stripping a trailing "Step" suffix and lowercasing
// the remainder, e.g. "TemplateStep" -> "template".
func StepTypeFromIRI(iri string) string {
	name := LocalName(iri)
	name = strings.TrimSuffix(name, "Step")
	return strings.ToLower(name)
}
