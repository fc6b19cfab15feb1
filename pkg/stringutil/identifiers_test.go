package stringutil

import "testing"

func TestLocalName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"hash fragment", "http://example.org/ns#TemplateStep", "TemplateStep"},
		{"path segment", "http://example.org/ns/TemplateStep", "TemplateStep"},
		{"bare name", "TemplateStep", "TemplateStep"},
		{"slash after hash prefers path segment", "http://example.org/ns#types/Step", "Step"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LocalName(tt.input)
			if result != tt.expected {
				t.Errorf("LocalName(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStepTypeFromIRI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"sparql step", "http://example.org/ns#SparqlStep", "sparql"},
		{"template step", "http://example.org/ns#TemplateStep", "template"},
		{"file step", "http://example.org/ns#FileStep", "file"},
		{"http step", "http://example.org/ns#HttpStep", "http"},
		{"cli step", "http://example.org/ns#CliStep", "cli"},
		{"no Step suffix", "http://example.org/ns#Custom", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StepTypeFromIRI(tt.input)
			if result != tt.expected {
				t.Errorf("StepTypeFromIRI(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func BenchmarkLocalName(b *testing.B) {
	iri := "http://example.org/ns#TemplateStep"
	for i := 0; i < b.N; i++ {
		LocalName(iri)
	}
}
