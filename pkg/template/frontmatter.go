package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// InjectSpec is one `inject[]` front-matter entry.
type InjectSpec struct {
	Into  string `yaml:"into" toml:"into" json:"into"`
	Snippet string `yaml:"snippet" toml:"snippet" json:"snippet"`
	Find  string `yaml:"find" toml:"find" json:"find"`
	Where string `yaml:"where" toml:"where" json:"where"`
	Once  *bool  `yaml:"once" toml:"once" json:"once"`
}

// CopySpec is one `copy[]` front-matter entry.
type CopySpec struct {
	From string `yaml:"from" toml:"from" json:"from"`
	To   string `yaml:"to" toml:"to" json:"to"`
}

// ShellHooks names pre/post shell command references, resolved against
// the execution context's CLI allow-list.
type ShellHooks struct {
	Before []string `yaml:"before" toml:"before" json:"before"`
	After  []string `yaml:"after" toml:"after" json:"after"`
}

// FrontMatter is the parsed directive block preceding a template body.
type FrontMatter struct {
	To         []string     `yaml:"-" toml:"-" json:"-"`
	ToRaw      any          `yaml:"to" toml:"to" json:"to"`
	Force      string       `yaml:"force" toml:"force" json:"force"`
	When       string       `yaml:"when" toml:"when" json:"when"`
	Inject     []InjectSpec `yaml:"inject" toml:"inject" json:"inject"`
	Copy       []CopySpec   `yaml:"copy" toml:"copy" json:"copy"`
	Sh         ShellHooks   `yaml:"sh" toml:"sh" json:"sh"`
	BaseIRI    string       `yaml:"baseIRI" toml:"baseIRI" json:"baseIRI"`
	QueryName  string       `yaml:"queryName" toml:"queryName" json:"queryName"`
	EntityType string       `yaml:"entityType" toml:"entityType" json:"entityType"`

	Warnings []string `yaml:"-" toml:"-" json:"-"`
}

var recognizedFields = map[string]bool{
	"to": true, "force": true, "when": true, "inject": true, "copy": true,
	"sh": true, "baseIRI": true, "queryName": true, "entityType": true,
}

// SplitFrontMatter separates a raw template file's leading directive
// block (`---` YAML, `+++` TOML, or a single `;`-terminated JSON line)
// from its body. Returns a nil FrontMatter when the source carries none.
func SplitFrontMatter(src string) (*FrontMatter, string, error) {
	trimmed := strings.TrimLeft(src, "\n")
	switch {
	case strings.HasPrefix(trimmed, "---\n") || trimmed == "---":
		return splitDelimited(trimmed, "---", parseYAML)
	case strings.HasPrefix(trimmed, "+++\n") || trimmed == "+++":
		return splitDelimited(trimmed, "+++", parseTOML)
	case strings.HasPrefix(trimmed, "{"):
		return splitJSONLine(trimmed)
	default:
		return nil, src, nil
	}
}

func splitDelimited(src, delim string, parse func([]byte) (*FrontMatter, error)) (*FrontMatter, string, error) {
	rest := src[len(delim):]
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return nil, "", &SyntaxError{Reason: "unterminated front-matter block (missing closing " + delim + ")"}
	}
	block := rest[:end]
	body := rest[end+len("\n"+delim):]
	body = strings.TrimPrefix(body, "\n")
	fm, err := parse([]byte(block))
	if err != nil {
		return nil, "", err
	}
	if err := finalizeFrontMatter(fm); err != nil {
		return nil, "", err
	}
	return fm, body, nil
}

func splitJSONLine(src string) (*FrontMatter, string, error) {
	end := strings.IndexByte(src, ';')
	if end < 0 {
		return nil, "", &SyntaxError{Reason: "unterminated JSON front-matter line (missing ';')"}
	}
	line := src[:end]
	body := strings.TrimPrefix(src[end+1:], "\n")
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, "", &SyntaxError{Reason: "invalid JSON front-matter: " + err.Error()}
	}
	reencoded, err := json.Marshal(raw)
	if err != nil {
		return nil, "", err
	}
	fm := &FrontMatter{}
	if err := json.Unmarshal(reencoded, fm); err != nil {
		return nil, "", err
	}
	collectWarnings(fm, raw)
	if err := finalizeFrontMatter(fm); err != nil {
		return nil, "", err
	}
	return fm, body, nil
}

func parseYAML(block []byte) (*FrontMatter, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(block, &raw); err != nil {
		return nil, &SyntaxError{Reason: "invalid YAML front-matter: " + err.Error()}
	}
	fm := &FrontMatter{}
	if err := yaml.Unmarshal(block, fm); err != nil {
		return nil, &SyntaxError{Reason: "invalid YAML front-matter: " + err.Error()}
	}
	collectWarnings(fm, raw)
	return fm, nil
}

func parseTOML(block []byte) (*FrontMatter, error) {
	var raw map[string]any
	if err := toml.Unmarshal(block, &raw); err != nil {
		return nil, &SyntaxError{Reason: "invalid TOML front-matter: " + err.Error()}
	}
	fm := &FrontMatter{}
	if err := toml.Unmarshal(block, fm); err != nil {
		return nil, &SyntaxError{Reason: "invalid TOML front-matter: " + err.Error()}
	}
	collectWarnings(fm, raw)
	return fm, nil
}

func collectWarnings(fm *FrontMatter, raw map[string]any) {
	for k := range raw {
		if !recognizedFields[k] {
			fm.Warnings = append(fm.Warnings, fmt.Sprintf("unrecognized front-matter field: %q", k))
		}
	}
}

func finalizeFrontMatter(fm *FrontMatter) error {
	if fm.Force == "" {
		fm.Force = "error"
	}
	switch v := fm.ToRaw.(type) {
	case nil:
		fm.To = nil
	case string:
		fm.To = []string{v}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return &SyntaxError{Reason: "front-matter `to` list must contain only strings"}
			}
			fm.To = append(fm.To, s)
		}
	case []string:
		fm.To = v
	default:
		return &SyntaxError{Reason: "front-matter `to` must be a string or list of strings"}
	}
	for i := range fm.Inject {
		if fm.Inject[i].Where == "" {
			fm.Inject[i].Where = "after"
		}
		if fm.Inject[i].Once == nil {
			t := true
			fm.Inject[i].Once = &t
		}
	}
	return nil
}
