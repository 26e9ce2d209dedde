package testtype

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type file struct {
	Tests []TestType `yaml:"tests"`
}

// Parse decodes and compiles test types from YAML.
//
//	tests:
//	  - name: SQLI_ERRORS
//	    severity: high
//	    checks: [literal_match]
//	    failure_strings: ["SQL syntax"]
//	    triggers:
//	      - name: sql_error
//	        pattern: LITERAL_MATCH
//	        text: "SQL error reflected for {{ .Parameter }}"
func Parse(data []byte) ([]TestType, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTestType, err)
	}
	seen := make(map[string]bool, len(f.Tests))
	for i := range f.Tests {
		if err := f.Tests[i].Compile(); err != nil {
			return nil, err
		}
		if seen[f.Tests[i].Name] {
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidTestType, f.Tests[i].Name)
		}
		seen[f.Tests[i].Name] = true
	}
	return f.Tests, nil
}

// LoadFile reads test types from a YAML file.
func LoadFile(path string) ([]TestType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testtype: read %s: %w", path, err)
	}
	tests, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tests, nil
}

// Select returns the test types in all whose names are in names, in the
// order given. Names match case-insensitively; an empty names selects
// everything.
func Select(all []TestType, names []string) ([]TestType, error) {
	if len(names) == 0 {
		return all, nil
	}
	out := make([]TestType, 0, len(names))
	for _, n := range names {
		found := false
		for _, tt := range all {
			if strings.EqualFold(tt.Name, n) {
				out = append(out, tt)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: unknown test %q", ErrInvalidTestType, n)
		}
	}
	return out, nil
}
