package extract

import (
	"bufio"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter carries document-level defaults declared in a leading YAML
// block fenced by "---" lines.
type frontMatter struct {
	Parties []string `yaml:"parties"`
	Tags    []string `yaml:"tags"`
}

// splitFrontMatter separates an optional leading YAML block from the body.
// A document without a front matter fence is returned unchanged with empty
// metadata. An opened but unclosed fence is an error.
func splitFrontMatter(content string) (frontMatter, string, error) {
	var fm frontMatter

	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return fm, content, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Scan() // consume the opening fence

	var yamlLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		yamlLines = append(yamlLines, line)
	}
	if !closed {
		return fm, "", fmt.Errorf("unclosed front matter block")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}

	if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &fm); err != nil {
		return frontMatter{}, "", fmt.Errorf("parse front matter: %w", err)
	}
	return fm, strings.Join(bodyLines, "\n"), nil
}
