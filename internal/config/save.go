package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// SaveTheme replaces the theme section of the config file, preserving
// comments and formatting elsewhere by editing the yaml.Node tree.
func SaveTheme(configPath string, theme ThemeConfig) error {
	if err := ValidateTheme(theme); err != nil {
		return err
	}
	return saveSection(configPath, "theme", buildThemeNode(theme))
}

// SaveFlag sets one feature flag in the config file.
func SaveFlag(configPath, name string, enabled bool) error {
	doc, err := readDoc(configPath)
	if err != nil {
		return err
	}
	flags := mappingValue(rootMapping(&doc), "flags")
	setScalar(flags, name, fmt.Sprintf("%t", enabled), "!!bool")
	return writeDoc(configPath, &doc)
}

func saveSection(configPath, key string, value *yaml.Node) error {
	doc, err := readDoc(configPath)
	if err != nil {
		return err
	}
	root := rootMapping(&doc)
	for i := 0; i < len(root.Content)-1; i += 2 {
		if root.Content[i].Value == key {
			// Keep the comment attached to the old value.
			value.HeadComment = root.Content[i+1].HeadComment
			root.Content[i+1] = value
			return writeDoc(configPath, &doc)
		}
	}
	root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
	return writeDoc(configPath, &doc)
}

func readDoc(configPath string) (yaml.Node, error) {
	var doc yaml.Node
	data, err := os.ReadFile(configPath) //nolint:gosec // G304: user config path
	if err != nil && !os.IsNotExist(err) {
		return doc, fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("parsing config: %w", err)
		}
	}
	return doc, nil
}

// rootMapping returns the top-level mapping, creating the document
// structure for an empty file.
func rootMapping(doc *yaml.Node) *yaml.Node {
	if doc.Kind == 0 || len(doc.Content) == 0 {
		*doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		*root = yaml.Node{Kind: yaml.MappingNode}
	}
	return root
}

// mappingValue returns the mapping stored under key in m, adding an empty
// one if the key is missing or holds something else.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i < len(m.Content)-1; i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			if v.Kind != yaml.MappingNode {
				*v = yaml.Node{Kind: yaml.MappingNode}
			}
			return v
		}
	}
	v := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, v)
	return v
}

func setScalar(m *yaml.Node, key, value, tag string) {
	for i := 0; i < len(m.Content)-1; i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1].Kind = yaml.ScalarNode
			m.Content[i+1].Value = value
			m.Content[i+1].Tag = tag
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value, Tag: tag},
	)
}

func buildThemeNode(theme ThemeConfig) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	if theme.Preset != "" {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "preset"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: theme.Preset},
		)
	}
	if len(theme.Colors) > 0 {
		names := make([]string, 0, len(theme.Colors))
		for name := range theme.Colors {
			names = append(names, name)
		}
		sort.Strings(names)

		colors := &yaml.Node{Kind: yaml.MappingNode}
		for _, name := range names {
			colors.Content = append(colors.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: name},
				&yaml.Node{Kind: yaml.ScalarNode, Value: theme.Colors[name], Style: yaml.DoubleQuotedStyle},
			)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "colors"},
			colors,
		)
	}
	return node
}

// writeDoc encodes doc and replaces configPath atomically (temp file, then rename).
func writeDoc(configPath string, doc *yaml.Node) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".pyedit.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
