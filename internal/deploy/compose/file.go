// Package compose parses a docker compose file and checks that the app and
// database services are wired together consistently.
package compose

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type File struct {
	Services map[string]Service `yaml:"services"`
	Volumes  map[string]any     `yaml:"volumes"`
}

type Build struct {
	Context string            `yaml:"context"`
	Args    map[string]string `yaml:"args"`
}

type Service struct {
	Image       string            `yaml:"image"`
	Build       *Build            `yaml:"build"`
	Ports       []string          `yaml:"ports"`
	Volumes     []string          `yaml:"volumes"`
	Environment map[string]string `yaml:"environment"`
	DependsOn   []string          `yaml:"depends_on"`
	Command     string            `yaml:"command"`
}

// Load reads and parses the compose file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compose file %s: %w", path, err)
	}
	return f, nil
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Services) == 0 {
		return nil, fmt.Errorf("no services defined")
	}
	return &f, nil
}

// UnmarshalYAML accepts both the short and the long compose syntax for the
// fields that allow either.
func (s *Service) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Image       string    `yaml:"image"`
		Build       yaml.Node `yaml:"build"`
		Ports       yaml.Node `yaml:"ports"`
		Volumes     yaml.Node `yaml:"volumes"`
		Environment yaml.Node `yaml:"environment"`
		DependsOn   yaml.Node `yaml:"depends_on"`
		Command     yaml.Node `yaml:"command"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	var err error
	s.Image = raw.Image
	if s.Build, err = decodeBuild(&raw.Build); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if s.Ports, err = decodePorts(&raw.Ports); err != nil {
		return fmt.Errorf("ports: %w", err)
	}
	if s.Volumes, err = decodeVolumes(&raw.Volumes); err != nil {
		return fmt.Errorf("volumes: %w", err)
	}
	if s.Environment, err = decodeKeyValues(&raw.Environment); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if s.DependsOn, err = decodeNames(&raw.DependsOn); err != nil {
		return fmt.Errorf("depends_on: %w", err)
	}
	if s.Command, err = decodeCommand(&raw.Command); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

func isUnset(n *yaml.Node) bool {
	return n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func decodeBuild(n *yaml.Node) (*Build, error) {
	switch {
	case isUnset(n):
		return nil, nil
	case n.Kind == yaml.ScalarNode:
		return &Build{Context: n.Value}, nil
	case n.Kind == yaml.MappingNode:
		var raw struct {
			Context string    `yaml:"context"`
			Args    yaml.Node `yaml:"args"`
		}
		if err := n.Decode(&raw); err != nil {
			return nil, err
		}
		args, err := decodeKeyValues(&raw.Args)
		if err != nil {
			return nil, fmt.Errorf("args: %w", err)
		}
		return &Build{Context: raw.Context, Args: args}, nil
	default:
		return nil, fmt.Errorf("line %d: expected string or mapping", n.Line)
	}
}

// decodeKeyValues reads either a KEY=VALUE list or a mapping.
func decodeKeyValues(n *yaml.Node) (map[string]string, error) {
	if isUnset(n) {
		return nil, nil
	}
	out := map[string]string{}
	switch n.Kind {
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: expected KEY=VALUE string", item.Line)
			}
			key, value, _ := strings.Cut(item.Value, "=")
			out[strings.TrimSpace(key)] = value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if isUnset(value) {
				out[key.Value] = ""
				continue
			}
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: value of %s must be a scalar", value.Line, key.Value)
			}
			out[key.Value] = value.Value
		}
	default:
		return nil, fmt.Errorf("line %d: expected list or mapping", n.Line)
	}
	return out, nil
}

// decodeNames reads a list of names or the keys of a mapping.
func decodeNames(n *yaml.Node) ([]string, error) {
	if isUnset(n) {
		return nil, nil
	}
	var out []string
	switch n.Kind {
	case yaml.SequenceNode:
		for _, item := range n.Content {
			out = append(out, item.Value)
		}
	case yaml.MappingNode:
		for i := 0; i < len(n.Content); i += 2 {
			out = append(out, n.Content[i].Value)
		}
	default:
		return nil, fmt.Errorf("line %d: expected list or mapping", n.Line)
	}
	return out, nil
}

func decodeCommand(n *yaml.Node) (string, error) {
	switch {
	case isUnset(n):
		return "", nil
	case n.Kind == yaml.ScalarNode:
		return strings.TrimSpace(n.Value), nil
	case n.Kind == yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			parts = append(parts, item.Value)
		}
		return strings.Join(parts, " "), nil
	default:
		return "", fmt.Errorf("line %d: expected string or list", n.Line)
	}
}

// decodePorts normalises long syntax entries to the short [IP:]HOST:CONTAINER[/PROTO] form.
func decodePorts(n *yaml.Node) ([]string, error) {
	if isUnset(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected list", n.Line)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, item.Value)
		case yaml.MappingNode:
			var long struct {
				Target    int    `yaml:"target"`
				Published string `yaml:"published"`
				HostIP    string `yaml:"host_ip"`
				Protocol  string `yaml:"protocol"`
			}
			if err := item.Decode(&long); err != nil {
				return nil, err
			}
			spec := strconv.Itoa(long.Target)
			if long.Published != "" {
				spec = long.Published + ":" + spec
				if long.HostIP != "" {
					spec = long.HostIP + ":" + spec
				}
			}
			if long.Protocol != "" {
				spec += "/" + long.Protocol
			}
			out = append(out, spec)
		default:
			return nil, fmt.Errorf("line %d: unsupported port entry", item.Line)
		}
	}
	return out, nil
}

// decodeVolumes normalises long syntax entries to SOURCE:TARGET[:ro].
func decodeVolumes(n *yaml.Node) ([]string, error) {
	if isUnset(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected list", n.Line)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, item.Value)
		case yaml.MappingNode:
			var long struct {
				Source   string `yaml:"source"`
				Target   string `yaml:"target"`
				ReadOnly bool   `yaml:"read_only"`
			}
			if err := item.Decode(&long); err != nil {
				return nil, err
			}
			spec := long.Target
			if long.Source != "" {
				spec = long.Source + ":" + spec
			}
			if long.ReadOnly {
				spec += ":ro"
			}
			out = append(out, spec)
		default:
			return nil, fmt.Errorf("line %d: unsupported volume entry", item.Line)
		}
	}
	return out, nil
}
