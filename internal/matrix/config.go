package matrix

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// EntryKind tells how a top-level browser entry expands
type EntryKind int

const (
	// KindSingle entries carry their version directly
	KindSingle EntryKind = iota
	// KindMulti entries carry a versions mapping
	KindMulti
)

// VersionKind tells how one value of a versions mapping expands
type VersionKind int

const (
	// VersionScalar is a bare version value
	VersionScalar VersionKind = iota
	// VersionObject is a nested object with its own fields and optional devices
	VersionObject
	// VersionPlaceholder is an explicit null: no browser is available for the slot
	VersionPlaceholder
)

// Fields are the raw, unnormalized browser fields of an entry. A nil field was not set.
type Fields struct {
	Name      any
	Version   any
	OS        any
	OSVersion any
	Device    any
}

// inherit fills every unset field from parent
func (f Fields) inherit(parent Fields) Fields {
	if f.Name == nil {
		f.Name = parent.Name
	}
	if f.Version == nil {
		f.Version = parent.Version
	}
	if f.OS == nil {
		f.OS = parent.OS
	}
	if f.OSVersion == nil {
		f.OSVersion = parent.OSVersion
	}
	if f.Device == nil {
		f.Device = parent.Device
	}
	return f
}

// VersionEntry is one value of a versions mapping
type VersionEntry struct {
	Key     string
	Kind    VersionKind
	Fields  Fields
	Devices []any
}

// Entry is one top-level browser entry keyed by display name
type Entry struct {
	DisplayName string
	Kind        EntryKind
	Fields      Fields
	Devices     []any
	Versions    []VersionEntry
}

// Config is a parsed browsers mapping in document order
type Config struct {
	Entries []Entry
}

// Parse decodes a YAML or JSON browsers mapping
func Parse(data []byte) (Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Config{}, configErr("", "", "invalid browsers document: %v", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return Config{}, nil
	}
	return ParseNode(root.Content[0])
}

// ParseNode decodes a browsers mapping that is already part of a larger YAML document
func ParseNode(node *yaml.Node) (Config, error) {
	node = resolveAlias(node)
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		return Config{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return Config{}, configErr("", "", "browsers must be a mapping of display name to browser entry")
	}

	var cfg Config
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		entry, err := parseEntry(name, resolveAlias(node.Content[i+1]))
		if err != nil {
			return Config{}, err
		}
		cfg.Entries = append(cfg.Entries, entry)
	}
	return cfg, nil
}

// FromDefinitions turns resolved definitions back into single-version entries
func FromDefinitions(defs []models.BrowserDefinition) Config {
	cfg := Config{Entries: make([]Entry, 0, len(defs))}
	for _, d := range defs {
		f := Fields{Name: d.Name, Version: d.Version, OS: d.OS, OSVersion: d.OSVersion}
		if d.Device != "" {
			f.Device = d.Device
		}
		cfg.Entries = append(cfg.Entries, Entry{DisplayName: d.DisplayName, Kind: KindSingle, Fields: f})
	}
	return cfg
}

func parseEntry(displayName string, node *yaml.Node) (Entry, error) {
	if node.Kind != yaml.MappingNode {
		return Entry{}, configErr(displayName, "", "browser entry must be a mapping")
	}

	entry := Entry{DisplayName: displayName, Kind: KindSingle}
	var versions *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := resolveAlias(node.Content[i+1])

		if key == "versions" {
			if !isNull(value) {
				versions = value
			}
			continue
		}
		if key == "devices" {
			devices, err := parseDevices(displayName, value)
			if err != nil {
				return Entry{}, err
			}
			entry.Devices = devices
			continue
		}
		if err := setField(&entry.Fields, displayName, key, value); err != nil {
			return Entry{}, err
		}
	}

	if versions == nil {
		return entry, nil
	}
	if versions.Kind != yaml.MappingNode {
		return Entry{}, configErr(displayName, "versions", "versions must be a mapping")
	}

	entry.Kind = KindMulti
	for i := 0; i+1 < len(versions.Content); i += 2 {
		v, err := parseVersion(displayName, versions.Content[i].Value, resolveAlias(versions.Content[i+1]))
		if err != nil {
			return Entry{}, err
		}
		entry.Versions = append(entry.Versions, v)
	}
	return entry, nil
}

func parseVersion(displayName, key string, node *yaml.Node) (VersionEntry, error) {
	v := VersionEntry{Key: key}
	switch {
	case isNull(node):
		v.Kind = VersionPlaceholder
	case node.Kind == yaml.ScalarNode && node.ShortTag() != "!!bool":
		v.Kind = VersionScalar
		v.Fields.Version = scalar(node)
	case node.Kind == yaml.MappingNode:
		v.Kind = VersionObject
		for i := 0; i+1 < len(node.Content); i += 2 {
			field := node.Content[i].Value
			value := resolveAlias(node.Content[i+1])
			if field == "devices" {
				devices, err := parseDevices(displayName+" "+key, value)
				if err != nil {
					return VersionEntry{}, err
				}
				v.Devices = devices
				continue
			}
			if err := setField(&v.Fields, displayName+" "+key, field, value); err != nil {
				return VersionEntry{}, err
			}
		}
	default:
		return VersionEntry{}, configErr(displayName, "versions",
			"version %q must be an object, a string, a number or null", key)
	}
	return v, nil
}

func parseDevices(displayName string, node *yaml.Node) ([]any, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, configErr(displayName, "devices", "devices must be a list of device models")
	}
	devices := make([]any, 0, len(node.Content))
	for _, item := range node.Content {
		item = resolveAlias(item)
		if item.Kind != yaml.ScalarNode {
			return nil, configErr(displayName, "devices", "device model must be a string")
		}
		devices = append(devices, scalar(item))
	}
	return devices, nil
}

func setField(f *Fields, displayName, key string, node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return configErr(displayName, key, "field %q must be a scalar", key)
	}
	value := scalar(node)
	switch key {
	case "name", "browser", "browserName":
		f.Name = value
	case "version", "browserVersion":
		f.Version = value
	case "os", "platform":
		f.OS = value
	case "osVersion", "os_version", "platformVersion":
		f.OSVersion = value
	case "device", "deviceName":
		f.Device = value
	default:
		return configErr(displayName, key, "unknown field %q", key)
	}
	return nil
}

// scalar keeps the literal text of numbers so "10.10" does not turn into 10.1. Numeric
// zero stays a number so it reads as unset.
func scalar(node *yaml.Node) any {
	switch node.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		b, _ := strconv.ParseBool(node.Value)
		return b
	case "!!int", "!!float":
		if f, err := strconv.ParseFloat(node.Value, 64); err == nil && f == 0 {
			return 0
		}
	}
	return node.Value
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null"
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// String names the kind
func (k VersionKind) String() string {
	switch k {
	case VersionScalar:
		return "scalar"
	case VersionObject:
		return "object"
	case VersionPlaceholder:
		return "placeholder"
	}
	return fmt.Sprintf("VersionKind(%d)", int(k))
}
