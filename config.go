package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Option configures a Config at construction time.
type Option func(c *Config) *Config

// IncludePath adds directories to search, in order, when resolving an
// `@"path"` include that isn't found relative to the including file.
func IncludePath(dirs ...string) Option {
	return func(c *Config) *Config {
		c.includePath = append(c.includePath, dirs...)
		return c
	}
}

// Context supplies the variables available to bare Word expressions.
func Context(vars map[string]Value) Option {
	return func(c *Config) *Config {
		c.context = vars
		return c
	}
}

// AllowDuplicateKeys disables the default rejection of mapping literals
// that repeat a key.
func AllowDuplicateKeys(c *Config) *Config {
	c.noDuplicates = false
	return c
}

// RelaxedConversions disables the default strictConversions behaviour,
// so a back-tick literal that doesn't match any conversion rule is
// returned as its literal text instead of raising an error.
func RelaxedConversions(c *Config) *Config {
	c.strictConversions = false
	return c
}

// NoCache disables memoization of Get results.
func NoCache(c *Config) *Config {
	c.useCache = false
	return c
}

// Converter overrides the back-tick literal converter.
func Converter(conv StringConverter) Option {
	return func(c *Config) *Config {
		c.converter = conv
		return c
	}
}

// Config is a loaded configuration: an evaluated-on-demand mapping, plus
// the settings that govern how its expressions resolve - include search
// path, variable context, duplicate-key policy, and conversion strictness.
type Config struct {
	rootNode *MappingNode
	root     *mapWrapper

	path    string
	rootDir string

	includePath       []string
	context           map[string]Value
	noDuplicates      bool
	strictConversions bool
	converter         StringConverter
	useCache          bool

	cache    map[string]Value
	refsSeen map[Node]refInfo

	parent *Config
}

// NewConfig returns an empty Config configured with opts. Duplicate keys
// are rejected and back-tick conversion failures raise an error unless
// AllowDuplicateKeys / RelaxedConversions override that.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		rootNode:          &MappingNode{},
		noDuplicates:      true,
		strictConversions: true,
		converter:         defaultStringConverter{},
		useCache:          true,
	}
	for _, opt := range opts {
		c = opt(c)
	}
	c.root = &mapWrapper{cfg: c, node: c.rootNode}
	if c.useCache {
		c.cache = make(map[string]Value)
	}
	return c
}

// Load parses r as a complete configuration and installs it as c's root.
func Load(r io.Reader, opts ...Option) (*Config, error) {
	c := NewConfig(opts...)
	return c, c.load(r)
}

// LoadFile opens and loads the configuration at path.
func LoadFile(path string, opts ...Option) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := NewConfig(opts...)
	c.path = path
	c.rootDir = filepath.Dir(path)
	if err := c.load(f); err != nil {
		return nil, err
	}
	return c, nil
}

// FromFile is an alias for LoadFile.
func FromFile(path string, opts ...Option) (*Config, error) {
	return LoadFile(path, opts...)
}

// FromSource loads a configuration from literal text.
func FromSource(text string, opts ...Option) (*Config, error) {
	return Load(strings.NewReader(text), opts...)
}

func (c *Config) load(r io.Reader) error {
	root, err := parseContainer(r)
	if err != nil {
		return err
	}
	mn, ok := root.(*MappingNode)
	if !ok {
		return errf("root configuration must be a mapping")
	}
	if err := checkDuplicates(mn); err != nil && c.noDuplicates {
		return err
	}
	c.rootNode = mn
	c.root = &mapWrapper{cfg: c, node: mn}
	return nil
}

// Get returns the value at key, which may be a bare identifier or a
// dotted/bracketed path. If key cannot be resolved and a default is
// supplied, the default is returned instead of an error.
func (c *Config) Get(key string, def ...Value) (Value, error) {
	if c.useCache {
		if v, ok := c.cache[key]; ok {
			return v, nil
		}
	}
	c.refsSeen = nil

	var (
		v   Value
		err error
	)

	if isIdentifier(key) {
		astNode, _, ok := c.root.lookup(key)
		if !ok {
			if len(def) > 0 {
				return def[0], nil
			}
			return nil, errf("not found in configuration: %s", key)
		}
		v, err = evalAndUnwrap(c, astNode)
	} else {
		node, perr := parsePath(key)
		if perr != nil {
			return nil, perr
		}
		root, steps, uerr := unpackPath(node)
		if uerr != nil {
			return nil, uerr
		}
		var gv Value
		gv, err = getFromPath(c, root, steps)
		if err == nil {
			v, err = unwrap(gv)
		}
	}

	if err != nil {
		if _, ok := err.(*ConfigError); ok && len(def) > 0 {
			return def[0], nil
		}
		return nil, err
	}

	if c.useCache {
		c.cache[key] = v
	}
	return v, nil
}

// Index is Get without a default: it raises an error if key cannot be
// resolved.
func (c *Config) Index(key string) (Value, error) {
	return c.Get(key)
}

// GetSubConfig returns the nested Config produced by an include at key.
// It raises an error if the value at key isn't a nested configuration.
func (c *Config) GetSubConfig(key string) (*Config, error) {
	c.refsSeen = nil

	astNode, _, ok := c.root.lookup(key)
	if !ok {
		return nil, errf("not found in configuration: %s", key)
	}
	v, err := evaluate(c, astNode)
	if err != nil {
		return nil, err
	}
	nested, ok := v.(*NestedValue)
	if !ok {
		return nil, errf("not a nested configuration: %s", key)
	}
	return nested.Config, nil
}

// AsDict fully evaluates and unwraps the whole configuration into an
// ordered mapping.
func (c *Config) AsDict() (*MappingValue, error) {
	v, err := unwrap(c.root)
	if err != nil {
		return nil, err
	}
	return v.(*MappingValue), nil
}

// ParsePath parses text as a standalone path expression.
func ParsePath(text string) (Node, error) { return parsePath(text) }

// UnpackPath flattens a path Node into its root name and ordered steps.
func UnpackPath(node Node) (string, []PathStep, error) { return unpackPath(node) }

// ToSource renders a path-shaped Node back to source text.
func ToSource(node Node) string { return toSource(node) }

// IsIdentifier reports whether s is a valid bare identifier.
func IsIdentifier(s string) bool { return isIdentifier(s) }
