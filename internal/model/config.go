package model

import (
	"io"
	"runtime"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource, cue.Filename("config.cue"))
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

// Config is the global plugin configuration. It names the external pieces the
// downloader depends on: the Topaz CLI installation, the host connection
// registry, the job configurations and the credentials file.
type Config struct {
	Version     int              `json:"version" yaml:"version"` // fixed 0 for now
	CLI         CLI              `json:"cli" yaml:"cli"`
	Registry    Registry         `json:"registry" yaml:"registry"`
	Jobs        Jobs             `json:"jobs" yaml:"jobs"`
	Credentials Credentials      `json:"credentials" yaml:"credentials"`
	Connections []HostConnection `json:"connections,omitempty" yaml:"connections,omitempty"`
	Log         *Log             `json:"log,omitempty" yaml:"log,omitempty"`
}

// CLI locates the Topaz Workbench CLI installation on the execution node.
type CLI struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Registry locates the sqlite database holding named host connections.
type Registry struct {
	Path string `json:"path" yaml:"path"`
}

// Jobs locates the directory of per-job YAML configurations.
type Jobs struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Credentials locates the credentials file read by the credentials store.
type Credentials struct {
	File string `json:"file" yaml:"file"`
}

// Log output settings, --verbose flag takes precedence over Verbose.
type Log struct {
	Target  *string `json:"target,omitempty" yaml:"target,omitempty"` // "stderr"|"stdout"|"discard"
	Verbose *bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// LoadConfig validates YAML from r against the CUE schema and decodes it.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

// DefaultConfig returns a configuration pointing at the conventional Topaz
// CLI installation for the current OS and at files relative to the config
// directory.
func DefaultConfig() Config {
	cliDir := "/opt/Compuware/TopazCLI"
	if runtime.GOOS == "windows" {
		cliDir = `C:\Program Files\Compuware\Topaz Workbench CLI`
	}
	return Config{
		Version:     0,
		CLI:         CLI{Dir: cliDir},
		Registry:    Registry{Path: "connections.db"},
		Jobs:        Jobs{Dir: "jobs"},
		Credentials: Credentials{File: "credentials.yaml"},
	}
}
