package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/emitter"
	"github.com/githubnext/ocsfc/pkg/envutil"
	"github.com/githubnext/ocsfc/pkg/fileutil"
	"github.com/githubnext/ocsfc/pkg/logger"
)

var compileConfigLog = logger.New("cli:compile_config")

// CompileConfig holds configuration for a compile run.
type CompileConfig struct {
	CorpusDir     string   `yaml:"corpus"`
	OutDir        string   `yaml:"out"`
	Formats       []string `yaml:"formats,omitempty"`
	Package       string   `yaml:"package,omitempty"`
	SchemaBaseURL string   `yaml:"schema_base_url,omitempty"`
	Workers       int      `yaml:"workers,omitempty"`
	Verify        bool     `yaml:"verify,omitempty"`
	FailFast      bool     `yaml:"fail_fast,omitempty"`
	Watch         bool     `yaml:"-"`
	Stats         bool     `yaml:"stats,omitempty"`
	Verbose       bool     `yaml:"-"`
}

// LoadCompileConfig reads a compile configuration file. A missing default
// file is not an error; an explicitly named file must exist.
func LoadCompileConfig(path string, explicit bool) (CompileConfig, error) {
	var config CompileConfig
	if path == "" {
		path = constants.DefaultConfigFile
	}
	if !fileutil.FileExists(path) {
		if explicit {
			return config, fmt.Errorf("config file not found: %s", path)
		}
		compileConfigLog.Printf("No config file at %s", path)
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict()); err != nil {
		return config, fmt.Errorf("invalid config file %s:\n%s", path, yaml.FormatError(err, false, true))
	}
	compileConfigLog.Printf("Loaded config file %s: corpus=%s, out=%s", path, config.CorpusDir, config.OutDir)
	return config, nil
}

// validateCompileConfig checks a merged configuration before any work starts.
func validateCompileConfig(config CompileConfig) error {
	var errs []error
	if config.CorpusDir == "" {
		errs = append(errs, errors.New("no corpus directory: use --corpus or set corpus in "+constants.DefaultConfigFile))
	} else if !fileutil.DirExists(config.CorpusDir) {
		errs = append(errs, fmt.Errorf("corpus directory does not exist: %s", config.CorpusDir))
	}
	if config.OutDir == "" {
		errs = append(errs, errors.New("no output directory: use --out or set out in "+constants.DefaultConfigFile))
	}
	if _, err := emitter.ParseFormats(config.Formats); err != nil {
		errs = append(errs, err)
	}
	if config.Package != "" && !isGoPackageName(config.Package) {
		errs = append(errs, fmt.Errorf("invalid Go package name %q", config.Package))
	}
	if config.Workers < 0 {
		errs = append(errs, fmt.Errorf("--workers must not be negative, got %d", config.Workers))
	}
	return errors.Join(errs...)
}

func isGoPackageName(name string) bool {
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return name != ""
}

// emitOptions converts the configuration into emitter options.
func (c CompileConfig) emitOptions() (emitter.Options, error) {
	formats, err := emitter.ParseFormats(c.Formats)
	if err != nil {
		return emitter.Options{}, err
	}
	outDir := c.OutDir
	if outDir != "" {
		if outDir, err = filepath.Abs(outDir); err != nil {
			return emitter.Options{}, fmt.Errorf("failed to resolve output directory %s: %w", c.OutDir, err)
		}
	}
	workers := c.Workers
	if workers == 0 {
		workers = envutil.GetIntFromEnv(constants.WorkersEnvVar, 0, 1, 1024, compileConfigLog)
	}
	return emitter.Options{
		OutDir:        outDir,
		Formats:       formats,
		Package:       c.Package,
		SchemaBaseURL: c.SchemaBaseURL,
		Workers:       workers,
		Verify:        c.Verify,
	}, nil
}
