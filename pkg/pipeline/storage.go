package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
)

// StepDefinition 保存的步骤：注册表标识与参数文本
type StepDefinition struct {
	ID         string `toml:"id" yaml:"id"`
	Parameters string `toml:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Definition 可保存的管道定义
type Definition struct {
	Name        string           `toml:"name" yaml:"name"`
	Description string           `toml:"description,omitempty" yaml:"description,omitempty"`
	Steps       []StepDefinition `toml:"steps" yaml:"steps"`
}

// Format 定义文件格式
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath 由扩展名判断格式
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errs.BadParameters("pipeline.FormatFromPath", fmt.Sprintf("unsupported pipeline file %q", path), nil)
	}
}

// Describe 由管道生成定义，步骤名即注册表标识
func Describe(p *Pipeline) *Definition {
	def := &Definition{Name: p.Name()}
	for _, step := range p.Steps() {
		sd := StepDefinition{ID: step.Name()}
		if c, ok := step.(Configurable); ok && c.Parameters() != nil {
			sd.Parameters = c.Parameters().String()
		}
		def.Steps = append(def.Steps, sd)
	}
	return def
}

// MarshalDefinition 序列化定义
func MarshalDefinition(def *Definition, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(def); err != nil {
			return nil, errs.BadParameters("pipeline.MarshalDefinition", "cannot encode toml", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		data, err := yaml.Marshal(def)
		if err != nil {
			return nil, errs.BadParameters("pipeline.MarshalDefinition", "cannot encode yaml", err)
		}
		return data, nil
	default:
		return nil, errs.BadParameters("pipeline.MarshalDefinition", fmt.Sprintf("unknown format %q", format), nil)
	}
}

// UnmarshalDefinition 解析定义
func UnmarshalDefinition(data []byte, format Format) (*Definition, error) {
	def := &Definition{}
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, def)
	case FormatYAML:
		err = yaml.Unmarshal(data, def)
	default:
		return nil, errs.BadParameters("pipeline.UnmarshalDefinition", fmt.Sprintf("unknown format %q", format), nil)
	}
	if err != nil {
		return nil, errs.BadInput("pipeline.UnmarshalDefinition", "malformed pipeline definition", err)
	}
	for i, s := range def.Steps {
		if strings.TrimSpace(s.ID) == "" {
			return nil, errs.BadInput("pipeline.UnmarshalDefinition", fmt.Sprintf("step %d has no id", i), nil)
		}
	}
	return def, nil
}

// SaveDefinition 按扩展名保存定义
func SaveDefinition(path string, def *Definition) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := MarshalDefinition(def, format)
	if err != nil {
		return err
	}
	return errs.IO("pipeline.SaveDefinition", os.WriteFile(path, data, 0o644))
}

// LoadDefinition 按扩展名读取定义
func LoadDefinition(path string) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO("pipeline.LoadDefinition", err)
	}
	return UnmarshalDefinition(data, format)
}
