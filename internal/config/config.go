package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/filterwriter"
)

// Config 命令行工具的配置
type Config struct {
	SourceLocale   string `mapstructure:"source_locale"`
	TargetLocale   string `mapstructure:"target_locale"`
	InputEncoding  string `mapstructure:"input_encoding"` // 为空时自动检测
	OutputEncoding string `mapstructure:"output_encoding"`
	LogLevel       string `mapstructure:"log_level"` // debug|info|warn|error
	Debug          bool   `mapstructure:"debug"`

	TMPath          string `mapstructure:"tm_path"`           // 翻译记忆库文件
	FilterConfigDir string `mapstructure:"filter_config_dir"` // 自定义过滤器配置目录
	WatchConfigDir  bool   `mapstructure:"watch_config_dir"`  // 监视配置目录并自动重新加载

	FuzzyThreshold    int    `mapstructure:"fuzzy_threshold"`
	CodeSensitive     bool   `mapstructure:"code_sensitive"`
	SegmentationRules string `mapstructure:"segmentation_rules"` // 为空时使用内置规则
	Fallback          string `mapstructure:"fallback"`           // source|empty|skip
	QuoteMode         int    `mapstructure:"quote_mode"`         // 0..3
	EscapeGT          bool   `mapstructure:"escape_gt"`
}

// LoadConfig 从文件加载配置
//
// configPath 为空时在家目录与当前目录查找 .okapi.yaml，找不到则使用默认值。
// 环境变量 OKAPI_<KEY> 覆盖文件中的值。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".okapi")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("OKAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errs.BadInput("config.LoadConfig", "cannot read configuration", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errs.BadInput("config.LoadConfig", "cannot decode configuration", err)
	}
	if config.TMPath == "" {
		config.TMPath = defaultTMPath()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 检查取值
func (c *Config) Validate() error {
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return errs.BadParameters("config", fmt.Sprintf("fuzzy_threshold %d out of range 0..100", c.FuzzyThreshold), nil)
	}
	if c.QuoteMode < int(encoder.QuoteNone) || c.QuoteMode > int(encoder.QuoteDoubleOnly) {
		return errs.BadParameters("config", fmt.Sprintf("quote_mode %d out of range 0..3", c.QuoteMode), nil)
	}
	if _, err := filterwriter.ParseFallbackPolicy(c.Fallback); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return errs.BadParameters("config", fmt.Sprintf("unknown log_level %q", c.LogLevel), nil)
	}
	return nil
}

// SaveConfig 保存配置，configPath 为空时写入家目录的 .okapi.yaml
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errs.IO("config.SaveConfig", err)
		}
		configPath = filepath.Join(home, ".okapi.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return errs.BadParameters("config.SaveConfig", "cannot encode configuration", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errs.IO("config.SaveConfig", err)
	}
	return errs.IO("config.SaveConfig", v.WriteConfig())
}

// NewDefaultConfig 默认配置
func NewDefaultConfig() *Config {
	return &Config{
		SourceLocale:   "en",
		InputEncoding:  "",
		OutputEncoding: "",
		LogLevel:       "info",
		TMPath:         defaultTMPath(),
		FuzzyThreshold: 100,
		CodeSensitive:  true,
		Fallback:       "source",
		QuoteMode:      int(encoder.QuoteAll),
	}
}

// defaultTMPath 默认记忆库位置
func defaultTMPath() string {
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, "okapi", "tm.db")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".okapi", "tm.db")
	}
	return "./okapi-tm.db"
}

func setDefaults(v *viper.Viper) {
	for key, value := range structToMap(NewDefaultConfig()) {
		v.SetDefault(key, value)
	}
}

// structToMap 结构体转换为 map，键与 mapstructure 标签一致
func structToMap(config *Config) map[string]interface{} {
	return map[string]interface{}{
		"source_locale":      config.SourceLocale,
		"target_locale":      config.TargetLocale,
		"input_encoding":     config.InputEncoding,
		"output_encoding":    config.OutputEncoding,
		"log_level":          config.LogLevel,
		"debug":              config.Debug,
		"tm_path":            config.TMPath,
		"filter_config_dir":  config.FilterConfigDir,
		"watch_config_dir":   config.WatchConfigDir,
		"fuzzy_threshold":    config.FuzzyThreshold,
		"code_sensitive":     config.CodeSensitive,
		"segmentation_rules": config.SegmentationRules,
		"fallback":           config.Fallback,
		"quote_mode":         config.QuoteMode,
		"escape_gt":          config.EscapeGT,
	}
}
