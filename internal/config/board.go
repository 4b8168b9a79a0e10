package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BoardConfig holds the vocabularies and limits of the issue board.
// Statuses are listed in column display order.
type BoardConfig struct {
	Statuses        []string       `mapstructure:"statuses"`
	Priorities      []string       `mapstructure:"priorities"`
	DefaultPriority string         `mapstructure:"defaultPriority"`
	ProjectKey      KeyLengthRange `mapstructure:"projectKey"`
	InsertRetries   int            `mapstructure:"insertRetries"`
}

type KeyLengthRange struct {
	MinLength int `mapstructure:"minLength"`
	MaxLength int `mapstructure:"maxLength"`
}

func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		Statuses:        []string{"TODO", "IN_PROGRESS", "IN_REVIEW", "DONE"},
		Priorities:      []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"},
		DefaultPriority: "MEDIUM",
		ProjectKey:      KeyLengthRange{MinLength: 2, MaxLength: 10},
		InsertRetries:   5,
	}
}

// HasStatus reports whether status is a board column.
func (c BoardConfig) HasStatus(status string) bool {
	return c.StatusRank(status) >= 0
}

// StatusRank returns the column position of status, or -1.
func (c BoardConfig) StatusRank(status string) int {
	for i, s := range c.Statuses {
		if s == status {
			return i
		}
	}
	return -1
}

func (c BoardConfig) DefaultStatus() string {
	if len(c.Statuses) == 0 {
		return ""
	}
	return c.Statuses[0]
}

func (c BoardConfig) HasPriority(priority string) bool {
	for _, p := range c.Priorities {
		if p == priority {
			return true
		}
	}
	return false
}

type BoardConfigHolder struct {
	current atomic.Value // holds BoardConfig
}

// NewStaticBoardConfig returns a holder that never reloads.
func NewStaticBoardConfig(cfg BoardConfig) *BoardConfigHolder {
	holder := &BoardConfigHolder{}
	holder.current.Store(normalizeBoardConfig(cfg))
	return holder
}

func NewBoardConfigHolder(cfg Config, log *zap.Logger) (*BoardConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("board.config")

	v := viper.New()
	if cfg.BoardConfigFile != "" {
		v.SetConfigFile(cfg.BoardConfigFile)
	} else {
		v.SetConfigName("board")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/sprintboard")
		v.AddConfigPath(".")
	}

	defaults := DefaultBoardConfig()
	v.SetDefault("board.statuses", defaults.Statuses)
	v.SetDefault("board.priorities", defaults.Priorities)
	v.SetDefault("board.defaultPriority", defaults.DefaultPriority)
	v.SetDefault("board.projectKey.minLength", defaults.ProjectKey.MinLength)
	v.SetDefault("board.projectKey.maxLength", defaults.ProjectKey.MaxLength)
	v.SetDefault("board.insertRetries", defaults.InsertRetries)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	current, err := unmarshalBoardConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &BoardConfigHolder{}
	holder.current.Store(current)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalBoardConfig(v)
			if err != nil {
				log.Warn("invalid board config ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("board config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *BoardConfigHolder) Get() BoardConfig {
	if h == nil {
		return DefaultBoardConfig()
	}
	cfg, ok := h.current.Load().(BoardConfig)
	if !ok {
		return DefaultBoardConfig()
	}
	return cfg
}

func unmarshalBoardConfig(v *viper.Viper) (BoardConfig, error) {
	// Unmarshal merges defaults per key; UnmarshalKey would not.
	var file struct {
		Board BoardConfig `mapstructure:"board"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return BoardConfig{}, err
	}
	cfg := normalizeBoardConfig(file.Board)
	if err := validateBoardConfig(cfg); err != nil {
		return BoardConfig{}, err
	}
	return cfg, nil
}

func normalizeBoardConfig(cfg BoardConfig) BoardConfig {
	cfg.Statuses = upperAll(cfg.Statuses)
	cfg.Priorities = upperAll(cfg.Priorities)
	cfg.DefaultPriority = strings.ToUpper(strings.TrimSpace(cfg.DefaultPriority))
	if cfg.InsertRetries <= 0 {
		cfg.InsertRetries = 1
	}
	return cfg
}

func validateBoardConfig(cfg BoardConfig) error {
	if len(cfg.Statuses) == 0 {
		return errors.New("board.statuses cannot be empty")
	}
	if len(cfg.Priorities) == 0 {
		return errors.New("board.priorities cannot be empty")
	}
	if dup := firstDuplicate(cfg.Statuses); dup != "" {
		return fmt.Errorf("board.statuses contains %q twice", dup)
	}
	if cfg.DefaultPriority != "" && !cfg.HasPriority(cfg.DefaultPriority) {
		return fmt.Errorf("board.defaultPriority %q is not a priority", cfg.DefaultPriority)
	}
	if cfg.ProjectKey.MinLength <= 0 || cfg.ProjectKey.MaxLength < cfg.ProjectKey.MinLength {
		return errors.New("board.projectKey length bounds are invalid")
	}
	return nil
}

func upperAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToUpper(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			return value
		}
		seen[value] = struct{}{}
	}
	return ""
}
