package config

import "time"

// ConfigBuilder assembles a Config starting from Defaults.
type ConfigBuilder struct {
	cfg *Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: Defaults.clone()}
}

func (b *ConfigBuilder) WithImageSources(sources ...string) *ConfigBuilder {
	b.cfg.Images.Sources = append([]string(nil), sources...)
	return b
}

func (b *ConfigBuilder) WithDBPath(path string) *ConfigBuilder {
	b.cfg.DB.DBPath = path
	return b
}

func (b *ConfigBuilder) WithDBFile(file string) *ConfigBuilder {
	b.cfg.DB.DBFile = file
	return b
}

func (b *ConfigBuilder) WithBucket(bucket string) *ConfigBuilder {
	b.cfg.DB.Bucket = bucket
	return b
}

func (b *ConfigBuilder) WithListen(addr string) *ConfigBuilder {
	b.cfg.HTTP.Listen = addr
	return b
}

func (b *ConfigBuilder) WithDisplayBackend(name string) *ConfigBuilder {
	b.cfg.Display.Backend = name
	return b
}

func (b *ConfigBuilder) WithLongPress(d time.Duration) *ConfigBuilder {
	b.cfg.Display.LongPress = d
	return b
}

func (b *ConfigBuilder) WithCommands(copyCmd, decompressCmd string) *ConfigBuilder {
	b.cfg.Writer.CopyCommand = copyCmd
	b.cfg.Writer.DecompressCommand = decompressCmd
	return b
}

// Build validates and returns the assembled configuration.
func (b *ConfigBuilder) Build() (*Config, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return b.cfg, nil
}
