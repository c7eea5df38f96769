package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bakery/internal/validation"

	"gopkg.in/ini.v1"
)

type Config struct {
	Images  ImagesConfig
	DB      DBConfig
	HTTP    HTTPConfig
	Device  DeviceConfig
	Writer  WriterConfig
	Display DisplayConfig
	Log     LogConfig
}

type ImagesConfig struct {
	Sources []string // Root directories searched for image subdirectories
}

type DBConfig struct {
	DBPath string // Path to store db file
	DBFile string // Name of database file
	Bucket string // Bucket holding write history
}

type HTTPConfig struct {
	Listen string // Address of the status API, empty disables it
}

type DeviceConfig struct {
	Majors        []int         // Block major numbers treated as removable media adapters
	ProbeInterval time.Duration // Presence probe period
	ProbeCommand  string        // External probe script, empty uses the partition table probe
}

type WriterConfig struct {
	CopyCommand       string        // Block copy stage, receives of=/if=/bs= operands
	DecompressCommand string        // Decompression stage for .img.gz, receives the file path
	BlockSize         string        // bs= operand for the copy stage
	StatusInterval    time.Duration // Period between SIGUSR1 status requests
	ProducerGrace     time.Duration // Time a decompressor may outlive a finished copy stage
	RefreshCommand    string        // Partition table refresh, empty uses BLKRRPART
}

type DisplayConfig struct {
	Backend   string        // auto, terminal, headless
	LongPress time.Duration // Hold time on the write button before a write starts
	Dwell     time.Duration // Time completion and failure messages stay on screen
	Cells     int           // Width of the progress bar in character cells
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// DefaultFiles are searched in order by Load when no explicit path is given.
var DefaultFiles = []string{
	"/etc/bakery.cfg",
	"conf/bakery.cfg",
}

// Defaults holds the built-in configuration values.
var Defaults = Config{
	Images: ImagesConfig{
		Sources: []string{"/srv/bakery/images"},
	},
	DB: DBConfig{
		DBPath: "/var/lib/bakery",
		DBFile: "bakery.db",
		Bucket: "writes",
	},
	Device: DeviceConfig{
		Majors:        []int{8, 179},
		ProbeInterval: time.Second,
	},
	Writer: WriterConfig{
		CopyCommand:       "dd",
		DecompressCommand: "zcat",
		BlockSize:         "1M",
		StatusInterval:    3 * time.Second,
		ProducerGrace:     2 * time.Second,
	},
	Display: DisplayConfig{
		Backend:   "auto",
		LongPress: 5 * time.Second,
		Dwell:     5 * time.Second,
		Cells:     16,
	},
	Log: LogConfig{
		Level:  "info",
		Format: "json",
	},
}

// LoadDefault loads the first configuration file found in DefaultFiles.
func LoadDefault() (*Config, error) {
	return Load(DefaultFiles...)
}

// Load starts from Defaults, applies the first existing file among paths and
// finally the environment overrides.
func Load(paths ...string) (*Config, error) {
	cfg := Defaults.clone()

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		break
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the rest of the program relies on.
func (c *Config) Validate() error {
	if len(c.Images.Sources) == 0 {
		return errors.New("images.source must name at least one directory")
	}
	if c.Device.ProbeInterval <= 0 || c.Device.ProbeInterval > time.Second {
		return fmt.Errorf("device.probe_interval must be in (0, 1s], got %s", c.Device.ProbeInterval)
	}
	if len(c.Device.Majors) == 0 {
		return errors.New("device.majors must list at least one major number")
	}
	if strings.TrimSpace(c.Writer.CopyCommand) == "" {
		return errors.New("writer.copy_command is required")
	}
	if c.Writer.StatusInterval <= 0 || c.Writer.ProducerGrace <= 0 {
		return errors.New("writer intervals must be positive")
	}
	if c.Display.Cells <= 0 {
		return errors.New("display.cells must be positive")
	}
	if c.Display.LongPress <= 0 {
		return errors.New("display.long_press must be positive")
	}
	if c.HTTP.Listen != "" {
		if err := validation.ValidateListenAddr(c.HTTP.Listen); err != nil {
			return fmt.Errorf("http.listen: %w", err)
		}
	}
	switch c.Display.Backend {
	case "auto", "terminal", "headless":
	default:
		return fmt.Errorf("unknown display backend %q", c.Display.Backend)
	}
	return nil
}

// GetDatabasePath returns the full path of the history database
func (c *Config) GetDatabasePath() string {
	return filepath.Join(c.DB.DBPath, c.DB.DBFile)
}

func (c Config) clone() *Config {
	c.Images.Sources = append([]string(nil), c.Images.Sources...)
	c.Device.Majors = append([]int(nil), c.Device.Majors...)
	return &c
}

func (c *Config) applyFile(path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return err
	}

	images := file.Section("images")
	if images.HasKey("source") {
		c.Images.Sources = SplitList(images.Key("source").String())
	}

	db := file.Section("db")
	if db.HasKey("path") {
		c.DB.DBPath = db.Key("path").String()
	}
	if db.HasKey("file") {
		c.DB.DBFile = db.Key("file").String()
	}

	http := file.Section("http")
	if http.HasKey("listen") {
		c.HTTP.Listen = http.Key("listen").String()
	}

	device := file.Section("device")
	if device.HasKey("majors") {
		majors, err := parseInts(device.Key("majors").String())
		if err != nil {
			return fmt.Errorf("device.majors: %w", err)
		}
		c.Device.Majors = majors
	}
	if err := durationKey(device, "probe_interval", &c.Device.ProbeInterval); err != nil {
		return err
	}
	if device.HasKey("probe_command") {
		c.Device.ProbeCommand = device.Key("probe_command").String()
	}

	writer := file.Section("writer")
	if writer.HasKey("copy_command") {
		c.Writer.CopyCommand = writer.Key("copy_command").String()
	}
	if writer.HasKey("decompress_command") {
		c.Writer.DecompressCommand = writer.Key("decompress_command").String()
	}
	if writer.HasKey("block_size") {
		c.Writer.BlockSize = writer.Key("block_size").String()
	}
	if writer.HasKey("refresh_command") {
		c.Writer.RefreshCommand = writer.Key("refresh_command").String()
	}
	if err := durationKey(writer, "status_interval", &c.Writer.StatusInterval); err != nil {
		return err
	}
	if err := durationKey(writer, "producer_grace", &c.Writer.ProducerGrace); err != nil {
		return err
	}

	display := file.Section("display")
	if display.HasKey("backend") {
		c.Display.Backend = display.Key("backend").String()
	}
	if err := durationKey(display, "long_press", &c.Display.LongPress); err != nil {
		return err
	}
	if err := durationKey(display, "dwell", &c.Display.Dwell); err != nil {
		return err
	}
	if display.HasKey("cells") {
		cells, err := display.Key("cells").Int()
		if err != nil {
			return fmt.Errorf("display.cells: %w", err)
		}
		c.Display.Cells = cells
	}

	log := file.Section("log")
	if log.HasKey("level") {
		c.Log.Level = log.Key("level").String()
	}
	if log.HasKey("format") {
		c.Log.Format = log.Key("format").String()
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := getEnv("BAKERY_IMAGES", ""); v != "" {
		c.Images.Sources = SplitList(v)
	}
	c.DB.DBPath = getEnv("DB_PATH", c.DB.DBPath)
	c.DB.DBFile = getEnv("DB_FILE", c.DB.DBFile)
	c.DB.Bucket = getEnv("DB_BUCKET", c.DB.Bucket)
	c.HTTP.Listen = getEnv("BAKERY_HTTP_LISTEN", c.HTTP.Listen)
	c.Display.Backend = getEnv("BAKERY_DISPLAY", c.Display.Backend)
	c.Log.Level = getEnv("BAKERY_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("BAKERY_LOG_FORMAT", c.Log.Format)
	c.Writer.CopyCommand = getEnv("BAKERY_COPY_COMMAND", c.Writer.CopyCommand)
	c.Writer.DecompressCommand = getEnv("BAKERY_DECOMPRESS_COMMAND", c.Writer.DecompressCommand)
	c.Device.ProbeCommand = getEnv("BAKERY_PROBE_COMMAND", c.Device.ProbeCommand)

	if v := getEnv("BAKERY_LONG_PRESS", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BAKERY_LONG_PRESS: %w", err)
		}
		c.Display.LongPress = d
	}
	return nil
}

// SplitList splits a list value on commas, colons and whitespace.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ':' || r == ' ' || r == '\t' || r == '\n'
	})
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, field := range SplitList(s) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func durationKey(sec *ini.Section, key string, dst *time.Duration) error {
	if !sec.HasKey(key) {
		return nil
	}
	d, err := sec.Key(key).Duration()
	if err != nil {
		return fmt.Errorf("%s.%s: %w", sec.Name(), key, err)
	}
	*dst = d
	return nil
}

// getEnv returns the value of the environment variable key if it exists, otherwise it returns the fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
