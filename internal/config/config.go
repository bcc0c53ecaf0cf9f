package config

import (
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	private Private
}

type Public struct {
	Api       Api       `yaml:"api"`
	Pg        Pg        `yaml:"pg"`
	Chat      Chat      `yaml:"chat"`
	Redis     Redis     `yaml:"redis"`
	Media     Media     `yaml:"media"`
	Presence  Presence  `yaml:"presence"`
	Messaging Messaging `yaml:"messaging"`
	Log       Log       `yaml:"log"`
	User      User      `yaml:"user"`
}

type Api struct {
	Addr string `yaml:"addr" validate:"required"`
}

type Pg struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Dbname string `yaml:"dbname"`
}

type Chat struct {
	// Websocket endpoint of a chat server to deliver records to. Used when
	// postgres is not configured.
	WsUrl string `yaml:"ws_url"`
}

type Redis struct {
	// Empty addr disables redis; presence falls back to the in-memory store.
	Addr string `yaml:"addr"`
}

type Media struct {
	RootPath       string `yaml:"root_path" validate:"required"`
	ChunkSizeBytes int    `yaml:"chunk_size_bytes" validate:"required,gt=0"`
}

type Presence struct {
	MarkerTTLSeconds int `yaml:"marker_ttl_seconds" validate:"required,gt=0"`
}

func (p Presence) MarkerTTL() time.Duration {
	return time.Duration(p.MarkerTTLSeconds) * time.Second
}

type Messaging struct {
	AllowedMimeTypes []string `yaml:"allowed_mime_types" validate:"required,min=1"`
	MaxMessageLength int      `yaml:"max_message_length" validate:"required,gt=0"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// User is the author identity this node composes as. A real host replaces
// this with its session user.
type User struct {
	Id          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	AvatarRef   string `yaml:"avatar_ref"`
}

type Private struct {
	PgPassword string `yaml:"pg_password"`
}

func (s *Config) PgPassword() string {
	return s.private.PgPassword
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)

	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(public); err != nil {
		panic("invalid config: " + err.Error())
	}

	return &Config{public, private}
}
