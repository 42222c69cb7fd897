package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "FARM_"

type Application struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"db"`
	Auth     Auth     `koanf:"auth"`
	Mail     Mail     `koanf:"mail"`
	Cors     Cors     `koanf:"cors"`
	Events   Events   `koanf:"events"`
}

type Server struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"readtimeout"`
	WriteTimeout time.Duration `koanf:"writetimeout"`
	IdleTimeout  time.Duration `koanf:"idletimeout"`
}

type Database struct {
	// Url takes precedence over the discrete connection fields when set.
	Url     string `koanf:"url"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	User    string `koanf:"user"`
	Pass    string `koanf:"pass"`
	Name    string `koanf:"name"`
	Schema  string `koanf:"schema"`
	SslMode string `koanf:"sslmode"`
}

type Auth struct {
	JwtSecret       string        `koanf:"jwtsecret"`
	TokenTtl        time.Duration `koanf:"tokenttl"`
	DefaultPassword string        `koanf:"defaultpassword"`
	SeedUsers       []SeedUser    `koanf:"seedusers"`
}

type SeedUser struct {
	Name  string `koanf:"name"`
	Email string `koanf:"email"`
}

type Mail struct {
	Domain           string `koanf:"domain"`
	ApiKey           string `koanf:"apikey"`
	From             string `koanf:"from"`
	ContactRecipient string `koanf:"contactrecipient"`
}

type Cors struct {
	AllowedOrigins []string `koanf:"allowedorigins"`
}

type Events struct {
	// MaxOccurrences caps how many rows a single recurrence rule may expand to.
	MaxOccurrences int    `koanf:"maxoccurrences"`
	Timezone       string `koanf:"timezone"`
	ImportLayout   string `koanf:"importlayout"`
}

// Location resolves the calendar timezone, falling back to UTC when it is unknown.
func (e Events) Location() *time.Location {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		log.Warnf("unknown calendar timezone %q, using UTC", e.Timezone)
		return time.UTC
	}
	return loc
}

func Defaults() Application {
	return Application{
		Server: Server{
			Port:         3000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: Database{
			Host:    "localhost",
			Port:    5432,
			User:    "farm",
			Pass:    "",
			Name:    "farm",
			Schema:  "public",
			SslMode: "disable",
		},
		Auth: Auth{
			JwtSecret:       "your_jwt_secret",
			TokenTtl:        24 * time.Hour,
			DefaultPassword: "changeme",
		},
		Mail: Mail{
			From:             "Four Green Fields Farm <postmaster@mailgun.fourgreenfieldsfarm.com>",
			ContactRecipient: "me@mattcrandell.com",
		},
		Cors: Cors{
			AllowedOrigins: []string{"*"},
		},
		Events: Events{
			MaxOccurrences: 500,
			Timezone:       "America/New_York",
			ImportLayout:   "2006-01-02 15:04:05",
		},
	}
}

func Load(path string) (Application, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("could not load .env file: %v", err)
	}

	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			// Comma separated lists, e.g. FARM_CORS_ALLOWEDORIGINS=https://a,https://b
			if strings.Contains(v, ",") {
				return k, strings.Split(v, ",")
			}
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
