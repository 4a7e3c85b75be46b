package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yaoapp/kun/exception"
	"github.com/yaoapp/kun/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Conf the gateway configuration
var Conf Config

// LogOutput the current log writer
var LogOutput io.WriteCloser

func init() {
	Init()
}

// Init load the configuration and apply the runtime mode
func Init() {
	filename, _ := filepath.Abs(filepath.Join(".", ".env"))
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		Conf = Load()
	} else {
		Conf = LoadFrom(filename)
	}

	if Conf.Mode == "development" {
		Development()
	} else {
		Production()
	}
}

// LoadFrom load the configuration from an env file
func LoadFrom(envfile string) Config {
	file, err := filepath.Abs(envfile)
	if err != nil {
		return Load()
	}
	godotenv.Overload(file)
	return Load()
}

// Load the configuration from the environment
func Load() Config {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		exception.New("Can't read config %s", 500, err.Error()).Throw()
	}

	cfg.Root, _ = filepath.Abs(cfg.Root)
	if !filepath.IsAbs(cfg.ProfilesRoot) {
		cfg.ProfilesRoot = filepath.Join(cfg.Root, cfg.ProfilesRoot)
	}
	if !filepath.IsAbs(cfg.KeywordsFile) {
		cfg.KeywordsFile = filepath.Join(cfg.Root, cfg.KeywordsFile)
	}
	return cfg
}

// Production switch to the production mode
func Production() {
	Conf.Mode = "production"
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(log.TEXT)
	if Conf.LogMode == "JSON" {
		log.SetFormatter(log.JSON)
	}
	gin.SetMode(gin.ReleaseMode)
	ReloadLog()
}

// Development switch to the development mode
func Development() {
	Conf.Mode = "development"
	log.SetLevel(log.TraceLevel)
	log.SetFormatter(log.TEXT)
	if Conf.LogMode == "JSON" {
		log.SetFormatter(log.JSON)
	}
	gin.SetMode(gin.DebugMode)
	ReloadLog()
}

// ReloadLog reopen the log output
func ReloadLog() {
	CloseLog()
	OpenLog()
}

// OpenLog open the log output
func OpenLog() {
	if Conf.Log == "" {
		return // stderr
	}

	logfile, err := filepath.Abs(Conf.Log)
	if err != nil {
		return
	}

	logpath := filepath.Dir(logfile)
	if _, err := os.Stat(logpath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(logpath, 0o755); err != nil {
			log.Error("Can't create log path %s: %s", logpath, err.Error())
			return
		}
	}

	LogOutput = &lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    Conf.LogMaxSize,
		MaxBackups: Conf.LogMaxBackups,
		MaxAge:     Conf.LogMaxAge,
	}

	log.SetOutput(LogOutput)
	gin.DefaultWriter = io.MultiWriter(LogOutput)
}

// CloseLog close the log output
func CloseLog() {
	if LogOutput != nil {
		if err := LogOutput.Close(); err != nil {
			log.Error("close log: %s", err.Error())
		}
		LogOutput = nil
	}
}
