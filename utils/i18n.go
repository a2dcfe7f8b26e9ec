package utils

import (
	"embed"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

var (
	bundleMu sync.RWMutex
	bundle   *i18n.Bundle
)

// InitI18NBundle loads the embedded messages, then any *.json found in the
// directory configured as i18n.dir, which may override them.
func InitI18NBundle() error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(embeddedLocales, "locales/*.json")
	if err != nil {
		return err
	}
	for _, name := range files {
		data, err := embeddedLocales.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := b.ParseMessageFileBytes(data, name); err != nil {
			return err
		}
	}

	if dir := viper.GetString("i18n.dir"); dir != "" {
		paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return err
		}
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if _, err := b.ParseMessageFileBytes(data, path); err != nil {
				log.WithFields(log.Fields{
					"prefix": "i18n",
					"file":   path,
					"error":  err,
				}).Error("parse message file")
				return err
			}
		}
	}

	bundleMu.Lock()
	bundle = b
	bundleMu.Unlock()
	return nil
}

// NewLocalizer returns a localizer for the given languages, most preferred
// first. Underscored tags such as zh_tw are accepted.
func NewLocalizer(langs ...string) *i18n.Localizer {
	bundleMu.RLock()
	b := bundle
	bundleMu.RUnlock()

	if b == nil {
		if err := InitI18NBundle(); err != nil {
			log.WithField("prefix", "i18n").WithError(err).Error("init i18n bundle")
		}
		bundleMu.RLock()
		b = bundle
		bundleMu.RUnlock()
		if b == nil {
			b = i18n.NewBundle(language.English)
		}
	}

	tags := make([]string, 0, len(langs))
	for _, l := range langs {
		tags = append(tags, strings.ReplaceAll(l, "_", "-"))
	}
	return i18n.NewLocalizer(b, tags...)
}

// Localize renders messageID, returning fallback when it is not translated.
func Localize(localizer *i18n.Localizer, messageID, fallback string, data map[string]interface{}) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}
