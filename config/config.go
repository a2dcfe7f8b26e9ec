// Package config exposes the tunable parameters of the reputation engine.
//
// Values are read through viper on every call so an operator can retune the
// engine through the environment or a watched config file without a restart.
package config

import (
	"math"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	KeyPriorMean              = "prior_mean"
	KeyPriorWeight            = "prior_weight"
	KeyWeightMin              = "weight_min"
	KeyWeightMax              = "weight_max"
	KeyHalfLifeDays           = "rating_halflife_days"
	KeyRequireInteractionDays = "require_interaction_days"
	KeyGlobalPerHour          = "rating_global_per_hour"
	KeyPairCooldownHours      = "rating_pair_cooldown_hours"
	KeyBrigadeWindowMinutes   = "brigade_window_minutes"
	KeyBrigadeMinRaters       = "brigade_min_raters"

	KeyBurstPerMinute    = "rate_burst_per_minute"
	KeyRecomputeInterval = "recompute_interval_minutes"
	KeyRequestsPerSecond = "http_requests_per_second"
	KeyServerPort        = "server.port"
	KeyServerTrace       = "server.trace"
	KeyStoreDriver       = "store.driver"
	KeyStoreDSN          = "store.dsn"
	KeyMongoDatabase     = "mongo.database"
	KeyAdminToken        = "admin.token"
	KeyLogLevel          = "log.level"
	KeyI18NDir           = "i18n.dir"
)

var defaults = map[string]interface{}{
	KeyPriorMean:              4.0,
	KeyPriorWeight:            5.0,
	KeyWeightMin:              0.25,
	KeyWeightMax:              1.25,
	KeyHalfLifeDays:           0.0,
	KeyRequireInteractionDays: 0.0,
	KeyGlobalPerHour:          8,
	KeyPairCooldownHours:      24.0,
	KeyBrigadeWindowMinutes:   60.0,
	KeyBrigadeMinRaters:       6,

	KeyBurstPerMinute:    30,
	KeyRecomputeInterval: 0,
	KeyRequestsPerSecond: 20.0,
	KeyServerPort:        8080,
	KeyServerTrace:       false,
	KeyStoreDriver:       "mongo",
	KeyStoreDSN:          "mongodb://127.0.0.1:27017",
	KeyMongoDatabase:     "reputation",
	KeyLogLevel:          "info",
}

// Params is a snapshot of the reputation tuning knobs.
type Params struct {
	PriorMean   float64
	PriorWeight float64
	WeightMin   float64
	WeightMax   float64

	// HalfLifeDays <= 0 disables recency decay.
	HalfLifeDays float64
	// RequireInteractionDays <= 0 disables the interaction requirement.
	RequireInteractionDays float64

	GlobalPerHour    int
	PairCooldown     time.Duration
	BrigadeWindow    time.Duration
	BrigadeMinRaters int
}

// Source reads parameters from a viper instance.
type Source struct {
	v *viper.Viper
}

// New binds a Source to v, or to the global viper when v is nil, and
// registers defaults and environment lookup on it.
func New(v *viper.Viper) *Source {
	if v == nil {
		v = viper.GetViper()
	}
	Prepare(v)
	return &Source{v: v}
}

// Prepare registers defaults and environment lookup. PRIOR_MEAN maps to
// prior_mean and SERVER_PORT to server.port.
func Prepare(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// LoadFile reads a config file and keeps watching it for changes.
func LoadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.WithFields(log.Fields{
			"prefix": "config",
			"file":   e.Name,
		}).Info("config reloaded")
	})
	v.WatchConfig()
	return nil
}

func (s *Source) Viper() *viper.Viper {
	return s.v
}

// Reputation returns the current parameter snapshot.
func (s *Source) Reputation() Params {
	p := Params{
		PriorMean:              s.finite(KeyPriorMean),
		PriorWeight:            math.Max(0, s.finite(KeyPriorWeight)),
		WeightMin:              math.Max(0, s.finite(KeyWeightMin)),
		WeightMax:              math.Max(0, s.finite(KeyWeightMax)),
		HalfLifeDays:           s.finite(KeyHalfLifeDays),
		RequireInteractionDays: s.finite(KeyRequireInteractionDays),
		GlobalPerHour:          s.v.GetInt(KeyGlobalPerHour),
		PairCooldown:           hours(s.finite(KeyPairCooldownHours)),
		BrigadeWindow:          minutes(s.finite(KeyBrigadeWindowMinutes)),
		BrigadeMinRaters:       s.v.GetInt(KeyBrigadeMinRaters),
	}

	if p.WeightMax < p.WeightMin {
		p.WeightMin, p.WeightMax = p.WeightMax, p.WeightMin
	}
	return p
}

func (s *Source) BurstPerMinute() int {
	return s.v.GetInt(KeyBurstPerMinute)
}

func (s *Source) RecomputeInterval() time.Duration {
	return minutes(s.finite(KeyRecomputeInterval))
}

func (s *Source) RequestsPerSecond() float64 {
	return s.finite(KeyRequestsPerSecond)
}

func (s *Source) AdminToken() string {
	return s.v.GetString(KeyAdminToken)
}

// finite falls back to the registered default when a value is NaN or
// infinite.
func (s *Source) finite(key string) float64 {
	f := s.v.GetFloat64(key)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		d, _ := defaults[key].(float64)
		return d
	}
	return f
}

func hours(h float64) time.Duration {
	if h <= 0 {
		return 0
	}
	return time.Duration(h * float64(time.Hour))
}

func minutes(m float64) time.Duration {
	if m <= 0 {
		return 0
	}
	return time.Duration(m * float64(time.Minute))
}
