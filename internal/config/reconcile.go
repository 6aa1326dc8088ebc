package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReconcilePolicy controls entitlement reconciliation behavior that
// operators tune without a redeploy.
type ReconcilePolicy struct {
	RenewalDays int           `mapstructure:"renewalDays"`
	LockTTL     time.Duration `mapstructure:"lockTtl"`
	Outbox      OutboxPolicy  `mapstructure:"outbox"`
}

type OutboxPolicy struct {
	Interval       time.Duration `mapstructure:"interval"`
	MaxAttempts    int           `mapstructure:"maxAttempts"`
	InitialBackoff time.Duration `mapstructure:"initialBackoff"`
}

func DefaultReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{
		RenewalDays: 30,
		LockTTL:     30 * time.Second,
		Outbox: OutboxPolicy{
			Interval:       time.Minute,
			MaxAttempts:    10,
			InitialBackoff: 30 * time.Second,
		},
	}
}

type ReconcilePolicyHolder struct {
	current atomic.Value // holds ReconcilePolicy
}

func NewReconcilePolicyHolder() (*ReconcilePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("reconcile")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/entitle/config") // Volume-mounted config
	v.AddConfigPath("/etc/entitle")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("ENTITLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	defaults := DefaultReconcilePolicy()
	v.SetDefault("reconcile.renewalDays", defaults.RenewalDays)
	v.SetDefault("reconcile.lockTtl", defaults.LockTTL)
	v.SetDefault("reconcile.outbox.interval", defaults.Outbox.Interval)
	v.SetDefault("reconcile.outbox.maxAttempts", defaults.Outbox.MaxAttempts)
	v.SetDefault("reconcile.outbox.initialBackoff", defaults.Outbox.InitialBackoff)

	var policy ReconcilePolicy
	if err := v.UnmarshalKey("reconcile", &policy); err != nil {
		return nil, err
	}
	if err := validateReconcilePolicy(policy); err != nil {
		return nil, err
	}

	holder := &ReconcilePolicyHolder{}
	holder.current.Store(policy)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated ReconcilePolicy
			if err := v.UnmarshalKey("reconcile", &updated); err != nil {
				log.Printf("[reconcile-config] reload failed: %v", err)
				return
			}
			if err := validateReconcilePolicy(updated); err != nil {
				log.Printf("[reconcile-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[reconcile-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *ReconcilePolicyHolder) Current() ReconcilePolicy {
	if h == nil {
		return DefaultReconcilePolicy()
	}
	if policy, ok := h.current.Load().(ReconcilePolicy); ok {
		return policy
	}
	return DefaultReconcilePolicy()
}

func validateReconcilePolicy(p ReconcilePolicy) error {
	if p.RenewalDays <= 0 {
		return errors.New("reconcile renewalDays must be positive")
	}
	if p.LockTTL <= 0 {
		return errors.New("reconcile lockTtl must be positive")
	}
	if p.Outbox.Interval <= 0 {
		return errors.New("reconcile outbox interval must be positive")
	}
	if p.Outbox.MaxAttempts <= 0 {
		return errors.New("reconcile outbox maxAttempts must be positive")
	}
	if p.Outbox.InitialBackoff <= 0 {
		return errors.New("reconcile outbox initialBackoff must be positive")
	}
	return nil
}
