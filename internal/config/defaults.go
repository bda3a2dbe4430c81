package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"database": map[string]interface{}{
			"dsn": "growell.db",
		},
		"telegram": map[string]interface{}{
			"token":   "",
			"chat_id": 0,
		},
		"timezone": "Local",
		"digest": map[string]interface{}{
			"time": "",
		},
		"reminders": map[string]interface{}{
			"seed_defaults": true,
			"past_dates":    "keep",
		},
		"log": map[string]interface{}{
			"debug": false,
			"dir":   "",
		},
		"mcp": map[string]interface{}{
			"addr": "",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "~/.growell/config.yaml"
}
