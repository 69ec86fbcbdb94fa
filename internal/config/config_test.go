package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, ":8080", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "orders", cfg.RabbitMQ.Exchange)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("DATABASE_DRIVER", "MEMORY")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("RABBITMQ_ENABLED", "true")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.True(t, cfg.RabbitMQ.Enabled)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "short secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: "JWT_SECRET must be at least 16 characters",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"JWT_SECRET": "a-very-long-test-secret", "DATABASE_DRIVER": "mysql"},
			wantErr: `unsupported DATABASE_DRIVER "mysql"`,
		},
		{
			name:    "admin without password",
			env:     map[string]string{"JWT_SECRET": "a-very-long-test-secret", "ADMIN_USERNAME": "root"},
			wantErr: "ADMIN_PASSWORD must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromViper(viper.New())
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
