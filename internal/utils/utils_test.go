package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	defer ConfigureLogging("info", "text")

	ConfigureLogging("debug", "json")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	ConfigureLogging("nonsense", "text")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
}

func TestInitSentryDisabledWithoutDSN(t *testing.T) {
	enabled, err := InitSentry("", "test")
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = InitSentry("not a dsn", "test")
	assert.Error(t, err)
}
