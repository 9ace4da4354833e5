package log

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig_RegisterFlags(t *testing.T) {
	var conf Config
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	conf.RegisterFlags(f)

	require.NoError(t, f.Parse([]string{"-log.level", "debug", "-log.format", "json"}))

	assert.Equal(t, zapcore.DebugLevel, conf.Level)
	assert.Equal(t, "json", conf.Format)

	logger, err := conf.Build()
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestMultiLine(t *testing.T) {
	field := MultiLine("query", `
		SELECT *
		  FROM profiles
	`)
	assert.Equal(t, "query", field.Key)
	assert.Equal(t, "SELECT * FROM profiles", field.Interface.(multiLineString).String())
}
