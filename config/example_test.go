/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"time"
)

type exampleRetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Mode        string
}

func (c *exampleRetryConfig) KeyPrefix() string {
	return "retry"
}

func (c *exampleRetryConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("maxAttempts", 3)
	dp.SetDefault("baseDelay", time.Second)
	dp.SetDefault("mode", "exponential")
}

func (c *exampleRetryConfig) Set(dp DataProvider) (err error) {
	if c.MaxAttempts, err = dp.GetInt("maxAttempts"); err != nil {
		return err
	}
	if c.MaxAttempts < 0 {
		return dp.WrapKeyErr("maxAttempts", fmt.Errorf("should be >= 0"))
	}
	if c.BaseDelay, err = dp.GetDuration("baseDelay"); err != nil {
		return err
	}
	if c.Mode, err = dp.GetStringFromSet("mode", []string{"exponential", "constant"}, true); err != nil {
		return err
	}
	return nil
}

func Example() {
	cfgData := bytes.NewBufferString(`
retry:
  maxAttempts: 5
  mode: constant
`)

	// Environment variables take precedence over the configuration data.
	if err := os.Setenv("EXAMPLE_RETRY_BASEDELAY", "250ms"); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = os.Unsetenv("EXAMPLE_RETRY_BASEDELAY") }()

	retryCfg := exampleRetryConfig{}
	if err := NewDefaultLoader("example").LoadFromReader(cfgData, DataTypeYAML, &retryCfg); err != nil {
		log.Fatal(err)
	}
	fmt.Println(retryCfg.MaxAttempts, retryCfg.BaseDelay, retryCfg.Mode)

	err := NewDefaultLoader("example").LoadFromReader(
		bytes.NewBufferString(`{"retry": {"maxAttempts": -1}}`), DataTypeJSON, &exampleRetryConfig{})
	fmt.Println(err)

	// Output:
	// 5 250ms constant
	// retry.maxAttempts: should be >= 0
}
