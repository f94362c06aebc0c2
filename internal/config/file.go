package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML layout accepted by --config. Zero values mean
// "not set" and leave the corresponding option untouched.
type FileConfig struct {
	Target struct {
		URL      string `yaml:"url"`
		Payloads string `yaml:"payloads"`
	} `yaml:"target"`

	Engine struct {
		Concurrency   int     `yaml:"concurrency"`
		PerHost       int     `yaml:"per_host"`
		Timeout       string  `yaml:"timeout"`
		TimeThreshold string  `yaml:"time_threshold"`
		Rate          float64 `yaml:"rate"`
	} `yaml:"engine"`

	HTTP struct {
		Headers    map[string]string `yaml:"headers"`
		UserAgents []string          `yaml:"user_agents"`
		Proxy      string            `yaml:"proxy"`
	} `yaml:"http"`

	Output struct {
		File        string `yaml:"file"`
		Format      string `yaml:"format"`
		Stream      string `yaml:"stream"`
		OnResult    string `yaml:"on_result"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"output"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// Apply copies every value set in fc into o, except for options whose flag
// name is reported as explicitly set by changed. Flags always win.
func (fc *FileConfig) Apply(o *Options, changed func(flag string) bool) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	setStr := func(flag string, dst *string, v string) {
		if v != "" && !changed(flag) {
			*dst = v
		}
	}
	setDur := func(flag string, dst *time.Duration, v string) error {
		if v == "" || changed(flag) {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", flag, v, err)
		}
		*dst = d
		return nil
	}

	setStr("url", &o.URL, fc.Target.URL)
	setStr("payloads", &o.PayloadsPath, fc.Target.Payloads)

	if fc.Engine.Concurrency != 0 && !changed("concurrency") {
		o.Concurrency = fc.Engine.Concurrency
	}
	if fc.Engine.PerHost != 0 && !changed("per-host") {
		o.PerHost = fc.Engine.PerHost
	}
	if fc.Engine.Rate != 0 && !changed("rate") {
		o.Rate = fc.Engine.Rate
	}
	if err := setDur("timeout", &o.Timeout, fc.Engine.Timeout); err != nil {
		return err
	}
	if err := setDur("time-threshold", &o.TimeThreshold, fc.Engine.TimeThreshold); err != nil {
		return err
	}

	if len(fc.HTTP.Headers) > 0 && !changed("header") {
		if o.Headers == nil {
			o.Headers = make(map[string]string, len(fc.HTTP.Headers))
		}
		for k, v := range fc.HTTP.Headers {
			o.Headers[k] = v
		}
	}
	if len(fc.HTTP.UserAgents) > 0 && !changed("user-agent") {
		o.UserAgents = append([]string(nil), fc.HTTP.UserAgents...)
	}
	setStr("proxy", &o.Proxy, fc.HTTP.Proxy)

	setStr("output", &o.OutputFile, fc.Output.File)
	setStr("format", &o.OutputFormat, fc.Output.Format)
	setStr("stream", &o.StreamFile, fc.Output.Stream)
	setStr("on-result", &o.OnResultCmd, fc.Output.OnResult)
	setStr("metrics-addr", &o.MetricsAddr, fc.Output.MetricsAddr)
	return nil
}
