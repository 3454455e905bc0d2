package nrf

import (
	"bytes"
	"context"

	"gopkg.in/yaml.v2"
)

// configDocument mirrors the nrfcfg.yaml layout consumed by the NRF binary.
// Field order is fixed so the rendered bytes are deterministic.
type configDocument struct {
	Info          configInfo `yaml:"info"`
	Configuration configBody `yaml:"configuration"`
	Logger        configLog  `yaml:"logger"`
}

type configInfo struct {
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

type configBody struct {
	MongoDBName     string    `yaml:"MongoDBName"`
	MongoDBUrl      string    `yaml:"MongoDBUrl"`
	WebuiURI        string    `yaml:"webuiUri,omitempty"`
	SBI             configSBI `yaml:"sbi"`
	ServiceNameList []string  `yaml:"serviceNameList"`
}

type configSBI struct {
	Scheme       string `yaml:"scheme"`
	RegisterIPv4 string `yaml:"registerIPv4"`
	BindingIPv4  string `yaml:"bindingIPv4"`
	Port         int    `yaml:"port"`
}

type configLog struct {
	NRF configLogLevel `yaml:"NRF"`
}

type configLogLevel struct {
	DebugLevel   string `yaml:"debugLevel"`
	ReportCaller bool   `yaml:"ReportCaller"`
}

// RenderConfig renders the desired workload configuration from the current
// snapshot. Pure. Returns "" when a required input is missing; callers must
// treat that as "not ready" and never write an empty file.
func RenderConfig(snap Snapshot, settings Settings) string {
	if snap.DatabaseURI == "" {
		return ""
	}
	if settings.WebuiRequired && snap.WebuiURL == "" {
		return ""
	}
	doc := configDocument{
		Info: configInfo{
			Version:     "1.0.0",
			Description: "NRF initial local configuration",
		},
		Configuration: configBody{
			MongoDBName: DatabaseName,
			MongoDBUrl:  snap.DatabaseURI,
			WebuiURI:    snap.WebuiURL,
			SBI: configSBI{
				Scheme:       settings.Scheme,
				RegisterIPv4: settings.AppName,
				BindingIPv4:  "0.0.0.0",
				Port:         settings.SBIPort,
			},
			ServiceNameList: []string{"nnrf-nfm", "nnrf-disc"},
		},
		Logger: configLog{
			NRF: configLogLevel{
				DebugLevel:   settings.LogLevel,
				ReportCaller: false,
			},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		// Marshalling a plain struct cannot fail.
		return ""
	}
	return string(out)
}

// ConfigUpdateRequired reports whether the config file must be (re)written:
// true when no file exists yet or when the on-disk content differs from
// desired byte-for-byte. The comparison is exact; any byte difference
// triggers a rewrite and, downstream, a service restart.
func ConfigUpdateRequired(ctx context.Context, w Workload, path, desired string) (bool, error) {
	exists, err := w.Exists(ctx, path)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	current, err := w.ReadFile(ctx, path)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(current, []byte(desired)), nil
}
