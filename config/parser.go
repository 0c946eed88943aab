package config

import (
	"encoding/json"
	"fmt"

	"github.com/seqpipe/flowsched/executor"
)

// Parser holds how to parse the executor section. It looks at the "type"
// field in the config and looks that up in the map. (If the object is
// not present in the JSON, it will look up the empty string; to set a
// default, set Parser.Executor[""] = &LocalExecutorConfig{Type: "local"}.)
type Parser struct {
	Executor map[string]ExecutorConfig
}

// DefaultParser knows every flavor in the closed executor set and
// defaults to local execution.
func DefaultParser() *Parser {
	return &Parser{
		Executor: map[string]ExecutorConfig{
			"local":      &LocalExecutorConfig{},
			"gridengine": &GridExecutorConfig{},
			"batch":      &BatchExecutorConfig{},
			"":           &LocalExecutorConfig{Type: "local"},
		},
	}
}

func (p *Parser) Parse(configText []byte) (*Config, error) {
	if len(configText) == 0 {
		configText = emptyJson
	}
	var cfg topLevelConfig
	err := json.Unmarshal(configText, &cfg)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse top-level config: %v", err)
	}

	r := &Config{}

	if len(cfg.Ceilings) > 0 {
		if err := json.Unmarshal(cfg.Ceilings, &r.Ceilings); err != nil {
			return nil, fmt.Errorf("Couldn't parse Ceilings: %v (config: %s)", err, cfg.Ceilings)
		}
	}
	if len(cfg.Groups) > 0 {
		if err := json.Unmarshal(cfg.Groups, &r.Groups); err != nil {
			return nil, fmt.Errorf("Couldn't parse Groups: %v (config: %s)", err, cfg.Groups)
		}
	}
	if len(cfg.Policies) > 0 {
		if err := json.Unmarshal(cfg.Policies, &r.Policies); err != nil {
			return nil, fmt.Errorf("Couldn't parse Policies: %v (config: %s)", err, cfg.Policies)
		}
	}

	executorType, executorData := parseType(cfg.Executor)
	executorConfig, ok := p.Executor[executorType]
	if !ok {
		return nil, fmt.Errorf("No parser for executor type %s", executorType)
	}
	err = json.Unmarshal(executorData, &executorConfig)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse Executor: %v (config: %s; type: %s)", err, executorData, executorType)
	}
	r.Executor = executorConfig

	return r, nil
}

// Generates the JSON config that results from the empty string; useful
// for showing a complete configuration.
func (p *Parser) DefaultJSON() ([]byte, error) {
	i, err := p.Parse(nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(i)
}

type LocalExecutorConfig struct {
	Type string
}

func (c *LocalExecutorConfig) Create() (executor.Profile, error) {
	return executor.Profile{Flavor: executor.Local}, nil
}

type GridExecutorConfig struct {
	Type string
	// Options are appended to every submission, e.g. "-q long.q".
	Options string
}

func (c *GridExecutorConfig) Create() (executor.Profile, error) {
	return executor.Profile{Flavor: executor.GridEngine, ExtraOptions: c.Options}, nil
}

type BatchExecutorConfig struct {
	Type    string
	Options string
}

func (c *BatchExecutorConfig) Create() (executor.Profile, error) {
	return executor.Profile{Flavor: executor.Batch, ExtraOptions: c.Options}, nil
}
