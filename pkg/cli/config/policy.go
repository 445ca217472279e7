package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Policy holds the CLI flag pointing at the retrieval policy file
type Policy struct {
	path string
}

// Flags returns CLI flags for retrieval policy configuration
func (p *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy-file",
			Usage:       "Path to retrieval policy TOML file (built-in defaults when empty)",
			Sources:     cli.EnvVars("TEAMCTX_POLICY_FILE"),
			Destination: &p.path,
		},
	}
}

// Configure loads the retrieval policy. Fields omitted from the file keep
// their built-in defaults.
func (p *Policy) Configure() (*model.RetrievalPolicy, error) {
	policy := model.DefaultRetrievalPolicy()
	if p.path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", p.path))
	}

	if err := toml.Unmarshal(data, policy); err != nil {
		return nil, goerr.Wrap(err, "failed to parse policy file", goerr.V("path", p.path))
	}

	if err := policy.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid retrieval policy", goerr.V("path", p.path))
	}

	return policy, nil
}
