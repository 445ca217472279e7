package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/interfaces"
	"github.com/teamctx-lab/teamctx/pkg/service/metering"
	"github.com/teamctx-lab/teamctx/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Metering holds CLI flags for the usage metering sink
type Metering struct {
	bucket string
}

// Flags returns CLI flags for metering configuration
func (m *Metering) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "usage-bucket",
			Usage:       "Cloud Storage bucket receiving usage events (metering disabled when empty)",
			Sources:     cli.EnvVars("TEAMCTX_USAGE_BUCKET"),
			Destination: &m.bucket,
		},
	}
}

// Configure returns the usage sink and a closer. Without a bucket the sink
// is a no-op; usage metering is never required for the service to run.
func (m *Metering) Configure(ctx context.Context) (interfaces.UsageSink, func(), error) {
	if m.bucket == "" {
		logging.Default().Info("Usage metering not configured, events will be discarded")
		return metering.Discard{}, func() {}, nil
	}

	sink, err := metering.NewGCSSink(ctx, m.bucket)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize usage sink", goerr.V("bucket", m.bucket))
	}

	logging.Default().Info("Usage metering enabled", "bucket", m.bucket)

	closer := func() {
		if err := sink.Close(); err != nil {
			logging.Default().Error("failed to close usage sink", "error", err.Error())
		}
	}
	return sink, closer, nil
}
