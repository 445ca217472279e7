package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/cli/config"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/model/auth"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/utils/logging"
	"github.com/teamctx-lab/teamctx/pkg/utils/safe"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"
)

// cmdSeed registers a principal, and optionally a project owned by it.
// Account and project lifecycle belong to an external system in
// production; this command covers deployments and local development.
func cmdSeed() *cli.Command {
	var email string
	var name string
	var password string
	var projectName string
	var withAPIKey bool
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "email",
			Usage:       "Principal email (required)",
			Required:    true,
			Destination: &email,
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "Principal display name",
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "Principal password for login",
			Sources:     cli.EnvVars("TEAMCTX_SEED_PASSWORD"),
			Destination: &password,
		},
		&cli.StringFlag{
			Name:        "project",
			Usage:       "Create a project with this name owned by the principal",
			Destination: &projectName,
		},
		&cli.BoolFlag{
			Name:        "api-key",
			Usage:       "Issue an API key for the principal (printed once)",
			Destination: &withAPIKey,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Register a principal and optionally a project",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			principal := &model.Principal{
				ID:    types.NewPrincipalID(),
				Email: email,
				Name:  name,
			}

			if password != "" {
				hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
				if err != nil {
					return goerr.Wrap(err, "failed to hash password")
				}
				principal.HashedPassword = string(hashed)
			}

			var credential string
			if withAPIKey {
				cred, keyID, err := auth.GenerateAPIKey()
				if err != nil {
					return err
				}
				hashed, err := bcrypt.GenerateFromPassword([]byte(cred), bcrypt.DefaultCost)
				if err != nil {
					return goerr.Wrap(err, "failed to hash API key")
				}
				principal.APIKeyID = keyID
				principal.HashedAPIKey = string(hashed)
				credential = cred
			}

			if err := repo.Principal().Put(ctx, principal); err != nil {
				return goerr.Wrap(err, "failed to store principal", goerr.V("email", email))
			}
			logging.Default().Info("Principal registered",
				"principal_id", principal.ID,
				"email", principal.Email)

			if projectName != "" {
				project := &model.Project{
					ID:      types.NewProjectID(),
					Name:    projectName,
					OwnerID: principal.ID,
				}
				if err := repo.Project().Put(ctx, project); err != nil {
					return goerr.Wrap(err, "failed to store project", goerr.V("name", projectName))
				}
				logging.Default().Info("Project registered",
					"project_id", project.ID,
					"name", project.Name)
			}

			// The credential is shown exactly once; only its hash is stored
			if credential != "" {
				fmt.Fprintf(os.Stdout, "API key (store it now, it cannot be recovered): %s\n", credential)
			}

			return nil
		},
	}
}
