package types

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy shared across layers. Repositories and use cases wrap
// these sentinels with goerr so the HTTP controller can classify a failure
// with errors.Is without inspecting messages.
var (
	// ErrUnauthenticated means no valid credential was presented
	ErrUnauthenticated = goerr.New("not authenticated")

	// ErrForbidden means a valid identity lacks rights on the project
	ErrForbidden = goerr.New("access denied")

	// ErrNotFound means the project or record does not exist
	ErrNotFound = goerr.New("not found")

	// ErrBadRequest means the input was empty or malformed
	ErrBadRequest = goerr.New("bad request")

	// ErrProvider means the embedding or generation backend failed or
	// returned malformed output
	ErrProvider = goerr.New("provider failure")

	// ErrProviderTimeout means the backend exceeded its call deadline
	ErrProviderTimeout = goerr.New("provider timeout")

	// ErrConfiguration means a fatal startup misconfiguration such as an
	// embedding dimensionality mismatch or missing provider credentials
	ErrConfiguration = goerr.New("configuration error")
)

// Context keys for error values
const (
	ProjectIDKey   = "project_id"
	PrincipalIDKey = "principal_id"
	RecordIDKey    = "record_id"
)
