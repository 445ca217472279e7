package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Context() ContextRepository
	Project() ProjectRepository
	Principal() PrincipalRepository

	Close() error
}
