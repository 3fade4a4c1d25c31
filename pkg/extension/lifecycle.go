package extension

// Lifecycle is implemented by extensions that need post-construction setup
// and pre-teardown cleanup. Initialize runs after construction and
// dependency resolution, before the instance is handed to any caller;
// Destroy runs from DestroyAll during process teardown.
type Lifecycle interface {
	Initialize() error
	Destroy() error
}
