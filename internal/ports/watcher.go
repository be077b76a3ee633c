package ports

// Watcher monitors a directory for changes to parse targets.
// The adapter (fsnotify) must filter out VCS and vendor directories before
// invoking onChange. Only one Watch call should be active at a time.
type Watcher interface {
	// Watch starts monitoring root recursively. onChange is called with the
	// absolute path of each changed file that accept reports as a target.
	// The callback may be invoked from any goroutine. Returns an error if the
	// directory doesn't exist or permissions are insufficient.
	Watch(root string, accept func(path string) bool, onChange func(path string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
