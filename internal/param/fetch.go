package param

import "context"

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
	FetchAll(context.Context, string) ([]string, error)
}

// Resolve prefers a value given directly and otherwise reads the named
// parameter. With neither set it returns an empty string and never touches f.
func Resolve(ctx context.Context, f func() Fetcher, value, path string) (string, error) {
	if value != "" || path == "" {
		return value, nil
	}
	return f().Fetch(ctx, path)
}

// ResolveAll reads every parameter under path, or nothing when path is empty.
func ResolveAll(ctx context.Context, f func() Fetcher, path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	return f().FetchAll(ctx, path)
}
