// Package mock provides a test double for search.Client.
//
// MockClient records every call and delegates to optional function fields,
// which lets tests hold responses back to observe in-flight behavior:
//
//	release := make(chan struct{})
//	client := mock.NewMockClient().
//	    WithSearchFunc(func(ctx context.Context, reqs []core.SearchParameters) ([]*core.SearchResults, error) {
//	        <-release
//	        return mock.Echo(reqs), nil
//	    })
//
// # Default Behavior
//
// Without function fields, Search answers every request with an empty
// SearchResults echoing its parameters, and SearchForFacetValues returns no hits.
package mock
